package subprocess

import (
	"context"
	"strings"
	"time"

	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// RunGroup runs a collection of supervisors under a single cooperative
// loop. Every supervisor is started before any output is drained, so
// process start ordering is not coupled to log volume; the loop then
// advances each active supervisor one step per pass, round-robin, and
// sleeps for a second on passes where no member produced output.
//
// Members of the essential subset are the processes the group cannot
// survive without: when one of them finishes, for any reason, every
// remaining member is stopped and RunGroup returns. Otherwise RunGroup
// returns when every member has finished and been fully drained, or
// when the context is cancelled (which also stops the remaining
// members). Health and failure are observable only through logging
// side effects.
//
// Essential supervisors that are not members of the group are logged
// and ignored.
func RunGroup(ctx context.Context, members []*Supervisor, essential []*Supervisor) {
	isEssential := make(map[*Supervisor]bool, len(essential))
	for _, e := range essential {
		member := false
		for _, s := range members {
			if s == e {
				member = true
				break
			}
		}
		if !member {
			grip.Warningf("essential process %s is not a member of the group, ignoring", e.Name())
			continue
		}
		isEssential[e] = true
	}

	var active, failed []*Supervisor
	for _, s := range members {
		// Start errors are logged by the supervisor itself; a
		// member that cannot start is treated as having
		// finished immediately.
		if err := s.Start(ctx, false); err != nil {
			failed = append(failed, s)
			continue
		}
		active = append(active, s)
	}

	if stopOnEssentialExit(failed, isEssential, active) {
		return
	}

	for len(active) > 0 {
		if ctx.Err() != nil {
			grip.Infof("supervision loop cancelled, stopping %d remaining process(es)", len(active))
			stopAll(active)
			return
		}

		readSome := false
		var finished []*Supervisor
		next := active[:0]
		for _, s := range active {
			more, err := s.safeStep()
			if err != nil {
				grip.Error(errors.Wrapf(err, "advancing %s", s.Name()))
				finished = append(finished, s)
				continue
			}

			if s.Status().LogRead() {
				readSome = true
			}

			if more {
				next = append(next, s)
			} else {
				finished = append(finished, s)
			}
		}
		active = next

		if stopOnEssentialExit(finished, isEssential, active) {
			return
		}

		if !readSome && len(active) > 0 {
			// Nothing had output pending; sleep so the loop
			// doesn't spin.
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// stopOnEssentialExit applies the essential-member policy: if any
// supervisor that finished this pass is essential, all remaining
// members are stopped. Returns true when the group should terminate.
func stopOnEssentialExit(finished []*Supervisor, isEssential map[*Supervisor]bool, active []*Supervisor) bool {
	var names []string
	for _, s := range finished {
		if isEssential[s] {
			names = append(names, s.Name())
		}
	}

	if len(names) == 0 {
		return false
	}

	grip.Errorf("the following essential process(es) exited: %s. Terminating other subprocesses...",
		strings.Join(names, ", "))
	stopAll(active)

	return true
}

func stopAll(supervisors []*Supervisor) {
	for _, s := range supervisors {
		s.Stop()
	}
}
