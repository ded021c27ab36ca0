package subprocess

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/recovery"
	"github.com/mongodb/grip/send"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// DefaultSigtermPatience is the maximum time a supervisor waits
	// for its process to exit after a SIGTERM before escalating to
	// SIGKILL. The window is generous because supervised processes
	// may be doing their own graceful shutdown, e.g. flushing
	// queues or closing connections.
	DefaultSigtermPatience = 90 * time.Second

	// conditionCheckInterval bounds how often a supervisor
	// evaluates its conditions.
	conditionCheckInterval = time.Minute

	// killPollInterval is how often the kill protocol re-polls the
	// process for exit while waiting out the patience window.
	killPollInterval = 100 * time.Millisecond

	outputChunkSize = 4096
)

// Options describes the construction of a Supervisor. Command is
// required; every other field has a usable default applied by
// Validate.
type Options struct {
	// Command is the argument vector of the child process. The
	// first element is the binary; construction of the vector is
	// entirely the caller's concern.
	Command []string

	// Env holds environment variables passed verbatim to the
	// child. A nil map inherits the parent environment.
	Env map[string]string

	// FriendlyName, when set, is used to refer to the process in
	// log messages.
	FriendlyName string

	// Sender is the destination for the process' output lines.
	// Defaults to the global grip sender.
	Sender send.Sender

	// Conditions are evaluated against the running process on a
	// throttle; any failing condition causes the process to be
	// killed.
	Conditions []Condition

	// SigtermPatience overrides DefaultSigtermPatience.
	SigtermPatience time.Duration

	// Registry tracks the supervisor between Start and Close so
	// that the host's shutdown path can clean up processes that
	// are still running. Defaults to the package registry.
	Registry *Registry
}

// Validate checks the options and applies defaults, modifying the
// options in place.
func (o *Options) Validate() error {
	catcher := grip.NewBasicCatcher()

	if len(o.Command) == 0 || o.Command[0] == "" {
		catcher.Add(errors.New("must specify a command to supervise"))
	}

	if o.SigtermPatience < 0 {
		catcher.Add(errors.New("sigterm patience interval cannot be negative"))
	} else if o.SigtermPatience == 0 {
		o.SigtermPatience = DefaultSigtermPatience
	}

	if o.Sender == nil {
		o.Sender = grip.GetSender()
	}

	if o.Registry == nil {
		o.Registry = DefaultRegistry()
	}

	return catcher.Resolve()
}

// Supervisor owns and monitors exactly one child process. Supervisors
// are single-use: once the process reaches FinishedNoMoreLogs, the
// supervisor is spent and is not restarted.
//
// All methods are intended for use from a single logical thread of
// execution; Supervisor performs no internal locking.
type Supervisor struct {
	opts Options
	id   string

	status ProcessStatus
	cmd    *exec.Cmd
	out    *os.File
	outFd  int
	outBuf []byte
	outEOF bool
	chunk  []byte

	startedAt time.Time
	finished  bool
	exitCode  int

	lastConditionCheck time.Time
	conditionInterval  time.Duration

	closed bool

	// output receives the child's log lines verbatim; dual fans
	// messages that matter to both the process log and the
	// operator out to both destinations.
	output grip.Journaler
	dual   grip.Journaler
}

// NewSupervisor constructs a Supervisor from the given options,
// validating them and applying defaults. The returned supervisor has
// not been started.
func NewSupervisor(opts Options) (*Supervisor, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid supervisor options")
	}

	output := grip.NewJournaler("warden.process")
	if err := output.SetSender(opts.Sender); err != nil {
		return nil, errors.Wrap(err, "setting process output sender")
	}

	dual, err := newCompositeJournaler("warden.process.dual", opts.Sender, grip.GetSender())
	if err != nil {
		return nil, errors.Wrap(err, "constructing dual logger")
	}

	return &Supervisor{
		opts:              opts,
		id:                uuid.New().String(),
		conditionInterval: conditionCheckInterval,
		output:            output,
		dual:              dual,
	}, nil
}

// ID returns the unique identifier assigned to this supervisor at
// construction. It is used as the registry key.
func (s *Supervisor) ID() string { return s.id }

// Status returns the status computed by the most recent Step.
func (s *Supervisor) Status() ProcessStatus { return s.status }

// StartTime returns the time at which the child process was spawned,
// or the zero time for a supervisor that has not started.
func (s *Supervisor) StartTime() time.Time { return s.startedAt }

// Name returns the friendly name when one is set, or the command
// binary, for use in messages that need to identify a supervisor that
// may not have started.
func (s *Supervisor) Name() string {
	if s.opts.FriendlyName != "" {
		return s.opts.FriendlyName
	}
	if len(s.opts.Command) > 0 {
		return s.opts.Command[0]
	}
	return s.id
}

func (s *Supervisor) String() string {
	switch {
	case s.cmd != nil && s.opts.FriendlyName != "":
		return fmt.Sprintf("Process %s (PID %d)", s.opts.FriendlyName, s.cmd.Process.Pid)
	case s.cmd != nil:
		return fmt.Sprintf("Process with PID %d", s.cmd.Process.Pid)
	default:
		return ""
	}
}

// Start prepares the supervisor's conditions and spawns the child
// process with its output streams merged into a non-blocking pipe. A
// failure to prepare or spawn is logged and returned, and leaves the
// supervisor un-started; it is never fatal to the caller.
//
// When autoLoop is true, Start blocks in the execution loop until the
// process exits and its output is drained, sleeping one second on
// iterations that consume no output. When autoLoop is false the
// caller is responsible for advancing the supervisor with Step; this
// is the mode RunGroup uses to interleave multiple supervisors. The
// context is consulted only between iterations of the automatic loop.
func (s *Supervisor) Start(ctx context.Context, autoLoop bool) error {
	if s.cmd != nil {
		return errors.Errorf("%s is already started", s)
	}

	catcher := grip.NewBasicCatcher()
	for _, cond := range s.opts.Conditions {
		catcher.Add(cond.Prepare())
	}
	if catcher.HasErrors() {
		err := errors.Wrapf(catcher.Resolve(), "preparing conditions for command '%s'",
			strings.Join(s.opts.Command, " "))
		grip.Alert(err)
		return err
	}

	if err := s.startProcess(); err != nil {
		err = errors.Wrapf(err, "starting a process for command '%s'",
			strings.Join(s.opts.Command, " "))
		grip.Alert(err)
		return err
	}

	s.opts.Registry.Add(s)
	s.status = RunningNoLogRead

	if autoLoop {
		s.executionLoop(ctx)
	}

	return nil
}

func (s *Supervisor) startProcess() error {
	grip.Infof("starting new subprocess for command '%s'", strings.Join(s.opts.Command, " "))

	cmd := exec.Command(s.opts.Command[0], s.opts.Command[1:]...)
	cmd.Env = formatEnv(s.opts.Env)
	cmd.SysProcAttr = sessionAttr()

	r, w, err := os.Pipe()
	if err != nil {
		return errors.Wrap(err, "creating output pipe")
	}
	// stderr is merged into stdout so the log stream preserves the
	// order the child produced its output in.
	cmd.Stdout = w
	cmd.Stderr = w

	s.startedAt = time.Now()
	if err := cmd.Start(); err != nil {
		grip.Error(r.Close())
		grip.Error(w.Close())
		return err
	}
	grip.Error(w.Close())

	fd := int(r.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		grip.Error(cmd.Process.Kill())
		grip.Error(r.Close())
		return errors.Wrap(err, "making output pipe non-blocking")
	}

	s.cmd = cmd
	s.out = r
	s.outFd = fd
	s.chunk = make([]byte, outputChunkSize)

	grip.Infof("new subprocess for command '%s' started. New process ID is %d. Parent process ID is %d.",
		strings.Join(s.opts.Command, " "), cmd.Process.Pid, os.Getpid())

	return nil
}

func (s *Supervisor) executionLoop(ctx context.Context) {
	defer recovery.LogStackTraceAndContinue("subprocess execution loop", s.Name())

	for {
		more, err := s.Step()
		if err != nil {
			grip.Error(errors.Wrapf(err, "advancing %s", s.Name()))
			return
		}
		if !more {
			return
		}

		if s.status == RunningNoLogRead {
			// No pending output, so sleep rather than spin
			// and spike the CPU.
			select {
			case <-ctx.Done():
				s.Stop()
				return
			case <-time.After(time.Second):
			}
		} else if ctx.Err() != nil {
			s.Stop()
			return
		}
	}
}

// Step advances the supervisor by one iteration: at most one
// non-blocking line read (forwarded to the output logger), one
// non-blocking exit poll, a status transition, and a throttled pass
// over the conditions. Step returns true while there is more work to
// do, and false forever once the status is FinishedNoMoreLogs. It
// returns an error only when called on a supervisor that has not been
// started.
func (s *Supervisor) Step() (bool, error) {
	if s.cmd == nil {
		return false, errors.New("process is not started")
	}

	if s.status == FinishedNoMoreLogs {
		return false, nil
	}

	s.status = s.capture()

	if failed := s.checkConditions(); len(failed) > 0 {
		msgs := make([]string, 0, len(failed))
		for _, resp := range failed {
			msgs = append(msgs, " - "+resp.Message)
		}
		s.dual.Errorf("%s is being stopped due to the following:\n%s\nA SIGTERM followed potentially by a SIGKILL will be sent to terminate the process.",
			s, strings.Join(msgs, "\n"))
		s.kill()
		s.status = FinishedNoMoreLogs
	}

	return s.status != FinishedNoMoreLogs, nil
}

// safeStep is Step with panic containment, so a misbehaving condition
// cannot take down a loop that is supervising other processes.
func (s *Supervisor) safeStep() (more bool, err error) {
	defer func() {
		err = recovery.HandlePanicWithError(recover(), err, "subprocess step")
	}()

	return s.Step()
}

// capture performs the read-poll-transition part of a step.
func (s *Supervisor) capture() ProcessStatus {
	line, logRead := s.captureLine()
	finished := s.pollExit()

	if logRead {
		s.output.Info(line)
	}

	return statusFor(logRead, finished)
}

// captureLine returns the next complete output line, if one is
// available without blocking. At end of output a trailing unterminated
// line is flushed as-is.
func (s *Supervisor) captureLine() (string, bool) {
	if !s.outEOF && bytes.IndexByte(s.outBuf, '\n') < 0 {
		s.readOutput()
	}

	if idx := bytes.IndexByte(s.outBuf, '\n'); idx >= 0 {
		line := string(s.outBuf[:idx])
		s.outBuf = s.outBuf[idx+1:]
		return strings.TrimSuffix(line, "\r"), true
	}

	if s.outEOF && len(s.outBuf) > 0 {
		line := string(s.outBuf)
		s.outBuf = nil
		return strings.TrimSuffix(line, "\r"), true
	}

	return "", false
}

// checkConditions evaluates the supervisor's conditions and returns
// the failing responses. Evaluation is throttled by an explicit
// per-supervisor timestamp so that conditions run at most once per
// interval regardless of how often Step is called.
func (s *Supervisor) checkConditions() []ConditionResponse {
	if len(s.opts.Conditions) == 0 {
		return nil
	}

	if time.Since(s.lastConditionCheck) < s.conditionInterval {
		return nil
	}
	s.lastConditionCheck = time.Now()

	var failed []ConditionResponse
	for _, cond := range s.opts.Conditions {
		if resp := cond.Check(s.status); !resp.Successful {
			failed = append(failed, resp)
		}
	}

	return failed
}

// kill implements the signal escalation protocol: SIGTERM, an
// immediate SIGKILL if the SIGTERM cannot be delivered, a bounded wait
// for the process to exit while trailing output is still collected,
// and an unconditional SIGKILL if the patience window elapses.
func (s *Supervisor) kill() {
	if s.pollExit() {
		return
	}

	grip.Infof("killing %s", s)
	if err := s.signal(unix.SIGTERM); err != nil {
		grip.Errorf("failed to stop %s: could not deliver SIGTERM (%v). Sending SIGKILL...", s, err)
		grip.Error(s.signal(unix.SIGKILL))
	}

	deadline := time.Now().Add(s.opts.SigtermPatience)
	for !s.pollExit() && time.Now().Before(deadline) {
		s.forwardPendingOutput()
		time.Sleep(killPollInterval)
	}

	if !s.pollExit() {
		grip.Errorf("failed to stop %s with a SIGTERM signal. Process didn't respond to SIGTERM after %s. Sending SIGKILL...",
			s, s.opts.SigtermPatience)
		grip.Error(s.signal(unix.SIGKILL))
		for !s.pollExit() {
			s.forwardPendingOutput()
			time.Sleep(killPollInterval)
		}
	}

	// The process may have produced output between the signal and
	// its exit; forward it before declaring the kill complete.
	s.forwardPendingOutput()
	grip.Infof("%s killed. Return code %d", s, s.exitCode)
}

func (s *Supervisor) forwardPendingOutput() {
	for {
		line, ok := s.captureLine()
		if !ok {
			return
		}
		s.output.Info(line)
	}
}

// Stop runs the kill protocol against the child process and releases
// the supervisor's handle on it. Calling Stop on a supervisor that
// was never started, or that has already been stopped, is a no-op.
func (s *Supervisor) Stop() {
	if s.cmd == nil {
		return
	}

	grip.Infof("stopping process %s", s)
	s.kill()
	grip.Error(s.out.Close())
	s.out = nil
	s.cmd = nil
}

// Close stops the child process if it is still running and closes
// every condition. Close is idempotent and safe to call multiple
// times, e.g. once from a deferred cleanup and again from a
// registry-level shutdown.
func (s *Supervisor) Close() {
	s.Stop()

	if s.closed {
		return
	}
	s.closed = true

	catcher := grip.NewBasicCatcher()
	for _, cond := range s.opts.Conditions {
		catcher.Add(cond.Close())
	}
	grip.Error(errors.Wrapf(catcher.Resolve(), "closing conditions for %s", s.Name()))

	s.opts.Registry.Remove(s.id)
}

// ExitCode returns the captured exit code once the process has been
// reaped. Processes that exited on a signal report the negated signal
// number.
func (s *Supervisor) ExitCode() int { return s.exitCode }

func formatEnv(env map[string]string) []string {
	if env == nil {
		return nil
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}

	return out
}
