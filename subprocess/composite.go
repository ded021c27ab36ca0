package subprocess

import (
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/send"
	"github.com/pkg/errors"
)

// newCompositeJournaler builds a journaler that fans each message out
// to every distinct sender. Senders are deduplicated by identity so
// that a message is not double-logged when the process output sender
// and the operator sender are the same destination.
func newCompositeJournaler(name string, senders ...send.Sender) (grip.Journaler, error) {
	var distinct []send.Sender
	for _, sender := range senders {
		if sender == nil {
			continue
		}

		seen := false
		for _, existing := range distinct {
			if existing == sender {
				seen = true
				break
			}
		}
		if !seen {
			distinct = append(distinct, sender)
		}
	}

	if len(distinct) == 0 {
		return nil, errors.New("cannot build a composite journaler without senders")
	}

	journaler := grip.NewJournaler(name)

	var err error
	if len(distinct) == 1 {
		err = journaler.SetSender(distinct[0])
	} else {
		err = journaler.SetSender(send.NewConfiguredMultiSender(distinct...))
	}

	return journaler, errors.Wrap(err, "setting composite sender")
}
