package subprocess

// ProcessStatus describes whether a supervised child process is still
// running and whether an output line was consumed during the most
// recent poll.
type ProcessStatus int

const (
	// FinishedNoMoreLogs means the process has exited and its
	// output is fully drained. This status is terminal: once a
	// supervisor reaches it, it never reports any other status.
	FinishedNoMoreLogs ProcessStatus = iota

	// FinishedLogRead means the process has exited, but a residual
	// output line was read during this poll.
	FinishedLogRead

	// RunningNoLogRead means the process is alive and no output
	// line was available during this poll.
	RunningNoLogRead

	// RunningLogRead means the process is alive and an output line
	// was read and forwarded during this poll.
	RunningLogRead
)

func (s ProcessStatus) String() string {
	switch s {
	case FinishedNoMoreLogs:
		return "finished-no-more-logs"
	case FinishedLogRead:
		return "finished-log-read"
	case RunningNoLogRead:
		return "running-no-log-read"
	case RunningLogRead:
		return "running-log-read"
	default:
		return "invalid"
	}
}

// IsFinished reports whether the status indicates that the child
// process has exited.
func (s ProcessStatus) IsFinished() bool {
	return s == FinishedNoMoreLogs || s == FinishedLogRead
}

// LogRead reports whether an output line was consumed during the poll
// that produced this status.
func (s ProcessStatus) LogRead() bool {
	return s == FinishedLogRead || s == RunningLogRead
}

// statusFor is the transition function of the status state machine: the
// next status is purely a function of whether a line was read during
// this poll and whether the process has exited.
func statusFor(logRead, finished bool) ProcessStatus {
	switch {
	case finished && !logRead:
		return FinishedNoMoreLogs
	case finished && logRead:
		return FinishedLogRead
	case logRead:
		return RunningLogRead
	default:
		return RunningNoLogRead
	}
}
