package subprocess

// Condition is a pluggable health check evaluated against a running
// supervised process. Concrete implementations are supplied by
// callers; supervisors only depend on this contract and never inspect
// the underlying type.
//
// Check implementations must be cheap, read-only with respect to the
// supervisor, and must not block: evaluation is throttled but happens
// repeatedly for the lifetime of the process.
type Condition interface {
	// Prepare is called exactly once, before the supervised
	// process is spawned.
	Prepare() error

	// Check evaluates the condition against the supervisor's
	// current status. Returning a response with Successful set to
	// false causes the owning supervisor to kill its process.
	Check(ProcessStatus) ConditionResponse

	// Close releases any resources held by the condition. It is
	// called when the owning supervisor is closed.
	Close() error
}

// ConditionResponse is the result of a single condition evaluation.
type ConditionResponse struct {
	Successful bool
	Message    string
}
