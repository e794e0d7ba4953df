package event

import "time"

// State of one dispatch
type State int

const (
	StateIdle State = iota
	StateRunning
	StateAborted
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateAborted:
		return "aborted"
	case StateCompleted:
		return "completed"
	}
	return "idle"
}

// HandlerResult what happened to one registration during a dispatch
type HandlerResult struct {
	Handler        string
	RegistrationID string
	Priority       Priority
	Kind           Kind
	Outcome        Outcome
	Waited         bool // false for DoNotWait handlers the chain did not block on
	Killed         bool // abandoned after a timeout, the chain was aborted
	Merged         bool // the returned Decision was merged into the cancellation slot
}

// Report is the per-dispatch trace returned by RunWithReport
type Report struct {
	EventType   Type
	State       State
	Results     []HandlerResult
	Skipped     []string // handlers not invoked because the chain was aborted
	Delegates   int      // legacy delegates invoked
	DelegateErr error    // every delegate failure, combined
	Err         error    // returned by an interceptor
	Duration    time.Duration
}

// Result finds the result of a handler by name
func (r *Report) Result(handler string) (HandlerResult, bool) {
	for _, res := range r.Results {
		if res.Handler == handler {
			return res, true
		}
	}
	return HandlerResult{}, false
}

// Invoked handler names in invocation order
func (r *Report) Invoked() []string {
	names := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		names = append(names, res.Handler)
	}
	return names
}
