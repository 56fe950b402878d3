package launcher

// State is a step of the launcher lifecycle.
type State int

const (
	StateInitializing State = iota
	StateBackendStarting
	StateAwaitingReady
	StateReady
	StateShuttingDown
	StateTerminated
)

// String returns a string representation of the State.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "Initializing"
	case StateBackendStarting:
		return "BackendStarting"
	case StateAwaitingReady:
		return "AwaitingReady"
	case StateReady:
		return "Ready"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateTerminated:
		return "Terminated"
	default:
		return "InvalidState"
	}
}
