package runner

// State is a step in a page run's lifecycle. A run only moves forward:
// created → loading → loaded → evaluated → exited.
type State int32

const (
	StateCreated State = iota
	StateLoading
	StateLoaded
	StateEvaluated
	StateExited
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateEvaluated:
		return "evaluated"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}
