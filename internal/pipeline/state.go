package pipeline

type State int

const (
	// Idle: nothing was ever requested.
	Idle State = iota
	// Pending: the latest request is unanswered.
	Pending
	// Settled: the latest request has been answered.
	Settled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent read of a Controller.
type Snapshot struct {
	Seq    uint64
	Input  string
	Output string
	Err    error
	State  State
}
