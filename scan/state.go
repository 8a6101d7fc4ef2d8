package scan

// State is the lifecycle state of the factory's statement handle.
//
//	Unprepared -> Prepared -> Executing -> Exhausted
//	                              \-> Failed
//
// Prepared may re-enter itself with new query text. Exhausted re-enters
// Prepared when the scan is produced again. Failed drops the handle, so the
// next request starts from a fresh one. Released is terminal.
type State int

const (
	StateUnprepared State = iota
	StatePrepared
	StateExecuting
	StateExhausted
	StateFailed
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUnprepared:
		return "unprepared"
	case StatePrepared:
		return "prepared"
	case StateExecuting:
		return "executing"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}
