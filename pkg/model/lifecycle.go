package model

// Lifecycle is the runtime state an element reports through its flags.
type Lifecycle int

const (
	LifecycleOther Lifecycle = iota
	LifecycleCurrent
	LifecycleAvailable
	LifecycleCompleted
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleCurrent:
		return "current"
	case LifecycleAvailable:
		return "available"
	case LifecycleCompleted:
		return "completed"
	default:
		return "other"
	}
}

// LifecycleOf returns the first matching flag in the order
// current, available, completed.
func LifecycleOf(e Element) Lifecycle {
	switch {
	case e.Current:
		return LifecycleCurrent
	case e.Available:
		return LifecycleAvailable
	case e.Completed:
		return LifecycleCompleted
	default:
		return LifecycleOther
	}
}
