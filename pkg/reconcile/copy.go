package reconcile

// copyAction is what to do with an existing copied file
type copyAction int

const (
	// copyAdopt records the destination time of a file seen for the first time
	copyAdopt copyAction = iota
	// copyConverged records a destination that caught up with the source on its own
	copyConverged
	// copyUnchanged leaves everything as is
	copyUnchanged
	// copyRefresh copies a strictly newer source over an untouched destination
	copyRefresh
	// copyConflict reports a destination edited since it was last recorded
	copyConflict
)

func (a copyAction) String() string {
	switch a {
	case copyAdopt:
		return "adopt"
	case copyConverged:
		return "converged"
	case copyUnchanged:
		return "unchanged"
	case copyRefresh:
		return "refresh"
	default:
		return "conflict"
	}
}

// decideCopy compares the tracked, source and destination modification
// times of a file whose destination exists. When both sides moved since
// the last run the result is a conflict; neither side is preferred.
func decideCopy(hasTracked bool, tracked, src, dst int64) copyAction {
	switch {
	case !hasTracked:
		return copyAdopt
	case src == dst && tracked != dst:
		return copyConverged
	case src == dst:
		return copyUnchanged
	case tracked != dst:
		return copyConflict
	case src > dst:
		return copyRefresh
	default:
		return copyConflict
	}
}
