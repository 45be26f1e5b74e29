package types

// statusOrder positions each workflow state on the linear progression
// BACKLOG -> SELECTED_FOR_DEVELOPMENT -> IN_PROGRESS -> IN_REVIEW -> DONE.
var statusOrder = map[Status]int{
	StatusBacklog:    0,
	StatusSelected:   1,
	StatusInProgress: 2,
	StatusInReview:   3,
	StatusDone:       4,
}

// WorkflowStates lists the workflow states in progression order.
var WorkflowStates = []Status{
	StatusBacklog,
	StatusSelected,
	StatusInProgress,
	StatusInReview,
	StatusDone,
}

// CanTransition reports whether a user-requested status change is legal:
// exactly one step forward, or any number of steps backward. Identity
// transitions are rejected. Sprint lifecycle actions move issues directly
// and do not go through this check.
func CanTransition(from, to Status) bool {
	fi, ok := statusOrder[from]
	if !ok {
		return false
	}
	ti, ok := statusOrder[to]
	if !ok {
		return false
	}
	if ti == fi {
		return false
	}
	if ti < fi {
		return true
	}
	return ti == fi+1
}
