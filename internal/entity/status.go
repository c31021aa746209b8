package entity

// Task and subtask statuses share one enum. Projects use StatusPlanned in
// place of StatusTodo.
const (
	StatusTodo       = "todo"
	StatusPlanned    = "planned"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusOnHold     = "on_hold"
	StatusCanceled   = "canceled"
)

// taskStatuses is the full status set for tasks and subtasks.
var taskStatuses = map[string]bool{
	StatusTodo:       true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusOnHold:     true,
	StatusCanceled:   true,
}

// projectStatuses is the full status set for projects.
var projectStatuses = map[string]bool{
	StatusPlanned:    true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusOnHold:     true,
	StatusCanceled:   true,
}

// ValidTaskStatus reports whether s is a legal task or subtask status.
func ValidTaskStatus(s string) bool {
	return taskStatuses[s]
}

// ValidProjectStatus reports whether s is a legal project status.
func ValidProjectStatus(s string) bool {
	return projectStatuses[s]
}

// Reaction kinds supported on comments.
const (
	ReactionHeart      = "heart"
	ReactionThumbsUp   = "thumbs_up"
	ReactionThumbsDown = "thumbs_down"
)

// ValidReactionKind reports whether k is a supported reaction kind.
func ValidReactionKind(k string) bool {
	switch k {
	case ReactionHeart, ReactionThumbsUp, ReactionThumbsDown:
		return true
	}
	return false
}
