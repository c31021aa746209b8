package activity

// Action type labels. ActionType is a free-form string in the record;
// these are the labels the built-in mutations emit.
const (
	ActionCreatedTask     = "Created Task"
	ActionUpdatedTask     = "Updated Task"
	ActionDeletedTask     = "Deleted Task"
	ActionCreatedSubtask  = "Created Subtask"
	ActionUpdatedSubtask  = "Updated Subtask"
	ActionSubtaskDeleted  = "Subtask Deleted"
	ActionAssignedToTask  = "Assigned to Task"
	ActionRemovedFromTask = "Removed from Task"

	ActionCreatedProject = "Created Project"
	ActionUpdatedProject = "Updated Project"
	ActionDeletedProject = "Deleted Project"

	ActionCommented       = "Commented"
	ActionCreatedUser     = "Created User"
	ActionCreatedTeam     = "Created Team"
	ActionJoinedTeam      = "Joined Team"
	ActionLeftTeam        = "Left Team"
	ActionCreatedCompany  = "Created Company"
)
