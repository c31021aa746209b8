package entity

import (
	"encoding/json"
	"fmt"
)

// Collection names in the document store. Every document type lives in
// exactly one collection; cross-references are plain string ids.
const (
	CollCompanies  = "companies"
	CollUsers      = "users"
	CollTeams      = "teams"
	CollProjects   = "projects"
	CollTasks      = "tasks"
	CollSubtasks   = "subtasks"
	CollComments   = "comments"
	CollActivities = "activities"
)

// Company is the tenant root. Users, teams, and projects all hang off a
// company id.
type Company struct {
	ID           string `json:"_id,omitempty"`
	CreationTime int64  `json:"_creationTime,omitempty"`
	Name         string `json:"name"`
	CreatedBy    string `json:"createdBy,omitempty"`
}

// User is a member of a company.
type User struct {
	ID           string `json:"_id,omitempty"`
	CreationTime int64  `json:"_creationTime,omitempty"`
	CompanyID    string `json:"companyId"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
}

// Team groups users within a company.
type Team struct {
	ID           string   `json:"_id,omitempty"`
	CreationTime int64    `json:"_creationTime,omitempty"`
	CompanyID    string   `json:"companyId"`
	Name         string   `json:"name"`
	MemberIDs    []string `json:"memberIds,omitempty"`
	CreatedBy    string   `json:"createdBy,omitempty"`
}

// Project carries denormalized task counters. TotalTasks, CompletedTasks,
// and Progress are owned by the task mutations - project edits never
// touch them.
type Project struct {
	ID             string   `json:"_id,omitempty"`
	CreationTime   int64    `json:"_creationTime,omitempty"`
	CompanyID      string   `json:"companyId"`
	TeamID         string   `json:"teamId,omitempty"`
	ParentID       string   `json:"parentId,omitempty"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority,omitempty"`
	HealthStatus   string   `json:"healthStatus,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Category       string   `json:"category,omitempty"`
	StartDate      int64    `json:"startDate,omitempty"`
	EndDate        int64    `json:"endDate,omitempty"`
	Progress       int      `json:"progress"`
	TotalTasks     int      `json:"totalTasks"`
	CompletedTasks int      `json:"completedTasks"`
	CreatedBy      string   `json:"createdBy,omitempty"`
	UpdatedBy      string   `json:"updatedBy,omitempty"`
	CompletedAt    int64    `json:"completedAt,omitempty"`
}

// Task belongs to exactly one project; ProjectID is immutable after
// creation. Progress is derived from the task's subtasks.
type Task struct {
	ID           string `json:"_id,omitempty"`
	CreationTime int64  `json:"_creationTime,omitempty"`
	ProjectID    string `json:"projectId"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	AssigneeID   string `json:"assigneeId,omitempty"`
	Status       string `json:"status"`
	Priority     string `json:"priority,omitempty"`
	DueDate      int64  `json:"dueDate,omitempty"`
	Progress     int    `json:"progress"`
	CreatedBy    string `json:"createdBy,omitempty"`
	CompletedAt  int64  `json:"completedAt,omitempty"`
	CompletedBy  string `json:"completedBy,omitempty"`
}

// Subtask belongs to exactly one task; TaskID is immutable after creation.
type Subtask struct {
	ID           string  `json:"_id,omitempty"`
	CreationTime int64   `json:"_creationTime,omitempty"`
	TaskID       string  `json:"taskId"`
	Label        string  `json:"label"`
	Status       string  `json:"status"`
	Position     float64 `json:"position"`
	CreatedAt    int64   `json:"createdAt,omitempty"`
	CreatedBy    string  `json:"createdBy,omitempty"`
	CompletedAt  int64   `json:"completedAt,omitempty"`
	CompletedBy  string  `json:"completedBy,omitempty"`
}

// Comment targets any entity by opaque id + type discriminator. Replies
// are independent documents referencing ParentID. Reactions map a kind to
// a deduplicated set of user ids; a kind with no reactors has no key.
type Comment struct {
	ID               string              `json:"_id,omitempty"`
	CreationTime     int64               `json:"_creationTime,omitempty"`
	AuthorID         string              `json:"authorId"`
	TargetID         string              `json:"targetId"`
	TargetType       string              `json:"targetType"`
	Body             string              `json:"body"`
	ParentID         string              `json:"parentId,omitempty"`
	MentionedUserIDs []string            `json:"mentionedUserIds,omitempty"`
	Reactions        map[string][]string `json:"reactions,omitempty"`
	CreatedAt        int64               `json:"createdAt,omitempty"`
	UpdatedAt        int64               `json:"updatedAt,omitempty"`
}

// ActivityRecord is append-only. UserID is the actor the activity is
// attributed to, which is not always the authenticated caller.
type ActivityRecord struct {
	ID           string         `json:"_id,omitempty"`
	CreationTime int64          `json:"_creationTime,omitempty"`
	UserID       string         `json:"userId"`
	ActionType   string         `json:"actionType"`
	TargetID     string         `json:"targetId,omitempty"`
	TargetType   string         `json:"targetType,omitempty"`
	Description  string         `json:"description"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Decode converts a raw store document into a typed entity via its JSON
// tags. The store hands back map[string]any; this is the one place the
// shape of those maps is interpreted.
func Decode(doc map[string]any, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Fields converts a typed entity into the field map the store persists.
// The _id and _creationTime fields are stripped - the store owns both.
func Fields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	delete(fields, "_id")
	delete(fields, "_creationTime")
	return fields, nil
}
