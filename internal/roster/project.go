package roster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/crewdeck/internal/activity"
	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
	"github.com/roach88/crewdeck/internal/store"
)

// CreateProjectInput describes a new project. Counters start at zero and
// are owned by the task mutations from then on.
type CreateProjectInput struct {
	CompanyID   string
	TeamID      string
	ParentID    string
	Name        string
	Description string
	Status      string
	Priority    string
	Tags        []string
	Category    string
	StartDate   int64
	EndDate     int64
}

// CreateProject inserts a project with zeroed counters.
func (s *Service) CreateProject(ctx context.Context, input CreateProjectInput) (string, error) {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return "", err
	}
	if input.Name == "" {
		return "", fault.Validation("project name must not be empty")
	}
	status := input.Status
	if status == "" {
		status = entity.StatusPlanned
	}
	if !entity.ValidProjectStatus(status) {
		return "", fault.Validation(fmt.Sprintf("invalid project status %q", status))
	}
	if _, err := s.store.Get(ctx, entity.CollCompanies, input.CompanyID); err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}

	fields := map[string]any{
		"companyId":      input.CompanyID,
		"name":           input.Name,
		"status":         status,
		"progress":       0,
		"totalTasks":     0,
		"completedTasks": 0,
		"createdBy":      actor,
	}
	if input.TeamID != "" {
		fields["teamId"] = input.TeamID
	}
	if input.ParentID != "" {
		fields["parentId"] = input.ParentID
	}
	if input.Description != "" {
		fields["description"] = input.Description
	}
	if input.Priority != "" {
		fields["priority"] = input.Priority
	}
	if len(input.Tags) > 0 {
		fields["tags"] = input.Tags
	}
	if input.Category != "" {
		fields["category"] = input.Category
	}
	if input.StartDate != 0 {
		fields["startDate"] = input.StartDate
	}
	if input.EndDate != 0 {
		fields["endDate"] = input.EndDate
	}

	id, err := s.store.Insert(ctx, entity.CollProjects, fields)
	if err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}

	if _, err := s.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionCreatedProject,
		TargetID:    id,
		TargetType:  "project",
		Description: fmt.Sprintf("Created project %q", input.Name),
		Metadata:    map[string]any{"companyId": input.CompanyID},
	}); err != nil {
		return "", err
	}

	slog.Info("project created", "project_id", id, "company_id", input.CompanyID, "actor", actor)
	return id, nil
}

// ProjectPatch holds optional project field updates. Nil means leave
// unchanged. The counter fields are deliberately absent.
type ProjectPatch struct {
	Name         *string
	Description  *string
	Status       *string
	Priority     *string
	HealthStatus *string
	Tags         *[]string
	Category     *string
	StartDate    *int64
	EndDate      *int64
}

// UpdateProject patches project fields. totalTasks, completedTasks, and
// progress are never written here regardless of input; only the task
// mutations maintain them.
func (s *Service) UpdateProject(ctx context.Context, projectID string, p ProjectPatch) error {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if p.Status != nil && !entity.ValidProjectStatus(*p.Status) {
		return fault.Validation(fmt.Sprintf("invalid project status %q", *p.Status))
	}

	doc, err := s.store.Get(ctx, entity.CollProjects, projectID)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	var project entity.Project
	if err := entity.Decode(doc, &project); err != nil {
		return fmt.Errorf("update project: %w", err)
	}

	patch := map[string]any{}
	var changed []string
	if p.Name != nil && *p.Name != project.Name {
		if *p.Name == "" {
			return fault.Validation("project name must not be empty")
		}
		patch["name"] = *p.Name
		changed = append(changed, "name")
	}
	if p.Description != nil && *p.Description != project.Description {
		patch["description"] = *p.Description
		changed = append(changed, "description")
	}
	if p.Status != nil && *p.Status != project.Status {
		patch["status"] = *p.Status
		changed = append(changed, "status")
		if *p.Status == entity.StatusCompleted {
			patch["completedAt"] = s.store.Now().UnixMilli()
		} else if project.Status == entity.StatusCompleted {
			patch["completedAt"] = store.Undefined
		}
	}
	if p.Priority != nil && *p.Priority != project.Priority {
		patch["priority"] = *p.Priority
		changed = append(changed, "priority")
	}
	if p.HealthStatus != nil && *p.HealthStatus != project.HealthStatus {
		patch["healthStatus"] = *p.HealthStatus
		changed = append(changed, "healthStatus")
	}
	if p.Tags != nil {
		patch["tags"] = *p.Tags
		changed = append(changed, "tags")
	}
	if p.Category != nil && *p.Category != project.Category {
		patch["category"] = *p.Category
		changed = append(changed, "category")
	}
	if p.StartDate != nil && *p.StartDate != project.StartDate {
		patch["startDate"] = *p.StartDate
		changed = append(changed, "startDate")
	}
	if p.EndDate != nil && *p.EndDate != project.EndDate {
		patch["endDate"] = *p.EndDate
		changed = append(changed, "endDate")
	}
	if len(patch) == 0 {
		return nil
	}
	patch["updatedBy"] = actor

	if err := s.store.Patch(ctx, entity.CollProjects, projectID, patch); err != nil {
		return fmt.Errorf("update project: %w", err)
	}

	if _, err := s.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionUpdatedProject,
		TargetID:    projectID,
		TargetType:  "project",
		Description: fmt.Sprintf("Updated project %q (%s)", project.Name, strings.Join(changed, ", ")),
	}); err != nil {
		return err
	}
	return nil
}

// DeleteProject removes the project document only. Tasks are not
// cascade-deleted: orphaned tasks remain queryable and deletable, and the
// task mutations tolerate the missing project.
func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	doc, err := s.store.Get(ctx, entity.CollProjects, projectID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	var project entity.Project
	if err := entity.Decode(doc, &project); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	if err := s.store.Delete(ctx, entity.CollProjects, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	if _, err := s.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionDeletedProject,
		TargetID:    projectID,
		TargetType:  "project",
		Description: fmt.Sprintf("Deleted project %q", project.Name),
		Metadata:    map[string]any{"totalTasks": project.TotalTasks},
	}); err != nil {
		return err
	}

	slog.Info("project deleted", "project_id", projectID, "actor", actor)
	return nil
}
