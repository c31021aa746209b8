package roster

import (
	"context"
	"fmt"

	"github.com/roach88/crewdeck/internal/activity"
	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
)

// CreateTeam creates a team within a company. Every listed member must
// already belong to the company.
func (s *Service) CreateTeam(ctx context.Context, companyID, name string, memberIDs []string) (string, error) {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fault.Validation("team name must not be empty")
	}
	if _, err := s.store.Get(ctx, entity.CollCompanies, companyID); err != nil {
		return "", fmt.Errorf("create team: %w", err)
	}
	members := dedup(memberIDs)
	for _, uid := range members {
		if err := s.EnsureMember(ctx, companyID, uid); err != nil {
			return "", fmt.Errorf("create team: %w", err)
		}
	}

	id, err := s.store.Insert(ctx, entity.CollTeams, map[string]any{
		"companyId": companyID,
		"name":      name,
		"memberIds": members,
		"createdBy": actor,
	})
	if err != nil {
		return "", fmt.Errorf("create team: %w", err)
	}

	if _, err := s.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionCreatedTeam,
		TargetID:    id,
		TargetType:  "team",
		Description: fmt.Sprintf("Created team %q", name),
		Metadata:    map[string]any{"companyId": companyID, "members": len(members)},
	}); err != nil {
		return "", err
	}
	return id, nil
}

// AddTeamMember adds a user to a team. Idempotent: adding an existing
// member is a no-op and logs nothing.
func (s *Service) AddTeamMember(ctx context.Context, teamID, userID string) error {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("add team member: %w", err)
	}
	if err := s.EnsureMember(ctx, team.CompanyID, userID); err != nil {
		return fmt.Errorf("add team member: %w", err)
	}
	for _, uid := range team.MemberIDs {
		if uid == userID {
			return nil
		}
	}

	if err := s.store.Patch(ctx, entity.CollTeams, teamID, map[string]any{
		"memberIds": append(team.MemberIDs, userID),
	}); err != nil {
		return fmt.Errorf("add team member: %w", err)
	}

	// Attributed to the joining user, not the admin who added them.
	if _, err := s.activity.Append(ctx, activity.Entry{
		UserID:      userID,
		ActionType:  activity.ActionJoinedTeam,
		TargetID:    teamID,
		TargetType:  "team",
		Description: fmt.Sprintf("Joined team %q", team.Name),
		Metadata:    map[string]any{"addedBy": actor},
	}); err != nil {
		return err
	}
	return nil
}

// RemoveTeamMember removes a user from a team. Removing a non-member is
// a no-op.
func (s *Service) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}
	remaining := make([]string, 0, len(team.MemberIDs))
	for _, uid := range team.MemberIDs {
		if uid != userID {
			remaining = append(remaining, uid)
		}
	}
	if len(remaining) == len(team.MemberIDs) {
		return nil
	}

	if err := s.store.Patch(ctx, entity.CollTeams, teamID, map[string]any{
		"memberIds": remaining,
	}); err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}

	if _, err := s.activity.Append(ctx, activity.Entry{
		UserID:      userID,
		ActionType:  activity.ActionLeftTeam,
		TargetID:    teamID,
		TargetType:  "team",
		Description: fmt.Sprintf("Left team %q", team.Name),
		Metadata:    map[string]any{"removedBy": actor},
	}); err != nil {
		return err
	}
	return nil
}

func (s *Service) getTeam(ctx context.Context, id string) (entity.Team, error) {
	var team entity.Team
	doc, err := s.store.Get(ctx, entity.CollTeams, id)
	if err != nil {
		return team, err
	}
	if err := entity.Decode(doc, &team); err != nil {
		return team, fmt.Errorf("decode team %s: %w", id, err)
	}
	return team, nil
}

func dedup(ids []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
