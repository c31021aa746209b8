// Package roster carries the multi-tenant admin surface around the task
// core: companies, users, teams, and project records. Project edits never
// touch the denormalized task counters; those belong to the task
// mutations exclusively.
package roster

import (
	"context"
	"fmt"

	"github.com/roach88/crewdeck/internal/activity"
	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
	"github.com/roach88/crewdeck/internal/identity"
	"github.com/roach88/crewdeck/internal/store"
)

// Service carries admin mutations. Every mutation resolves the actor and
// logs an activity record.
type Service struct {
	store    *store.Store
	activity *activity.Writer
	resolver identity.Resolver
}

// New returns a Service over the given store.
func New(st *store.Store, w *activity.Writer, r identity.Resolver) *Service {
	return &Service{store: st, activity: w, resolver: r}
}

// CreateCompany creates a new tenant root.
func (s *Service) CreateCompany(ctx context.Context, name string) (string, error) {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fault.Validation("company name must not be empty")
	}

	id, err := s.store.Insert(ctx, entity.CollCompanies, map[string]any{
		"name":      name,
		"createdBy": actor,
	})
	if err != nil {
		return "", fmt.Errorf("create company: %w", err)
	}

	if _, err := s.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionCreatedCompany,
		TargetID:    id,
		TargetType:  "company",
		Description: fmt.Sprintf("Created company %q", name),
	}); err != nil {
		return "", err
	}
	return id, nil
}

// CreateUser adds a user to a company.
func (s *Service) CreateUser(ctx context.Context, companyID, name, email, role string) (string, error) {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fault.Validation("user name must not be empty")
	}
	if _, err := s.store.Get(ctx, entity.CollCompanies, companyID); err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	id, err := s.store.Insert(ctx, entity.CollUsers, map[string]any{
		"companyId": companyID,
		"name":      name,
		"email":     email,
		"role":      role,
	})
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	if _, err := s.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionCreatedUser,
		TargetID:    id,
		TargetType:  "user",
		Description: fmt.Sprintf("Created user %q", name),
		Metadata:    map[string]any{"companyId": companyID},
	}); err != nil {
		return "", err
	}
	return id, nil
}

// EnsureMember verifies that a user belongs to a company. Returns
// Unauthorized when the user exists but belongs to a different company,
// NotFound when the user does not exist at all.
func (s *Service) EnsureMember(ctx context.Context, companyID, userID string) error {
	doc, err := s.store.Get(ctx, entity.CollUsers, userID)
	if err != nil {
		return err
	}
	var user entity.User
	if err := entity.Decode(doc, &user); err != nil {
		return fmt.Errorf("ensure member: %w", err)
	}
	if user.CompanyID != companyID {
		return fault.Unauthorized(fmt.Sprintf("user %s is not a member of company %s", userID, companyID))
	}
	return nil
}
