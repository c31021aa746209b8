// Package comments implements threaded comments with per-user reaction
// sets and @mention extraction. Comments target any entity by opaque id
// plus a type discriminator; replies are independent documents in the
// same collection referencing their parent by id, so threads never nest
// in storage.
package comments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/crewdeck/internal/activity"
	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
	"github.com/roach88/crewdeck/internal/identity"
	"github.com/roach88/crewdeck/internal/store"
)

// Service carries comment mutations. Authorization is author-based:
// anyone authenticated may comment or react, but only a comment's author
// may edit or delete it.
type Service struct {
	store    *store.Store
	activity *activity.Writer
	resolver identity.Resolver
	clock    store.Clock
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(c store.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// New returns a Service over the given store.
func New(st *store.Store, w *activity.Writer, r identity.Resolver, opts ...Option) *Service {
	s := &Service{store: st, activity: w, resolver: r, clock: store.SystemClock{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() int64 { return s.clock.Now().UnixMilli() }

// CreateInput describes a new comment. MentionedUserIDs supplements the
// mentions parsed out of Body; the stored set is the deduplicated union
// of both.
type CreateInput struct {
	TargetID         string
	TargetType       string
	Body             string
	ParentID         string
	MentionedUserIDs []string
}

// Create inserts a comment and logs a "Commented" activity against the
// target. When ParentID is set the parent must exist; the reply is still
// stored as a top-level document.
func (s *Service) Create(ctx context.Context, input CreateInput) (string, error) {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return "", err
	}

	if input.TargetID == "" || input.TargetType == "" {
		return "", fault.Validation("comment requires a target")
	}
	if input.Body == "" {
		return "", fault.Validation("comment body must not be empty")
	}
	if input.ParentID != "" {
		if _, err := s.getComment(ctx, input.ParentID); err != nil {
			return "", fmt.Errorf("create comment: %w", err)
		}
	}

	mentions, err := s.resolveMentions(ctx, input.Body, input.MentionedUserIDs)
	if err != nil {
		return "", fmt.Errorf("create comment: %w", err)
	}

	fields := map[string]any{
		"authorId":   actor,
		"targetId":   input.TargetID,
		"targetType": input.TargetType,
		"body":       input.Body,
		"createdAt":  s.now(),
	}
	if input.ParentID != "" {
		fields["parentId"] = input.ParentID
	}
	if len(mentions) > 0 {
		fields["mentionedUserIds"] = mentions
	}

	id, err := s.store.Insert(ctx, entity.CollComments, fields)
	if err != nil {
		return "", fmt.Errorf("create comment: %w", err)
	}

	if _, err := s.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionCommented,
		TargetID:    input.TargetID,
		TargetType:  input.TargetType,
		Description: "Commented",
		Metadata:    map[string]any{"commentId": id},
	}); err != nil {
		return "", err
	}

	slog.Debug("comment created",
		"comment_id", id,
		"target_id", input.TargetID,
		"mentions", len(mentions),
		"actor", actor,
	)
	return id, nil
}

// Update replaces a comment's body, recomputes its mention set the same
// way Create does, and stamps updatedAt. Only the author may update.
func (s *Service) Update(ctx context.Context, id, body string, explicitMentions []string) error {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if body == "" {
		return fault.Validation("comment body must not be empty")
	}

	comment, err := s.getComment(ctx, id)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if comment.AuthorID != actor {
		return fault.Unauthorized("only the author may edit a comment")
	}

	mentions, err := s.resolveMentions(ctx, body, explicitMentions)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}

	patch := map[string]any{
		"body":      body,
		"updatedAt": s.now(),
	}
	if len(mentions) > 0 {
		patch["mentionedUserIds"] = mentions
	} else {
		patch["mentionedUserIds"] = store.Undefined
	}

	if err := s.store.Patch(ctx, entity.CollComments, id, patch); err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

// Delete removes a comment. Only the author may delete. Replies are not
// cascaded; they keep their dangling parentId, which the read side
// tolerates.
func (s *Service) Delete(ctx context.Context, id string) error {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	comment, err := s.getComment(ctx, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if comment.AuthorID != actor {
		return fault.Unauthorized("only the author may delete a comment")
	}

	if err := s.store.Delete(ctx, entity.CollComments, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// ListByTarget returns all comments on a target in creation order.
func (s *Service) ListByTarget(ctx context.Context, targetID string) ([]entity.Comment, error) {
	docs, err := s.store.Find(ctx, entity.CollComments, "targetId", targetID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	out := make([]entity.Comment, 0, len(docs))
	for _, doc := range docs {
		var c entity.Comment
		if err := entity.Decode(doc, &c); err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) getComment(ctx context.Context, id string) (entity.Comment, error) {
	var c entity.Comment
	doc, err := s.store.Get(ctx, entity.CollComments, id)
	if err != nil {
		return c, err
	}
	if err := entity.Decode(doc, &c); err != nil {
		return c, fmt.Errorf("decode comment %s: %w", id, err)
	}
	return c, nil
}
