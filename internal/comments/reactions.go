package comments

import (
	"context"
	"fmt"

	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
	"github.com/roach88/crewdeck/internal/store"
)

// AddReaction adds the actor to a comment's reactor set for the given
// kind. Adding a reaction the actor already holds is a no-op.
func (s *Service) AddReaction(ctx context.Context, commentID, kind string) error {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if !entity.ValidReactionKind(kind) {
		return fault.Validation(fmt.Sprintf("invalid reaction kind %q", kind))
	}

	comment, err := s.getComment(ctx, commentID)
	if err != nil {
		return fmt.Errorf("add reaction: %w", err)
	}

	for _, uid := range comment.Reactions[kind] {
		if uid == actor {
			return nil
		}
	}

	reactions := comment.Reactions
	if reactions == nil {
		reactions = map[string][]string{}
	}
	reactions[kind] = append(reactions[kind], actor)

	if err := s.store.Patch(ctx, entity.CollComments, commentID, map[string]any{
		"reactions": reactions,
	}); err != nil {
		return fmt.Errorf("add reaction: %w", err)
	}
	return nil
}

// RemoveReaction removes the actor from a comment's reactor set for the
// given kind. When the actor was the last reactor the kind's key is
// dropped entirely, so an untouched kind and a fully retracted kind look
// the same. Removing a reaction the actor does not hold is a no-op.
func (s *Service) RemoveReaction(ctx context.Context, commentID, kind string) error {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if !entity.ValidReactionKind(kind) {
		return fault.Validation(fmt.Sprintf("invalid reaction kind %q", kind))
	}

	comment, err := s.getComment(ctx, commentID)
	if err != nil {
		return fmt.Errorf("remove reaction: %w", err)
	}

	current, ok := comment.Reactions[kind]
	if !ok {
		return nil
	}
	remaining := make([]string, 0, len(current))
	for _, uid := range current {
		if uid != actor {
			remaining = append(remaining, uid)
		}
	}
	if len(remaining) == len(current) {
		return nil
	}

	reactions := comment.Reactions
	if len(remaining) == 0 {
		delete(reactions, kind)
	} else {
		reactions[kind] = remaining
	}

	patch := map[string]any{"reactions": reactions}
	if len(reactions) == 0 {
		patch["reactions"] = store.Undefined
	}
	if err := s.store.Patch(ctx, entity.CollComments, commentID, patch); err != nil {
		return fmt.Errorf("remove reaction: %w", err)
	}
	return nil
}
