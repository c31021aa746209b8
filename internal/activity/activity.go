// Package activity is the append-only activity log. Nearly every
// mutation in the system appends a record here; records are never
// updated, and only the owning user may delete one.
package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
	"github.com/roach88/crewdeck/internal/store"
)

// Entry is the input to Append. UserID is the actor the activity is
// attributed to - not necessarily the authenticated caller, since some
// mutations log activity for another user (e.g. a new assignee).
type Entry struct {
	UserID      string
	ActionType  string
	TargetID    string
	TargetType  string
	Description string
	Metadata    map[string]any
}

// Writer appends and reads activity records.
type Writer struct {
	store *store.Store
}

// NewWriter creates a Writer over the given store.
func NewWriter(s *store.Store) *Writer {
	return &Writer{store: s}
}

// Append writes one activity record and returns its id. Fire-and-forget
// from the caller's perspective: there is no retry, a store failure
// propagates like any other store failure.
func (w *Writer) Append(ctx context.Context, e Entry) (string, error) {
	if e.UserID == "" {
		return "", fault.Validation("activity requires a userId")
	}
	if e.ActionType == "" {
		return "", fault.Validation("activity requires an actionType")
	}

	fields := map[string]any{
		"userId":      e.UserID,
		"actionType":  e.ActionType,
		"description": e.Description,
	}
	if e.TargetID != "" {
		fields["targetId"] = e.TargetID
	}
	if e.TargetType != "" {
		fields["targetType"] = e.TargetType
	}
	if len(e.Metadata) > 0 {
		fields["metadata"] = e.Metadata
	}

	id, err := w.store.Insert(ctx, entity.CollActivities, fields)
	if err != nil {
		return "", fmt.Errorf("append activity: %w", err)
	}

	slog.Debug("activity appended",
		"activity_id", id,
		"action_type", e.ActionType,
		"user_id", e.UserID,
		"target_id", e.TargetID,
	)

	return id, nil
}

// Delete removes an activity record. Only the owning user may delete;
// anyone else gets an unauthorized fault. There is no update surface at
// all - records are immutable once appended.
func (w *Writer) Delete(ctx context.Context, actorID, activityID string) error {
	doc, err := w.store.Get(ctx, entity.CollActivities, activityID)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}

	var rec entity.ActivityRecord
	if err := entity.Decode(doc, &rec); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if rec.UserID != actorID {
		return fault.Unauthorized("only the owning user may delete an activity")
	}

	if err := w.store.Delete(ctx, entity.CollActivities, activityID); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}

// ListByTarget returns activities for one target, newest first.
func (w *Writer) ListByTarget(ctx context.Context, targetID string) ([]entity.ActivityRecord, error) {
	docs, err := w.store.Find(ctx, entity.CollActivities, "targetId", targetID)
	if err != nil {
		return nil, fmt.Errorf("list activities by target: %w", err)
	}
	return decodeNewestFirst(docs)
}

// ListByUser returns activities attributed to one user, newest first.
func (w *Writer) ListByUser(ctx context.Context, userID string) ([]entity.ActivityRecord, error) {
	docs, err := w.store.Find(ctx, entity.CollActivities, "userId", userID)
	if err != nil {
		return nil, fmt.Errorf("list activities by user: %w", err)
	}
	return decodeNewestFirst(docs)
}

// decodeNewestFirst decodes store documents (insertion order) and
// reverses them so the most recent record comes first.
func decodeNewestFirst(docs []store.Document) ([]entity.ActivityRecord, error) {
	recs := make([]entity.ActivityRecord, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- {
		var rec entity.ActivityRecord
		if err := entity.Decode(docs[i], &rec); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
