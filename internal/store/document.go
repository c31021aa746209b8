package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/crewdeck/internal/fault"
)

// Document is a raw stored record. The store injects the reserved _id and
// _creationTime fields on read; they never live in the JSON payload.
type Document map[string]any

// Undefined is the patch sentinel that removes a field from a document.
// Patching {"completedAt": store.Undefined} deletes completedAt entirely,
// which is how reopening a task clears its completion stamps.
var Undefined = undefined{}

type undefined struct{}

// reservedFields are owned by the store and rejected in inserts/patches.
var reservedFields = []string{"_id", "_creationTime"}

// Get returns the document with the given id, or a not-found fault.
func (s *Store) Get(ctx context.Context, collection, id string) (Document, error) {
	var data string
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT data, created_at FROM documents WHERE collection = ? AND id = ?
	`, collection, id).Scan(&data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound(singular(collection), id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	return inflate(id, createdAt, data)
}

// Insert stores a new document and returns its generated id.
// The _creationTime field is stamped from the store clock.
func (s *Store) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := checkReserved(fields); err != nil {
		return "", err
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("insert into %s: encode: %w", collection, err)
	}

	id := s.idgen.Generate()
	createdAt := s.clock.Now().UnixMilli()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at) VALUES (?, ?, ?, ?)
	`, collection, id, string(data), createdAt)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}

	return id, nil
}

// Patch merges partial fields into an existing document inside one
// transaction. A field set to Undefined is removed from the document;
// all other fields are replaced wholesale.
func (s *Store) Patch(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := checkReserved(fields); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("patch %s/%s: begin tx: %w", collection, id, err)
	}
	defer tx.Rollback() // No-op if committed

	var data string
	err = tx.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE collection = ? AND id = ?
	`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fault.NotFound(singular(collection), id)
	}
	if err != nil {
		return fmt.Errorf("patch %s/%s: read: %w", collection, id, err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return fmt.Errorf("patch %s/%s: decode: %w", collection, id, err)
	}

	for k, v := range fields {
		if _, remove := v.(undefined); remove {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("patch %s/%s: encode: %w", collection, id, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET data = ? WHERE collection = ? AND id = ?
	`, string(merged), collection, id); err != nil {
		return fmt.Errorf("patch %s/%s: write: %w", collection, id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("patch %s/%s: commit: %w", collection, id, err)
	}
	return nil
}

// Delete removes a document. Deleting a missing document is a not-found
// fault, matching Get/Patch behavior.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = ? AND id = ?
	`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return fault.NotFound(singular(collection), id)
	}
	return nil
}

// Find returns all documents in a collection whose top-level field equals
// value, in insertion order. Backed by the expression indexes in the
// schema for the hot paths.
func (s *Store) Find(ctx context.Context, collection, field string, value any) ([]Document, error) {
	if strings.ContainsAny(field, ".[]$'\"") {
		return nil, fault.Validation("find: field must be a top-level name")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data, created_at FROM documents
		WHERE collection = ? AND json_extract(data, '$.'||?) = ?
		ORDER BY created_at, id
	`, collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", collection, field, err)
	}
	defer rows.Close()

	return collect(rows, collection, field)
}

// All returns every document in a collection, in insertion order.
func (s *Store) All(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data, created_at FROM documents
		WHERE collection = ?
		ORDER BY created_at, id
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("all %s: %w", collection, err)
	}
	defer rows.Close()

	return collect(rows, collection, "")
}

// collect scans id/data/created_at rows into inflated documents.
func collect(rows *sql.Rows, collection, field string) ([]Document, error) {
	var docs []Document
	for rows.Next() {
		var id, data string
		var createdAt int64
		if err := rows.Scan(&id, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc, err := inflate(id, createdAt, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return docs, nil
}

// inflate decodes a stored payload and injects the reserved fields.
func inflate(id string, createdAt int64, data string) (Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	doc["_id"] = id
	doc["_creationTime"] = createdAt
	return doc, nil
}

func checkReserved(fields map[string]any) error {
	for _, r := range reservedFields {
		if _, ok := fields[r]; ok {
			return fault.Validation(r + " is store-owned and cannot be written")
		}
	}
	return nil
}

// singular trims a trailing "s" from a collection name for error messages
// ("tasks" -> "task"). Collection names in this system all pluralize with
// a plain "s".
func singular(collection string) string {
	return strings.TrimSuffix(collection, "s")
}
