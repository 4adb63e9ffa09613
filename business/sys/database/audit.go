package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ecoledger/ecoledger/business/core/audit"
)

// AuditStore provides audit trail persistence over SQLite. This implements
// the audit.Storer interface.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore constructs an AuditStore for use.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{
		db: db,
	}
}

// Create inserts the specified event into the trail.
func (as *AuditStore) Create(ctx context.Context, evt audit.Event) error {
	const q = `
	INSERT INTO audit_events
		(audit_id, actor, action, entity, entity_id, description, ip_address, created_at)
	VALUES
		(?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := as.db.ExecContext(ctx, q,
		evt.ID, evt.Actor, evt.Action, evt.Entity, evt.EntityID,
		evt.Description, evt.IPAddress, evt.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("execcontext: %w", err)
	}

	return nil
}

// Query returns a page of the trail, newest first. An empty actor selects
// events across all actors.
func (as *AuditStore) Query(ctx context.Context, actor string, pageNumber int, rowsPerPage int) ([]audit.Event, error) {
	const q = `
	SELECT audit_id, actor, action, entity, entity_id, description, ip_address, created_at
	FROM audit_events
	WHERE (?1 = '' OR actor = ?1)
	ORDER BY created_at DESC, audit_id
	LIMIT ?2 OFFSET ?3`

	rows, err := as.db.QueryContext(ctx, q, actor, rowsPerPage, (pageNumber-1)*rowsPerPage)
	if err != nil {
		return nil, fmt.Errorf("querycontext: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var evt audit.Event
		var created int64

		err := rows.Scan(&evt.ID, &evt.Actor, &evt.Action, &evt.Entity, &evt.EntityID,
			&evt.Description, &evt.IPAddress, &created)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		evt.CreatedAt = time.UnixMilli(created).UTC()
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return events, nil
}

// Count returns the number of recorded events, optionally for one actor.
func (as *AuditStore) Count(ctx context.Context, actor string) (int, error) {
	const q = `
	SELECT COUNT(*)
	FROM audit_events
	WHERE (?1 = '' OR actor = ?1)`

	var count int
	if err := as.db.QueryRowContext(ctx, q, actor).Scan(&count); err != nil {
		return 0, fmt.Errorf("queryrowcontext: %w", err)
	}

	return count, nil
}
