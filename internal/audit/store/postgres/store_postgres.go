package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"provena/internal/audit"
	id "provena/pkg/domain"
	"provena/pkg/platform/sentinel"
	"provena/pkg/platform/tx"
)

// Store implements audit.Store on PostgreSQL. IDs are assigned inside the
// insert statement as MAX(id)+1 rather than by a sequence: sequences can leave
// gaps on rollback, and the log's contract is a dense sequence starting at 1.
// Concurrent appenders are serialized by a transaction-scoped advisory lock,
// so two inserts never read the same MAX.
type Store struct {
	db *sql.DB
}

// appendLockID keys the advisory lock serializing ID assignment. Arbitrary
// but must not collide with other advisory locks on the same database.
const appendLockID int64 = 0x70726F76656E61

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the audit_entries table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_entries (
			id              BIGINT PRIMARY KEY,
			actor           UUID NOT NULL,
			action          TEXT NOT NULL,
			subject_item_id UUID NOT NULL,
			ts              TIMESTAMPTZ NOT NULL,
			payload         BYTEA
		)
	`)
	if err != nil {
		return fmt.Errorf("create audit_entries table: %w", err)
	}
	return nil
}

// Append joins an ambient transaction when the context carries one; otherwise
// it opens its own so the advisory lock releases on commit.
func (s *Store) Append(ctx context.Context, entry audit.Entry) (id.AuditEntryID, error) {
	if t, ok := tx.From(ctx); ok {
		return s.appendIn(ctx, t, entry)
	}

	t, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append transaction: %w", err)
	}
	entryID, err := s.appendIn(ctx, t, entry)
	if err != nil {
		_ = t.Rollback()
		return 0, err
	}
	if err := t.Commit(); err != nil {
		return 0, fmt.Errorf("commit audit entry: %w", err)
	}
	return entryID, nil
}

func (s *Store) appendIn(ctx context.Context, t *sql.Tx, entry audit.Entry) (id.AuditEntryID, error) {
	if _, err := t.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockID); err != nil {
		return 0, fmt.Errorf("acquire append lock: %w", err)
	}

	var entryID uint64
	err := t.QueryRowContext(ctx, `
		INSERT INTO audit_entries (id, actor, action, subject_item_id, ts, payload)
		SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3, $4, $5 FROM audit_entries
		RETURNING id
	`,
		uuid.UUID(entry.Actor),
		entry.Action,
		uuid.UUID(entry.SubjectItemID),
		entry.Timestamp,
		entry.Payload,
	).Scan(&entryID)
	if err != nil {
		return 0, fmt.Errorf("insert audit entry: %w", err)
	}
	return id.AuditEntryID(entryID), nil
}

func (s *Store) Get(ctx context.Context, entryID id.AuditEntryID) (audit.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, actor, action, subject_item_id, ts, payload
		FROM audit_entries WHERE id = $1
	`, uint64(entryID))

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return audit.Entry{}, sentinel.ErrNotFound
		}
		return audit.Entry{}, fmt.Errorf("get audit entry: %w", err)
	}
	return entry, nil
}

func (s *Store) Range(ctx context.Context, startID, endID id.AuditEntryID) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, action, subject_item_id, ts, payload
		FROM audit_entries WHERE id BETWEEN $1 AND $2 ORDER BY id
	`, uint64(startID), uint64(endID))
	if err != nil {
		return nil, fmt.Errorf("range audit entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (s *Store) Count(ctx context.Context) (uint64, error) {
	var count uint64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}

func (s *Store) ListByActor(ctx context.Context, actor id.PrincipalID) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, action, subject_item_id, ts, payload
		FROM audit_entries WHERE actor = $1 ORDER BY id
	`, uuid.UUID(actor))
	if err != nil {
		return nil, fmt.Errorf("list audit entries by actor: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (audit.Entry, error) {
	var (
		entryID uint64
		actor   uuid.UUID
		action  string
		item    uuid.UUID
		ts      time.Time
		payload []byte
	)
	if err := row.Scan(&entryID, &actor, &action, &item, &ts, &payload); err != nil {
		return audit.Entry{}, err
	}
	return audit.Entry{
		ID:            id.AuditEntryID(entryID),
		Actor:         id.PrincipalID(actor),
		Action:        action,
		SubjectItemID: id.ItemID(item),
		Timestamp:     ts,
		Payload:       payload,
	}, nil
}

func collectEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var out []audit.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}
