package audit

import (
	"context"
	"database/sql"

	"gocredo.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. The audit_log table is
// append-only; nothing in the service updates or deletes rows.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	var accountID any
	if entry.AccountID != "" {
		accountID = entry.AccountID
	}
	_, err := s.db.ExecContext(ctx,
		`insert into audit_log(id, account_id, action, ip, user_agent, created_at)
		 values($1,$2,$3,$4,$5,$6)`,
		entry.ID, accountID, entry.Action, entry.IP, entry.UserAgent, entry.CreatedAt,
	)
	return err
}
