package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrUniqueViolation = "23505"

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. Email uniqueness rides on the
// accounts_email_key unique index; the failure counter update is one SQL
// statement so concurrent failed logins cannot lose increments.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, role, consent_given, consent_at,
		       failed_login_count, account_warning, created_at, updated_at
		from accounts
		where email = $1
	`, email)
	var a Account
	if err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.ConsentGiven,
		&a.ConsentAt, &a.FailedLoginCount, &a.AccountWarning, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, role, consent_given, consent_at,
		       failed_login_count, account_warning, created_at, updated_at
		from accounts
		where id = $1
	`, id)
	var a Account
	if err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.ConsentGiven,
		&a.ConsentAt, &a.FailedLoginCount, &a.AccountWarning, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *PGStore) Insert(ctx context.Context, account *Account) error {
	_, err := s.db.ExecContext(ctx, `
		insert into accounts(id, name, email, password_hash, role, consent_given, consent_at,
		                     failed_login_count, account_warning, created_at, updated_at)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		account.ID, account.Name, account.Email, account.PasswordHash, string(account.Role),
		account.ConsentGiven, account.ConsentAt, account.FailedLoginCount,
		account.AccountWarning, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *PGStore) ApplyLoginOutcome(ctx context.Context, accountID string, outcome LoginOutcome) (LoginState, error) {
	var row *sql.Row
	switch outcome {
	case LoginSucceeded:
		row = s.db.QueryRowContext(ctx, `
			update accounts
			set failed_login_count = 0, updated_at = now()
			where id = $1
			returning failed_login_count, account_warning
		`, accountID)
	case LoginFailed:
		row = s.db.QueryRowContext(ctx, `
			update accounts
			set failed_login_count = failed_login_count + 1,
			    account_warning = account_warning or (failed_login_count + 1 >= $2),
			    updated_at = now()
			where id = $1
			returning failed_login_count, account_warning
		`, accountID, LockoutThreshold)
	default:
		return LoginState{}, errors.New("auth: unknown login outcome")
	}

	var state LoginState
	if err := row.Scan(&state.FailedLoginCount, &state.AccountWarning); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LoginState{}, ErrNotFound
		}
		return LoginState{}, err
	}
	return state, nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
