package auth

import "context"

// LoginOutcome tells the store how a login attempt ended.
type LoginOutcome int

const (
	// LoginSucceeded resets the failure counter to zero. The warning flag is
	// left untouched; no code path clears it once set.
	LoginSucceeded LoginOutcome = iota
	// LoginFailed increments the failure counter and raises the warning flag
	// when the post-increment count reaches the lockout threshold.
	LoginFailed
)

// LoginState is the security state of an account after ApplyLoginOutcome.
type LoginState struct {
	FailedLoginCount int
	AccountWarning   bool
}

// Store describes persistence operations required by the credential
// subsystem. Uniqueness of email and the counter update are enforced inside
// the store in a single atomic operation; callers must not emulate either
// with read-modify-write sequences.
type Store interface {
	// FindByEmail returns the account with the given normalized email, or
	// ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// FindByID returns the account with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*Account, error)
	// Insert persists a new account. Returns ErrConflict when the email is
	// already taken; the check and the insert are one atomic operation backed
	// by a unique index.
	Insert(ctx context.Context, account *Account) error
	// ApplyLoginOutcome atomically updates the failure counter and warning
	// flag for the account and returns the post-update state. Returns
	// ErrNotFound for unknown accounts.
	ApplyLoginOutcome(ctx context.Context, accountID string, outcome LoginOutcome) (LoginState, error)
}
