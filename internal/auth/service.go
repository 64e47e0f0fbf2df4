package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gocredo.org/internal/audit"
	"gocredo.org/internal/ids"
	"gocredo.org/internal/obs"
)

// Recorder appends security events without affecting the primary flow. The
// audit package's queued recorder satisfies this.
type Recorder interface {
	Record(accountID, action string, origin audit.Origin)
}

// Service orchestrates credential issuance: signup, login, progressive
// lockout signaling, and the audit trail. It holds no global state; the
// store, recorder, and token issuer are injected at construction.
type Service struct {
	store      Store
	recorder   Recorder
	tokens     *TokenIssuer
	bcryptCost int
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithBcryptCost tunes the password hashing work factor.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the authentication service.
func NewService(store Store, recorder Recorder, tokens *TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if recorder == nil {
		return nil, errors.New("auth: audit recorder is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	svc := &Service{
		store:      store,
		recorder:   recorder,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Signup registers a new patient account and issues a session token. Any
// requested role is ignored: public signup always produces a patient.
// Privileged roles go through ProvisionAccount.
func (s *Service) Signup(ctx context.Context, in SignupInput, origin audit.Origin) (Credentials, error) {
	in.Role = RolePatient
	return s.createAccount(ctx, in, origin)
}

// ProvisionAccount creates an account with an explicit role. It backs the
// admin-only provisioning path; the HTTP layer guards access.
func (s *Service) ProvisionAccount(ctx context.Context, in SignupInput, origin audit.Origin) (Credentials, error) {
	if !ValidRole(in.Role) {
		return Credentials{}, fmt.Errorf("%w: unknown role %q", ErrValidation, in.Role)
	}
	return s.createAccount(ctx, in, origin)
}

func (s *Service) createAccount(ctx context.Context, in SignupInput, origin audit.Origin) (Credentials, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return Credentials{}, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}
	if !in.ConsentGiven {
		return Credentials{}, fmt.Errorf("%w: consent is required to create an account", ErrValidation)
	}

	// Best-effort existence check for a friendly conflict response. The
	// store's unique index is the actual enforcement point; two concurrent
	// signups can both pass this check and only one insert will win.
	if _, err := s.store.FindByEmail(ctx, in.Email); err == nil {
		obs.SignupConflicts.Inc()
		return Credentials{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return Credentials{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return Credentials{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := &Account{
		ID:           ids.New(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		ConsentGiven: true,
		ConsentAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, account); err != nil {
		if errors.Is(err, ErrConflict) {
			obs.SignupConflicts.Inc()
			return Credentials{}, ErrConflict
		}
		return Credentials{}, fmt.Errorf("insert account: %w", err)
	}

	s.recorder.Record(account.ID, audit.ActionSignup, origin)

	token, exp, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return Credentials{}, fmt.Errorf("issue token: %w", err)
	}
	return Credentials{Token: token, ExpiresAt: exp, Account: *account}, nil
}

// Login verifies credentials and issues a session token. Every failure cause
// collapses into ErrInvalidCredentials so the endpoint cannot distinguish an
// unknown email from a wrong password. The counter update and the audit
// write are attempted before the error returns, but neither blocks it.
func (s *Service) Login(ctx context.Context, email, password string, origin audit.Origin) (Credentials, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		obs.LoginFailures.Inc()
		return Credentials{}, ErrInvalidCredentials
	}

	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.LoginFailures.Inc()
			s.recorder.Record("", audit.ActionLoginFailed, origin)
			return Credentials{}, ErrInvalidCredentials
		}
		return Credentials{}, fmt.Errorf("lookup email: %w", err)
	}

	if err := VerifyPassword(account.PasswordHash, password); err != nil {
		obs.LoginFailures.Inc()
		if _, err := s.store.ApplyLoginOutcome(ctx, account.ID, LoginFailed); err != nil {
			s.logOutcomeFailure(account.ID, err)
		}
		s.recorder.Record(account.ID, audit.ActionLoginFailed, origin)
		return Credentials{}, ErrInvalidCredentials
	}

	state, err := s.store.ApplyLoginOutcome(ctx, account.ID, LoginSucceeded)
	if err != nil {
		return Credentials{}, fmt.Errorf("reset failure count: %w", err)
	}
	account.FailedLoginCount = state.FailedLoginCount
	account.AccountWarning = state.AccountWarning

	s.recorder.Record(account.ID, audit.ActionLoginSuccess, origin)

	token, exp, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return Credentials{}, fmt.Errorf("issue token: %w", err)
	}
	return Credentials{Token: token, ExpiresAt: exp, Account: *account}, nil
}

// Account loads one account by id, e.g. for the profile endpoint.
func (s *Service) Account(ctx context.Context, accountID string) (*Account, error) {
	return s.store.FindByID(ctx, accountID)
}

// Tokens exposes the issuer for the authorization middleware.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// NormalizeEmail lowercases and trims an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (s *Service) logOutcomeFailure(accountID string, err error) {
	obs.LogRequest(map[string]any{
		"ts":         s.now().UTC().Format(time.RFC3339Nano),
		"level":      "error",
		"msg":        "login_outcome_update_failed",
		"account_id": accountID,
		"error":      err.Error(),
	})
}
