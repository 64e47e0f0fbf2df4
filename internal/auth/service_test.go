package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"gocredo.org/internal/audit"
)

// memStore is an in-memory Store whose operations are atomic under a mutex,
// mirroring the guarantees the Postgres store gets from its unique index and
// single-statement updates.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*Account // keyed by email
}

func newMemStore() *memStore {
	return &memStore{accounts: make(map[string]*Account)}
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) Insert(_ context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.Email]; ok {
		return ErrConflict
	}
	cp := *account
	m.accounts[account.Email] = &cp
	return nil
}

func (m *memStore) ApplyLoginOutcome(_ context.Context, accountID string, outcome LoginOutcome) (LoginState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID != accountID {
			continue
		}
		switch outcome {
		case LoginSucceeded:
			a.FailedLoginCount = 0
		case LoginFailed:
			count, warn := ApplyFailure(a.FailedLoginCount)
			a.FailedLoginCount = count
			if warn {
				a.AccountWarning = true
			}
		}
		return LoginState{FailedLoginCount: a.FailedLoginCount, AccountWarning: a.AccountWarning}, nil
	}
	return LoginState{}, ErrNotFound
}

type recordedEvent struct {
	accountID string
	action    string
	origin    audit.Origin
}

type memRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (m *memRecorder) Record(accountID, action string, origin audit.Origin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{accountID, action, origin})
}

func (m *memRecorder) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.action
	}
	return out
}

func (m *memRecorder) last() recordedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[len(m.events)-1]
}

func newTestService(t *testing.T) (*Service, *memStore, *memRecorder) {
	t.Helper()
	store := newMemStore()
	recorder := &memRecorder{}
	tokens := newTestIssuer(t)
	svc, err := NewService(store, recorder, tokens, WithBcryptCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store, recorder
}

var testOrigin = audit.Origin{IP: "203.0.113.7", UserAgent: "service-test"}

func signupAda(t *testing.T, svc *Service) Credentials {
	t.Helper()
	creds, err := svc.Signup(context.Background(), SignupInput{
		Name:         "Ada",
		Email:        "ada@x.com",
		Password:     "p1",
		ConsentGiven: true,
	}, testOrigin)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	return creds
}

func TestSignupCreatesPatientAccount(t *testing.T) {
	svc, store, recorder := newTestService(t)

	creds := signupAda(t, svc)

	if creds.Account.Role != RolePatient {
		t.Fatalf("expected role patient, got %s", creds.Account.Role)
	}
	if creds.Account.ID == "" {
		t.Fatal("expected account id")
	}
	if creds.Account.PasswordHash == "p1" || !strings.HasPrefix(creds.Account.PasswordHash, "$2") {
		t.Fatalf("password not hashed: %q", creds.Account.PasswordHash)
	}
	if creds.Account.ConsentAt.IsZero() {
		t.Fatal("expected consent timestamp")
	}
	if creds.Account.FailedLoginCount != 0 || creds.Account.AccountWarning {
		t.Fatal("fresh account has nonzero security state")
	}

	claims, err := svc.Tokens().ParseAndValidate(creds.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.Subject != creds.Account.ID || claims.Role != RolePatient {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	stored, err := store.FindByEmail(context.Background(), "ada@x.com")
	if err != nil {
		t.Fatalf("account not persisted: %v", err)
	}
	if err := VerifyPassword(stored.PasswordHash, "p1"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}

	if got := recorder.actions(); len(got) != 1 || got[0] != audit.ActionSignup {
		t.Fatalf("expected one SIGNUP audit event, got %v", got)
	}
	if ev := recorder.last(); ev.accountID != creds.Account.ID || ev.origin != testOrigin {
		t.Fatalf("unexpected audit event: %+v", ev)
	}
}

func TestSignupIgnoresRequestedRole(t *testing.T) {
	svc, _, _ := newTestService(t)

	creds, err := svc.Signup(context.Background(), SignupInput{
		Name:         "Mallory",
		Email:        "mallory@x.com",
		Password:     "pw",
		Role:         RoleAdmin,
		ConsentGiven: true,
	}, testOrigin)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if creds.Account.Role != RolePatient {
		t.Fatalf("public signup must force patient, got %s", creds.Account.Role)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _, recorder := newTestService(t)

	cases := []SignupInput{
		{Email: "a@x.com", Password: "pw", ConsentGiven: true},           // no name
		{Name: "A", Password: "pw", ConsentGiven: true},                  // no email
		{Name: "A", Email: "a@x.com", ConsentGiven: true},                // no password
		{Name: "A", Email: "a@x.com", Password: "pw"},                    // no consent
		{Name: "A", Email: "a@x.com", Password: "pw", ConsentGiven: false},
	}
	for i, in := range cases {
		if _, err := svc.Signup(context.Background(), in, testOrigin); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
	if len(recorder.actions()) != 0 {
		t.Fatal("validation failures must not produce audit events")
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	signupAda(t, svc)

	_, err := svc.Signup(context.Background(), SignupInput{
		Name:         "Ada Again",
		Email:        "Ada@X.com", // same address after normalization
		Password:     "p2",
		ConsentGiven: true,
	}, testOrigin)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSignupConcurrentDuplicate(t *testing.T) {
	svc, store, _ := newTestService(t)

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Signup(context.Background(), SignupInput{
				Name:         "Ada",
				Email:        "ada@x.com",
				Password:     "p1",
				ConsentGiven: true,
			}, testOrigin)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful signup, got %d", succeeded)
	}
	if _, err := store.FindByEmail(context.Background(), "ada@x.com"); err != nil {
		t.Fatalf("winner not persisted: %v", err)
	}
}

func TestProvisionAccountAllowsPrivilegedRoles(t *testing.T) {
	svc, _, _ := newTestService(t)

	creds, err := svc.ProvisionAccount(context.Background(), SignupInput{
		Name:         "Dr. Grace",
		Email:        "grace@clinic.example",
		Password:     "pw",
		Role:         RoleProvider,
		ConsentGiven: true,
	}, testOrigin)
	if err != nil {
		t.Fatalf("ProvisionAccount: %v", err)
	}
	if creds.Account.Role != RoleProvider {
		t.Fatalf("expected provider role, got %s", creds.Account.Role)
	}

	if _, err := svc.ProvisionAccount(context.Background(), SignupInput{
		Name:         "X",
		Email:        "x@x.com",
		Password:     "pw",
		Role:         Role("superuser"),
		ConsentGiven: true,
	}, testOrigin); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown role, got %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _, recorder := newTestService(t)
	signupAda(t, svc)

	_, unknownErr := svc.Login(context.Background(), "unknown@x.com", "anything", testOrigin)
	_, wrongErr := svc.Login(context.Background(), "ada@x.com", "wrong", testOrigin)

	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("failure messages differ: %q vs %q", unknownErr.Error(), wrongErr.Error())
	}

	actions := recorder.actions()
	// Both failures audit LOGIN_FAILED, after the signup's SIGNUP.
	if len(actions) != 3 || actions[1] != audit.ActionLoginFailed || actions[2] != audit.ActionLoginFailed {
		t.Fatalf("unexpected audit trail: %v", actions)
	}
	if ev := recorder.last(); ev.accountID == "" {
		t.Fatal("failed login for known account must reference it")
	}
}

func TestLoginUnknownEmailAuditsWithoutAccount(t *testing.T) {
	svc, _, recorder := newTestService(t)

	if _, err := svc.Login(context.Background(), "ghost@x.com", "pw", testOrigin); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	ev := recorder.last()
	if ev.action != audit.ActionLoginFailed || ev.accountID != "" {
		t.Fatalf("expected unresolved LOGIN_FAILED event, got %+v", ev)
	}
}

func TestLockoutWarningAfterFiveFailures(t *testing.T) {
	svc, store, _ := newTestService(t)
	signupAda(t, svc)

	for i := 0; i < LockoutThreshold; i++ {
		if _, err := svc.Login(context.Background(), "ada@x.com", "wrong", testOrigin); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	stored, err := store.FindByEmail(context.Background(), "ada@x.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if stored.FailedLoginCount != LockoutThreshold {
		t.Fatalf("expected count %d, got %d", LockoutThreshold, stored.FailedLoginCount)
	}
	if !stored.AccountWarning {
		t.Fatal("expected warning flag after threshold")
	}

	// A sixth failure leaves the flag set.
	_, _ = svc.Login(context.Background(), "ada@x.com", "wrong", testOrigin)
	stored, _ = store.FindByEmail(context.Background(), "ada@x.com")
	if stored.FailedLoginCount != LockoutThreshold+1 || !stored.AccountWarning {
		t.Fatalf("unexpected state after sixth failure: count=%d warning=%v",
			stored.FailedLoginCount, stored.AccountWarning)
	}
}

func TestLoginResetsCounterButKeepsWarning(t *testing.T) {
	svc, store, recorder := newTestService(t)
	signupAda(t, svc)

	for i := 0; i < LockoutThreshold; i++ {
		_, _ = svc.Login(context.Background(), "ada@x.com", "wrong", testOrigin)
	}

	creds, err := svc.Login(context.Background(), "ada@x.com", "p1", testOrigin)
	if err != nil {
		t.Fatalf("Login with correct password: %v", err)
	}
	if !creds.Account.AccountWarning {
		t.Fatal("warning flag must survive a successful login")
	}
	if creds.Account.FailedLoginCount != 0 {
		t.Fatalf("expected counter reset, got %d", creds.Account.FailedLoginCount)
	}

	stored, _ := store.FindByEmail(context.Background(), "ada@x.com")
	if stored.FailedLoginCount != 0 {
		t.Fatalf("stored counter not reset: %d", stored.FailedLoginCount)
	}
	if !stored.AccountWarning {
		t.Fatal("stored warning flag cleared; no code path may clear it")
	}
	if got := recorder.last(); got.action != audit.ActionLoginSuccess {
		t.Fatalf("expected LOGIN_SUCCESS audit event, got %+v", got)
	}
}

func TestConcurrentFailedLoginsLoseNoIncrements(t *testing.T) {
	svc, store, _ := newTestService(t)
	signupAda(t, svc)

	const attempts = 12
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Login(context.Background(), "ada@x.com", "wrong", testOrigin)
		}()
	}
	wg.Wait()

	stored, err := store.FindByEmail(context.Background(), "ada@x.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if stored.FailedLoginCount != attempts {
		t.Fatalf("lost increments: expected %d, got %d", attempts, stored.FailedLoginCount)
	}
	if !stored.AccountWarning {
		t.Fatal("expected warning flag after threshold")
	}
}

func TestAccountLoadsByID(t *testing.T) {
	svc, _, _ := newTestService(t)
	creds := signupAda(t, svc)

	account, err := svc.Account(context.Background(), creds.Account.ID)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if account.Email != "ada@x.com" {
		t.Fatalf("unexpected account: %+v", account)
	}

	if _, err := svc.Account(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
