package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	refreshtokendomain "github.com/Betmate-ap/betmate-api/internal/refreshtoken/domain"
	refreshtokenrepo "github.com/Betmate-ap/betmate-api/internal/refreshtoken/repository"
	"github.com/Betmate-ap/betmate-api/internal/security"
	userdomain "github.com/Betmate-ap/betmate-api/internal/user/domain"
)

// memUserRepo is an in-memory UserRepo for tests.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*userdomain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*userdomain.User)}
}

func (m *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) GetByEmailOrUsername(ctx context.Context, email, username string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var byUsername *userdomain.User
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
		if u.Username == username {
			byUsername = u
		}
	}
	if byUsername != nil {
		cp := *byUsername
		return &cp, nil
	}
	return nil, nil
}

func (m *memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastLogin = &at
		u.UpdatedAt = at
	}
	return nil
}

func (m *memUserRepo) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.IsActive = active
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// memTokenRepo is an in-memory RefreshTokenRepo. Replace is atomic under the
// mutex, matching the single-transaction contract of the postgres repository.
type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*refreshtokendomain.RefreshToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*refreshtokendomain.RefreshToken)}
}

func (m *memTokenRepo) Create(ctx context.Context, t *refreshtokendomain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[t.Token]; ok {
		return refreshtokenrepo.ErrDuplicateToken
	}
	cp := *t
	m.tokens[t.Token] = &cp
	return nil
}

func (m *memTokenRepo) FindByValue(ctx context.Context, token string) (*refreshtokendomain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *memTokenRepo) Replace(ctx context.Context, oldToken string, newToken *refreshtokendomain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[oldToken]; !ok {
		return refreshtokenrepo.ErrNotFound
	}
	delete(m.tokens, oldToken)
	cp := *newToken
	m.tokens[newToken.Token] = &cp
	return nil
}

func (m *memTokenRepo) DeleteByValue(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *memTokenRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *memTokenRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

func newTestService(t *testing.T) (*AuthService, *memUserRepo, *memTokenRepo) {
	t.Helper()
	provider, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	users := newMemUserRepo()
	tokens := newMemTokenRepo()
	// Min bcrypt cost keeps the suite fast.
	svc := NewAuthService(users, tokens, security.NewHasher(4), provider, nil, nil)
	return svc, users, tokens
}

func validSignup() SignupInput {
	return SignupInput{
		Email:     "alice@example.com",
		Username:  "alice",
		FirstName: "Alice",
		LastName:  "Anders",
		Password:  "correct horse",
	}
}

func TestSignup_Success(t *testing.T) {
	svc, users, tokens := newTestService(t)
	ctx := context.Background()

	payload, err := svc.Signup(ctx, validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if payload.AccessToken == "" || payload.RefreshToken == "" {
		t.Fatal("expected both tokens to be set")
	}
	if payload.User.Email != "alice@example.com" {
		t.Errorf("email = %q", payload.User.Email)
	}
	if payload.User.EmailVerified {
		t.Error("new account must start with unverified email")
	}
	if !payload.User.IsActive {
		t.Error("new account must start active")
	}
	if payload.User.LastLogin != nil {
		t.Error("new account must have nil last login")
	}
	if tokens.count() != 1 {
		t.Errorf("refresh token records = %d, want 1", tokens.count())
	}
	stored, _ := users.GetByID(ctx, payload.User.ID)
	if stored == nil {
		t.Fatal("user not persisted")
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "correct horse" {
		t.Error("password must be stored hashed")
	}
}

func TestSignup_NormalizesEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	in := validSignup()
	in.Email = "  Alice@Example.COM "

	payload, err := svc.Signup(context.Background(), in)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if payload.User.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized lowercase", payload.User.Email)
	}
}

func TestSignup_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*SignupInput)
		want   error
	}{
		{"bad email", func(in *SignupInput) { in.Email = "not-an-email" }, ErrInvalidEmail},
		{"email with spaces", func(in *SignupInput) { in.Email = "a b@example.com" }, ErrInvalidEmail},
		{"short username", func(in *SignupInput) { in.Username = "ab" }, ErrInvalidUsername},
		{"long username", func(in *SignupInput) { in.Username = strings.Repeat("x", 31) }, ErrInvalidUsername},
		{"empty first name", func(in *SignupInput) { in.FirstName = "  " }, ErrInvalidName},
		{"empty last name", func(in *SignupInput) { in.LastName = "" }, ErrInvalidName},
		{"short password", func(in *SignupInput) { in.Password = "seven77" }, ErrWeakPassword},
		{"oversized password", func(in *SignupInput) { in.Password = strings.Repeat("p", 73) }, ErrPasswordTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validSignup()
			tc.mutate(&in)
			if _, err := svc.Signup(ctx, in); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSignup_MaxLengthPasswordAccepted(t *testing.T) {
	svc, _, _ := newTestService(t)
	in := validSignup()
	in.Password = strings.Repeat("p", 72)

	if _, err := svc.Signup(context.Background(), in); err != nil {
		t.Fatalf("72-byte password should be accepted: %v", err)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, validSignup()); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	in := validSignup()
	in.Username = "different"
	if _, err := svc.Signup(ctx, in); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Errorf("err = %v, want ErrEmailAlreadyExists", err)
	}
}

func TestSignup_DuplicateUsername(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, validSignup()); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	in := validSignup()
	in.Email = "other@example.com"
	if _, err := svc.Signup(ctx, in); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestSignup_DuplicateBothReportsEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, validSignup()); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if _, err := svc.Signup(ctx, validSignup()); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Errorf("err = %v, want ErrEmailAlreadyExists when both collide", err)
	}
}

func TestLogin_Success(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	payload, err := svc.Login(ctx, "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if payload.AccessToken == "" || payload.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if payload.User.LastLogin == nil {
		t.Error("login must record last login")
	}
	stored, _ := users.GetByID(ctx, signup.User.ID)
	if stored.LastLogin == nil {
		t.Error("last login not persisted")
	}
}

func TestLogin_WrongPasswordAndUnknownEmailIndistinguishable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, validSignup()); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, errWrongPassword := svc.Login(ctx, "alice@example.com", "wrong password")
	_, errUnknownEmail := svc.Login(ctx, "nobody@example.com", "correct horse")

	if !errors.Is(errWrongPassword, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v", errWrongPassword)
	}
	if !errors.Is(errUnknownEmail, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v", errUnknownEmail)
	}
	if errWrongPassword.Error() != errUnknownEmail.Error() {
		t.Error("the two failures must be indistinguishable")
	}
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := svc.Deactivate(ctx, signup.User.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	// Reported even with the wrong password: the active check runs first.
	if _, err := svc.Login(ctx, "alice@example.com", "wrong password"); !errors.Is(err, ErrAccountDeactivated) {
		t.Errorf("err = %v, want ErrAccountDeactivated", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "correct horse"); !errors.Is(err, ErrAccountDeactivated) {
		t.Errorf("err = %v, want ErrAccountDeactivated", err)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, _, tokens := newTestService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	payload, err := svc.Refresh(ctx, signup.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if payload.RefreshToken == signup.RefreshToken {
		t.Error("refresh must rotate the token value")
	}
	if tokens.count() != 1 {
		t.Errorf("records = %d, want 1 after rotation", tokens.count())
	}
	// Old value is consumed.
	if _, err := svc.Refresh(ctx, signup.RefreshToken); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Errorf("replayed token err = %v, want ErrRefreshTokenExpired", err)
	}
	// New value still works.
	if _, err := svc.Refresh(ctx, payload.RefreshToken); err != nil {
		t.Errorf("rotated token refresh: %v", err)
	}
}

func TestRefresh_RejectsGarbageAndAccessTokens(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.Refresh(ctx, ""); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("empty token err = %v", err)
	}
	if _, err := svc.Refresh(ctx, "not.a.jwt"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("garbage token err = %v", err)
	}
	// An access token is validly signed but carries the wrong kind.
	if _, err := svc.Refresh(ctx, signup.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("access token err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRefresh_ExpiredRecord(t *testing.T) {
	svc, _, tokens := newTestService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	// Age the persisted record past its expiry; the JWT itself stays valid.
	tokens.mu.Lock()
	tokens.tokens[signup.RefreshToken].ExpiresAt = time.Now().UTC().Add(-time.Minute)
	tokens.mu.Unlock()

	if _, err := svc.Refresh(ctx, signup.RefreshToken); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Errorf("err = %v, want ErrRefreshTokenExpired", err)
	}
}

func TestRefresh_DeactivatedUser(t *testing.T) {
	svc, users, tokens := newTestService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	// Deactivate directly so the refresh record survives; Deactivate would
	// also revoke it.
	if err := users.SetActive(ctx, signup.User.ID, false); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if tokens.count() != 1 {
		t.Fatal("expected refresh record to survive")
	}

	if _, err := svc.Refresh(ctx, signup.RefreshToken); !errors.Is(err, ErrAccountDeactivated) {
		t.Errorf("err = %v, want ErrAccountDeactivated", err)
	}
}

// raceTokenRepo wraps memTokenRepo but holds every Replace caller at a
// barrier until both have passed FindByValue, forcing the race onto the
// atomic Replace step.
type raceTokenRepo struct {
	*memTokenRepo
	ready   chan struct{}
	started sync.WaitGroup
}

func (r *raceTokenRepo) Replace(ctx context.Context, oldToken string, newToken *refreshtokendomain.RefreshToken) error {
	r.started.Done()
	<-r.ready
	return r.memTokenRepo.Replace(ctx, oldToken, newToken)
}

func TestRefresh_ConcurrentDoubleRefreshSingleUse(t *testing.T) {
	provider, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	users := newMemUserRepo()
	race := &raceTokenRepo{memTokenRepo: newMemTokenRepo(), ready: make(chan struct{})}
	svc := NewAuthService(users, race, security.NewHasher(4), provider, nil, nil)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	race.started.Add(2)
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := svc.Refresh(ctx, signup.RefreshToken)
			results <- err
		}()
	}
	// Release both goroutines into Replace only after each has read the
	// still-live record, so both believe the token is valid.
	race.started.Wait()
	close(race.ready)

	var successes, losses int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInvalidRefreshToken):
			losses++
		default:
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if successes != 1 || losses != 1 {
		t.Fatalf("successes = %d, losses = %d; want exactly one of each", successes, losses)
	}
	if race.count() != 1 {
		t.Errorf("records = %d, want 1 live record after the race", race.count())
	}
}

func TestLogout_DeletesRecord(t *testing.T) {
	svc, _, tokens := newTestService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := svc.Logout(ctx, signup.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if tokens.count() != 0 {
		t.Errorf("records = %d, want 0", tokens.count())
	}
	if _, err := svc.Refresh(ctx, signup.RefreshToken); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Errorf("refresh after logout err = %v", err)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Logout(ctx, "never-issued"); err != nil {
		t.Errorf("unknown token logout: %v", err)
	}
	if err := svc.Logout(ctx, ""); err != nil {
		t.Errorf("empty token logout: %v", err)
	}
}

func TestGetUserByID(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	view, err := svc.GetUserByID(ctx, signup.User.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if view.Username != "alice" {
		t.Errorf("username = %q", view.Username)
	}

	if _, err := svc.GetUserByID(ctx, "no-such-id"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user err = %v", err)
	}

	// Deactivated accounts look exactly like missing ones.
	if err := svc.Deactivate(ctx, signup.User.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.GetUserByID(ctx, signup.User.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("deactivated user err = %v, want ErrUserNotFound", err)
	}
}

func TestDeactivate_RevokesAllSessions(t *testing.T) {
	svc, _, tokens := newTestService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, validSignup())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	login, err := svc.Login(ctx, "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tokens.count() != 2 {
		t.Fatalf("records = %d, want 2", tokens.count())
	}

	if err := svc.Deactivate(ctx, signup.User.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if tokens.count() != 0 {
		t.Errorf("records = %d, want 0 after deactivation", tokens.count())
	}
	if _, err := svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Errorf("refresh after deactivation err = %v", err)
	}
}

func TestHashObserver(t *testing.T) {
	provider, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	var observed int
	svc := NewAuthService(newMemUserRepo(), newMemTokenRepo(), security.NewHasher(4), provider, nil,
		func(time.Duration) { observed++ })
	ctx := context.Background()

	if _, err := svc.Signup(ctx, validSignup()); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "correct horse"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if observed != 2 {
		t.Errorf("observed = %d hash timings, want 2", observed)
	}
}
