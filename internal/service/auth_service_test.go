package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/devfolio/devfolio-server/internal/domain"
	"github.com/devfolio/devfolio-server/internal/repository"
	"github.com/devfolio/devfolio-server/internal/security"
)

type inMemoryUserRepo struct {
	mu      sync.Mutex
	nextID  uint
	byID    map[uint]*domain.User
	byLogin map[string]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{nextID: 1, byID: map[uint]*domain.User{}, byLogin: map[string]*domain.User{}}
}

func (r *inMemoryUserRepo) Create(u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byLogin[u.LoginID]; exists {
		return repository.ErrLoginIDTaken
	}
	cp := *u
	cp.ID = r.nextID
	r.nextID++
	r.byID[cp.ID] = &cp
	r.byLogin[cp.LoginID] = &cp
	u.ID = cp.ID
	return nil
}

func (r *inMemoryUserRepo) FindByID(id uint) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) FindByLoginID(loginID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byLogin[loginID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func newTestAuthService() (*AuthService, *inMemoryUserRepo, *inMemoryRefreshRepo) {
	users := newInMemoryUserRepo()
	refreshRepo := newInMemoryRefreshRepo()
	jwtMgr := security.NewJWTManager("devfolio-test", "abcdefghijklmnopqrstuvwxyz123456")
	tokens := NewRefreshTokenService(refreshRepo, testPepper, 24*time.Hour)
	return NewAuthService(users, jwtMgr, tokens, 30*time.Minute), users, refreshRepo
}

func registerTestUser(t *testing.T, svc *AuthService, loginID, password string) *domain.User {
	t.Helper()
	user, err := svc.Register(loginID, password, loginID+"@example.com", "Nick")
	if err != nil {
		t.Fatalf("register %s: %v", loginID, err)
	}
	return user
}

func TestAuthRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestAuthService()
	registered := registerTestUser(t, svc, "gopher", "hunter22")

	if registered.PasswordHash == "hunter22" {
		t.Fatal("password must be stored hashed")
	}
	if registered.AuthProvider != domain.ProviderLocal {
		t.Fatalf("expected local provider, got %q", registered.AuthProvider)
	}

	user, pair, err := svc.Login("gopher", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("login resolved wrong user: %d", user.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.TokenID == "" {
		t.Fatalf("incomplete token pair: %+v", pair)
	}
}

func TestAuthRegisterDuplicateLoginID(t *testing.T) {
	svc, _, _ := newTestAuthService()
	registerTestUser(t, svc, "gopher", "hunter22")

	_, err := svc.Register("gopher", "other-pass", "other@example.com", "Other")
	if !errors.Is(err, repository.ErrLoginIDTaken) {
		t.Fatalf("expected ErrLoginIDTaken, got %v", err)
	}
}

func TestAuthLoginFailuresCollapse(t *testing.T) {
	svc, users, _ := newTestAuthService()
	registerTestUser(t, svc, "gopher", "hunter22")

	// OAuth accounts have no usable password.
	if err := users.Create(&domain.User{
		LoginID:      "google:123",
		Email:        "g@example.com",
		Nickname:     "G",
		AuthProvider: domain.ProviderGoogle,
	}); err != nil {
		t.Fatalf("create oauth user: %v", err)
	}

	cases := []struct {
		name     string
		loginID  string
		password string
	}{
		{name: "wrong password", loginID: "gopher", password: "wrong"},
		{name: "unknown login id", loginID: "nobody", password: "hunter22"},
		{name: "oauth account", loginID: "google:123", password: "anything"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Login(tc.loginID, tc.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthRefreshRotation(t *testing.T) {
	svc, _, _ := newTestAuthService()
	registered := registerTestUser(t, svc, "gopher", "hunter22")

	_, first, err := svc.Login("gopher", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	user, second, err := svc.Refresh(first.TokenID, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("refresh resolved wrong user: %d", user.ID)
	}
	if second.TokenID == first.TokenID || second.RefreshToken == first.RefreshToken {
		t.Fatal("rotation must issue a fresh credential")
	}

	// The consumed credential is dead; only the new one refreshes.
	if _, _, err := svc.Refresh(first.TokenID, first.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("replay must fail with ErrInvalidRefreshToken, got %v", err)
	}
	if _, _, err := svc.Refresh(second.TokenID, second.RefreshToken); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
}

func TestAuthRefreshRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestAuthService()
	registerTestUser(t, svc, "gopher", "hunter22")

	_, pair, err := svc.Login("gopher", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, _, err := svc.Refresh("99999999-9999-9999-9999-999999999999", pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("unknown token id must fail, got %v", err)
	}
	if _, _, err := svc.Refresh(pair.TokenID, "wrong-secret"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("wrong secret must fail, got %v", err)
	}
	// The wrong-secret attempt burned the row.
	if _, _, err := svc.Refresh(pair.TokenID, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("burned credential must fail, got %v", err)
	}
}

func TestAuthLogoutEndsRotation(t *testing.T) {
	svc, _, refreshRepo := newTestAuthService()
	user := registerTestUser(t, svc, "gopher", "hunter22")

	_, pair, err := svc.Login("gopher", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(user.ID, pair.TokenID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if refreshRepo.count() != 0 {
		t.Fatal("logout must drop the stored credential")
	}
	if _, _, err := svc.Refresh(pair.TokenID, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("refresh after logout must fail, got %v", err)
	}
	// Retried logout is harmless.
	if err := svc.Logout(user.ID, pair.TokenID); err != nil {
		t.Fatalf("repeated logout: %v", err)
	}
}
