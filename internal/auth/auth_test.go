package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/inkwell-blog/inkwell/internal/model"
	"github.com/inkwell-blog/inkwell/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// memUsers is a UserStore that counts lookups.
type memUsers struct {
	mu      sync.Mutex
	users   map[string]model.User
	lookups int
	failGet error
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]model.User{}}
}

func (m *memUsers) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.UserID]; ok {
		return store.ErrDuplicateUser
	}
	m.users[u.UserID] = *u
	return nil
}

func (m *memUsers) GetUser(_ context.Context, userID string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.failGet != nil {
		return model.User{}, m.failGet
	}
	u, ok := m.users[userID]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return u, nil
}

func newService(t *testing.T) (*Service, *memUsers) {
	t.Helper()
	codec, err := NewCodec("HS256", "test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	users := newMemUsers()
	return NewService(users, codec, bcrypt.MinCost, "token"), users
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cases := []struct{ userID, pw, pw2, username string }{
		{"", "pw", "pw", "Alice"},
		{"alice", "", "", "Alice"},
		{"alice", "pw", "pw", " "},
		{"alice", "pw", "other", "Alice"},
	}
	for _, c := range cases {
		if _, err := svc.Register(ctx, c.userID, c.pw, c.pw2, c.username); !errors.Is(err, ErrValidation) {
			t.Fatalf("%+v: expected ErrValidation, got %v", c, err)
		}
	}
}

func TestRegisterStoresHash(t *testing.T) {
	svc, users := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "pw1", "pw1", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	stored := users.users["alice"]
	if stored.PasswordHash == "" || stored.PasswordHash == "pw1" {
		t.Fatalf("expected bcrypt hash, got %q", stored.PasswordHash)
	}
	if user.Username != "Alice" {
		t.Fatalf("expected username Alice, got %q", user.Username)
	}

	if _, err := svc.Register(ctx, "alice", "pw2", "pw2", "Other"); !errors.Is(err, store.ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "pw1", "pw1", "Alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "nobody", "pw1"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}

	token, user, err := svc.Login(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.UserID != "alice" {
		t.Fatalf("expected alice, got %q", user.UserID)
	}
	resolved := svc.Resolve(ctx, token)
	if resolved == nil || resolved.UserID != "alice" {
		t.Fatalf("expected token to resolve to alice, got %+v", resolved)
	}
}

func TestResolveLooksUpOnce(t *testing.T) {
	svc, users := newService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "pw1", "pw1", "Alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	token, err := svc.codec.Sign("alice")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	users.lookups = 0
	if user := svc.Resolve(ctx, token); user == nil {
		t.Fatalf("expected user")
	}
	if users.lookups != 1 {
		t.Fatalf("expected one lookup, got %d", users.lookups)
	}
}

func TestResolveFallsBackToAnonymous(t *testing.T) {
	svc, users := newService(t)
	ctx := context.Background()

	if user := svc.Resolve(ctx, ""); user != nil {
		t.Fatalf("expected anonymous for empty token")
	}
	if user := svc.Resolve(ctx, "not-a-token"); user != nil {
		t.Fatalf("expected anonymous for malformed token")
	}
	if users.lookups != 0 {
		t.Fatalf("invalid tokens must not reach the store, got %d lookups", users.lookups)
	}

	ghost, _ := svc.codec.Sign("ghost")
	if user := svc.Resolve(ctx, ghost); user != nil {
		t.Fatalf("expected anonymous for unknown user")
	}

	users.failGet = errors.New("disk on fire")
	if user := svc.Resolve(ctx, ghost); user != nil {
		t.Fatalf("expected anonymous when lookup fails")
	}
}

func TestAttach(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "pw1", "pw1", "Alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	token, _, err := svc.Login(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	if user := UserFromContext(svc.Attach(anon).Context()); user != nil {
		t.Fatalf("expected anonymous without cookie")
	}

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.AddCookie(&http.Cookie{Name: "token", Value: "garbage"})
	if user := UserFromContext(svc.Attach(bad).Context()); user != nil {
		t.Fatalf("expected anonymous with invalid cookie")
	}

	good := httptest.NewRequest(http.MethodGet, "/", nil)
	good.AddCookie(svc.Cookie(token))
	user := UserFromContext(svc.Attach(good).Context())
	if user == nil || user.Username != "Alice" {
		t.Fatalf("expected alice, got %+v", user)
	}
}
