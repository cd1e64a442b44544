package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-bakehouse/internal/repo"
)

type stubQueries struct {
	users map[string]repo.User
}

func (s *stubQueries) CreateUser(_ context.Context, arg repo.CreateUserParams) (repo.User, error) {
	u := repo.User{ID: "11111111-1111-1111-1111-111111111111", Email: arg.Email, Name: arg.Name, PasswordHash: arg.PasswordHash, Roles: []string{"customer"}}
	s.users[u.ID] = u
	return u, nil
}

func (s *stubQueries) GetUserByEmail(_ context.Context, email string) (repo.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repo.User{}, pgx.ErrNoRows
}

func (s *stubQueries) GetUser(_ context.Context, userID string) (repo.User, error) {
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	return repo.User{}, pgx.ErrNoRows
}

func newTestService(t *testing.T) (*Service, *stubQueries) {
	t.Helper()
	queries := &stubQueries{users: map[string]repo.User{}}
	svc, err := NewService(Config{
		Queries:   queries,
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
		AccessTTL: 15 * time.Minute,
		Issuer:    "bakehouse-test",
		Audience:  "bakehouse-api",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, queries
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	token, _, err := svc.signAccessToken("user-123")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	subject, err := svc.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if subject != "user-123" {
		t.Fatalf("expected subject user-123, got %s", subject)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	svc, _ := newTestService(t)
	base := time.Now()
	svc.WithNow(func() time.Time { return base.Add(-time.Hour) })
	token, _, err := svc.signAccessToken("user-123")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	svc.WithNow(func() time.Time { return base })
	if _, err := svc.ParseAccessToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.ParseAccessToken("not-a-token"); err == nil {
		t.Fatal("expected parse failure")
	}
	if _, err := svc.ParseAccessToken(""); err == nil {
		t.Fatal("expected missing token failure")
	}
}

func TestLoginVerifiesPassword(t *testing.T) {
	svc, queries := newTestService(t)
	hash, err := argon2id.CreateHash("sourdough-secret", argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	queries.users["u-1"] = repo.User{ID: "u-1", Email: "baker@example.com", PasswordHash: hash, Roles: []string{"customer"}}

	result, err := svc.Login(context.Background(), "baker@example.com", "sourdough-secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatal("expected access token")
	}
	subject, err := svc.ParseAccessToken(result.AccessToken)
	if err != nil || subject != "u-1" {
		t.Fatalf("expected token for u-1, got %q err %v", subject, err)
	}

	if _, err := svc.Login(context.Background(), "baker@example.com", "wrong"); err == nil {
		t.Fatal("expected invalid credentials")
	}
}
