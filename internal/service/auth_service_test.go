package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"devnotes/api/internal/config"
	"devnotes/api/internal/models"
	"devnotes/api/internal/repository"
	"devnotes/api/internal/security"
)

type fakeUserStore struct {
	byEmail map[string]models.User
	logins  map[string]int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: make(map[string]models.User),
		logins:  make(map[string]int),
	}
}

func (f *fakeUserStore) Create(_ context.Context, user models.User) error {
	key := strings.ToLower(user.Email)
	if _, exists := f.byEmail[key]; exists {
		return repository.ErrEmailTaken
	}
	f.byEmail[key] = user
	return nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	user, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) RecordLogin(_ context.Context, id string) error {
	f.logins[id]++
	return nil
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			SessionSecret:     "test-secret",
			SessionIssuer:     "devnotes",
			SessionCookie:     "devnotes_session",
			SessionTTL:        7 * 24 * time.Hour,
			SeedAdminName:     "Administrator",
			SeedAdminEmail:    "admin@example.com",
			SeedAdminPassword: "bootstrap-password",
		},
	}
}

func newTestAuthService(users *fakeUserStore) *AuthService {
	return NewAuthService(users, NewAuditRecorder(nil, zerolog.Nop()), testConfig(), zerolog.Nop())
}

func TestRegisterThenLogin(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(users)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.User.Email != "alice@example.com" {
		t.Errorf("email = %q, want alice@example.com", reg.User.Email)
	}
	if reg.Token == "" {
		t.Error("register should issue a session token")
	}

	login, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Error("login should resolve the registered user")
	}
	if users.logins[reg.User.ID] != 1 {
		t.Errorf("login count = %d, want 1", users.logins[reg.User.ID])
	}

	claims, err := security.ParseSessionToken(login.Token, "test-secret", "devnotes")
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("token email claim = %q, want alice@example.com", claims.Email)
	}
}

func TestRegisterNormalizesEmailCase(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(users)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Name: "Bob", Email: "  Bob@Example.COM ", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.User.Email != "bob@example.com" {
		t.Errorf("stored email = %q, want lowercased", reg.User.Email)
	}

	if _, err := svc.Login(ctx, LoginInput{Email: "BOB@example.com", Password: "secret1"}); err != nil {
		t.Errorf("login with differently-cased email: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(users)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "dup@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Name: "B", Email: "Dup@Example.com", Password: "secret2"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate register err = %v, want ErrEmailTaken", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(users)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, wrongPassword := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "nope"})
	_, unknownEmail := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "nope"})

	if !errors.Is(wrongPassword, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", wrongPassword)
	}
	if !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", unknownEmail)
	}
}

func TestSuspendedUserCannotLogin(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(users)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Name: "S", Email: "s@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	suspended := reg.User
	suspended.Status = models.UserStatusSuspended
	users.byEmail["s@example.com"] = suspended

	if _, err := svc.Login(ctx, LoginInput{Email: "s@example.com", Password: "secret1"}); !errors.Is(err, ErrUserSuspended) {
		t.Errorf("suspended login err = %v, want ErrUserSuspended", err)
	}
}

func TestSeedAdminCreatedOnFirstLogin(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(users)
	ctx := context.Background()

	result, err := svc.Login(ctx, LoginInput{Email: "admin@example.com", Password: "bootstrap-password"})
	if err != nil {
		t.Fatalf("seed admin first login: %v", err)
	}
	if result.User.Role != models.UserRoleAdmin {
		t.Errorf("seed admin role = %q, want admin", result.User.Role)
	}
	if _, ok := users.byEmail["admin@example.com"]; !ok {
		t.Error("seed admin record should be created on demand")
	}

	// Second login goes through the normal credential path.
	if _, err := svc.Login(ctx, LoginInput{Email: "admin@example.com", Password: "bootstrap-password"}); err != nil {
		t.Errorf("seed admin second login: %v", err)
	}
}

func TestSeedAdminWrongPassword(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(users)

	if _, err := svc.Login(context.Background(), LoginInput{Email: "admin@example.com", Password: "guess"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("seed admin wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if len(users.byEmail) != 0 {
		t.Error("wrong seed password must not create an account")
	}
}
