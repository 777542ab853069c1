package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"devnotes/api/internal/config"
	"devnotes/api/internal/ids"
	"devnotes/api/internal/models"
	"devnotes/api/internal/repository"
	"devnotes/api/internal/security"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password
	// so login failures cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserSuspended      = errors.New("user suspended")
)

type userStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	RecordLogin(ctx context.Context, id string) error
}

type AuthService struct {
	users userStore
	audit *AuditRecorder
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewAuthService(users userStore, audit *AuditRecorder, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users: users,
		audit: audit,
		cfg:   cfg,
		log:   log,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type AuthResult struct {
	Token string
	User  models.User
}

// normalizeEmail is the single place email case is folded; storage enforces
// uniqueness on the lowered form as well, so two registrations differing
// only in case cannot both land.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleUser,
		Status:       models.UserStatusActive,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, err
	}

	return s.issueSession(user)
}

type LoginInput struct {
	Email    string
	Password string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)

	if s.isSeedAdmin(email) {
		return s.loginSeedAdmin(ctx, email, input.Password)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	return s.finishLogin(ctx, user, input.Password)
}

func (s *AuthService) isSeedAdmin(email string) bool {
	seed := normalizeEmail(s.cfg.Security.SeedAdminEmail)
	return seed != "" && email == seed
}

// loginSeedAdmin is the one exception to "login requires an existing user":
// the reserved seed identity is created on first use so an admin exists
// before any registration has happened.
func (s *AuthService) loginSeedAdmin(ctx context.Context, email string, password string) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return s.finishLogin(ctx, user, password)
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Security.SeedAdminPassword)) != 1 {
		return AuthResult{}, ErrInvalidCredentials
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return AuthResult{}, err
	}

	user = models.User{
		ID:           ids.New(),
		Name:         s.cfg.Security.SeedAdminName,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleAdmin,
		Status:       models.UserStatusActive,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent first login may have created it already.
		if errors.Is(err, repository.ErrEmailTaken) {
			existing, ferr := s.users.FindByEmail(ctx, email)
			if ferr != nil {
				return AuthResult{}, ferr
			}
			return s.finishLogin(ctx, existing, password)
		}
		return AuthResult{}, err
	}

	s.log.Info().Str("email", email).Msg("seed admin account created")
	return s.finishLogin(ctx, user, password)
}

func (s *AuthService) finishLogin(ctx context.Context, user models.User, password string) (AuthResult, error) {
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	if user.Status != models.UserStatusActive {
		return AuthResult{}, ErrUserSuspended
	}

	if err := s.users.RecordLogin(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("login bookkeeping failed")
	}

	s.audit.Record(ctx, models.EventLogin, user, nil)

	return s.issueSession(user)
}

func (s *AuthService) issueSession(user models.User) (AuthResult, error) {
	token, err := security.IssueSessionToken(
		s.cfg.Security.SessionSecret,
		s.cfg.Security.SessionIssuer,
		user.ID,
		user.Email,
		s.cfg.Security.SessionTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: user}, nil
}
