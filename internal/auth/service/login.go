package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"libris/internal/audit"
	"libris/internal/directory"
	"libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
	"libris/pkg/platform/sentinel"
)

// AccessTokenTTL bounds staff sessions; expired tokens force a fresh login.
const AccessTokenTTL = 8 * time.Hour

// UserFinder resolves accounts by email for login.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*directory.User, error)
}

// TokenIssuer mints signed access tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID domain.UserID, roles []domain.Role, expiresIn time.Duration) (string, error)
}

// LoginRequest carries staff credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

// LoginResponse carries the issued token and the account it belongs to.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	UserID      string      `json:"user_id"`
	Role        domain.Role `json:"role"`
}

// AuthService authenticates staff accounts and issues access tokens.
type AuthService struct {
	users   UserFinder
	tokens  TokenIssuer
	logger  *slog.Logger
	auditor audit.Publisher
}

type Option func(*AuthService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *AuthService) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *AuthService) { s.auditor = publisher }
}

func New(users UserFinder, tokens TokenIssuer, opts ...Option) *AuthService {
	s := &AuthService{users: users, tokens: tokens, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies credentials and issues a staff access token. Wrong email,
// wrong password and non-staff accounts all produce the same unauthorized
// answer so the response never confirms which part failed.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	if len(user.PasswordHash) == 0 {
		return nil, invalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)); err != nil {
		return nil, invalidCredentials()
	}
	if !isStaff(user.Role) {
		return nil, invalidCredentials()
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, []domain.Role{user.Role}, AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.Event{
			Action: audit.ActionLogin,
			UserID: user.ID.String(),
		}); err != nil {
			s.logger.ErrorContext(ctx, "audit emit failed", slog.String("error", err.Error()))
		}
	}

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(AccessTokenTTL.Seconds()),
		UserID:      user.ID.String(),
		Role:        user.Role,
	}, nil
}

func isStaff(role domain.Role) bool {
	for _, staff := range domain.StaffRoles() {
		if role == staff {
			return true
		}
	}
	return false
}

func invalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}
