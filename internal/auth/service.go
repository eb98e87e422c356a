// Package auth implements the session layer: issuing signed access
// tokens at login and gating every protected operation on a required
// role set.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nawrec86/school-management-backend/internal/crypto"
	"github.com/nawrec86/school-management-backend/internal/metrics"
	"github.com/nawrec86/school-management-backend/internal/model"
	"github.com/nawrec86/school-management-backend/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for an unknown username and for a
	// wrong password alike, so a caller cannot probe which usernames exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRole is returned at registration for roles outside the
	// enumerated set.
	ErrInvalidRole = errors.New("invalid role")
	// ErrMissingToken means the request carried no token at all.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken covers every parse failure plus tokens whose subject
	// no longer resolves to a live account. Callers cannot distinguish why.
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbidden means the token resolved to a live account whose current
	// role is outside the operation's required set.
	ErrForbidden = errors.New("forbidden")
	// ErrTooManyAttempts means login for this username is throttled.
	ErrTooManyAttempts = errors.New("too many login attempts")
)

// Service holds the process-wide signing secret and the credential store.
// It is constructed once at startup; all methods are safe for concurrent
// use and keep no per-request state.
type Service struct {
	users    repository.UserStore
	secret   []byte
	issuer   string
	tokenTTL time.Duration
	throttle *LoginThrottle
	metrics  *metrics.Collector
	logger   *slog.Logger
}

func NewService(users repository.UserStore, secret, issuer string, tokenTTL time.Duration) *Service {
	return &Service{
		users:    users,
		secret:   []byte(secret),
		issuer:   issuer,
		tokenTTL: tokenTTL,
		logger:   slog.Default(),
	}
}

// WithThrottle enables the failed-login throttle. A nil throttle leaves
// logins unthrottled.
func (s *Service) WithThrottle(throttle *LoginThrottle) *Service {
	s.throttle = throttle
	return s
}

func (s *Service) WithMetrics(collector *metrics.Collector) *Service {
	s.metrics = collector
	return s
}

func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// Register creates an account with the given role. The username must be
// unique; the store enforces that atomically and reports
// repository.ErrUsernameTaken on collision.
func (s *Service) Register(ctx context.Context, username, password string, role model.Role) (model.User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if !role.Valid() {
		return model.User{}, ErrInvalidRole
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return model.User{}, err
	}

	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return model.User{}, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", string(user.Role))
	return user, nil
}

// Login verifies the credentials and mints a signed access token carrying
// the account's id and current role. This is the only place a token is
// issued to a caller.
func (s *Service) Login(ctx context.Context, username, password string) (string, model.Role, error) {
	username = strings.TrimSpace(strings.ToLower(username))

	if s.throttle != nil && s.throttle.Blocked(ctx, username) {
		s.recordLogin("throttled")
		return "", "", ErrTooManyAttempts
	}

	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordFailure(ctx, username)
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	if err := crypto.CheckPassword(user.PasswordHash, password); err != nil {
		s.recordFailure(ctx, username)
		return "", "", ErrInvalidCredentials
	}

	if s.throttle != nil {
		s.throttle.Reset(ctx, username)
	}

	token, err := NewAccessToken(s.secret, s.issuer, s.tokenTTL, user.ID, user.Role)
	if err != nil {
		return "", "", err
	}

	s.recordLogin("success")
	s.logger.Info("login succeeded", "user_id", user.ID)
	return token, user.Role, nil
}

// Authorize gates a protected operation. It parses the token, re-resolves
// the live account by the token's subject, and checks the freshly
// resolved role against the required set. The token's embedded role claim
// is deliberately not trusted here: re-resolving closes the window where
// a role change would leave old tokens with stale privileges.
func (s *Service) Authorize(ctx context.Context, rawToken string, required ...model.Role) (model.User, error) {
	if rawToken == "" {
		s.recordDecision("missing_token")
		return model.User{}, ErrMissingToken
	}

	claims, err := ParseToken(s.secret, s.issuer, rawToken)
	if err != nil {
		var tokenErr *TokenError
		if errors.As(err, &tokenErr) {
			s.recordDecision(string(tokenErr.Failure))
			s.logger.Debug("token rejected", "failure", string(tokenErr.Failure))
		}
		return model.User{}, ErrInvalidToken
	}

	user, err := s.users.FindUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordDecision("unknown_subject")
			return model.User{}, ErrInvalidToken
		}
		return model.User{}, err
	}

	for _, role := range required {
		if user.Role == role {
			s.recordDecision("allow")
			return user, nil
		}
	}

	s.recordDecision("forbidden")
	s.logger.Debug("role not permitted", "user_id", user.ID, "role", string(user.Role))
	return model.User{}, ErrForbidden
}

func (s *Service) recordFailure(ctx context.Context, username string) {
	if s.throttle != nil {
		s.throttle.RecordFailure(ctx, username)
	}
	s.recordLogin("invalid_credentials")
}

func (s *Service) recordLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(outcome)
	}
}

func (s *Service) recordDecision(reason string) {
	if s.metrics != nil {
		s.metrics.RecordAuthDecision(reason)
	}
}
