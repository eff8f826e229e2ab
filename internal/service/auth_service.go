package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/flowtls/syncplus/internal/auth"
	"github.com/flowtls/syncplus/internal/config"
	"github.com/flowtls/syncplus/internal/domain"
	"github.com/flowtls/syncplus/internal/repository"
	apperrors "github.com/flowtls/syncplus/pkg/util"
)

// LoginThrottle counts failed login attempts per username and reports when an
// account is temporarily locked out.
type LoginThrottle interface {
	RegisterFailure(ctx context.Context, username string) error
	IsLocked(ctx context.Context, username string) (locked bool, retryAfterSeconds int, err error)
	Reset(ctx context.Context, username string) error
}

// AuthService coordinates the login flow: credential verification, lockout
// throttling, and token issuance.
type AuthService struct {
	users    repository.UserRepository
	throttle LoginThrottle
	tokenMgr *auth.TokenManager
	params   auth.Argon2Params
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, throttle LoginThrottle, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		throttle: throttle,
		tokenMgr: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		params: auth.Argon2Params{
			Time:      cfg.Argon2Time,
			MemoryKiB: cfg.Argon2MemoryKiB,
			Threads:   cfg.Argon2Threads,
		},
		logger: logger,
		now:    time.Now,
	}
}

// LoginResult is returned on a successful authentication.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Login authenticates a user by username and password. Unknown username and
// wrong password produce the same error; the distinguishing detail is only
// logged server-side. A locked-out account fails even with the correct
// password until the window elapses.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, apperrors.NewValidationError("username and password are required", nil)
	}

	locked, retryAfter, err := s.throttle.IsLocked(ctx, username)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if locked {
		return nil, apperrors.NewAccountLocked(retryAfter)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Info("login failed: unknown username", zap.String("username", username))
			_ = s.throttle.RegisterFailure(ctx, username)
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, apperrors.NewStorageError(err)
	}

	if !auth.VerifyPassword(password, user.PasswordHash, user.Salt, s.params) {
		s.logger.Info("login failed: password mismatch", zap.String("username", username))
		_ = s.throttle.RegisterFailure(ctx, username)
		return nil, apperrors.NewInvalidCredentials()
	}

	if !user.IsActive {
		return nil, apperrors.NewAccountInactive()
	}

	_ = s.throttle.Reset(ctx, username)

	loginAt := s.now()
	if err := s.users.RecordLogin(ctx, user.ID, loginAt); err != nil {
		s.logger.Warn("failed to record last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &loginAt

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// HashParams exposes the KDF parameters for services that create credentials.
func (s *AuthService) HashParams() auth.Argon2Params {
	return s.params
}

// MemoryThrottle is an in-process LoginThrottle, used when Redis is not
// configured and in tests.
type MemoryThrottle struct {
	mu        sync.Mutex
	failures  map[string]*throttleEntry
	threshold int
	window    time.Duration
	now       func() time.Time
}

type throttleEntry struct {
	count     int
	windowEnd time.Time
}

// NewMemoryThrottle builds the throttle.
func NewMemoryThrottle(threshold int, window time.Duration) *MemoryThrottle {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &MemoryThrottle{
		failures:  make(map[string]*throttleEntry),
		threshold: threshold,
		window:    window,
		now:       time.Now,
	}
}

func (t *MemoryThrottle) RegisterFailure(_ context.Context, username string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.failures[username]
	if !ok || t.now().After(entry.windowEnd) {
		t.failures[username] = &throttleEntry{count: 1, windowEnd: t.now().Add(t.window)}
		return nil
	}
	entry.count++
	return nil
}

func (t *MemoryThrottle) IsLocked(_ context.Context, username string) (bool, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.failures[username]
	if !ok {
		return false, 0, nil
	}
	if t.now().After(entry.windowEnd) {
		delete(t.failures, username)
		return false, 0, nil
	}
	if entry.count < t.threshold {
		return false, 0, nil
	}
	return true, int(entry.windowEnd.Sub(t.now()).Seconds()), nil
}

func (t *MemoryThrottle) Reset(_ context.Context, username string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, username)
	return nil
}
