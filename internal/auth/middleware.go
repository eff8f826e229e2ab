package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/flowtls/syncplus/internal/domain"
	"github.com/flowtls/syncplus/internal/repository"
	apperrors "github.com/flowtls/syncplus/pkg/util"
)

const sessionKey = "auth_session"

// Middleware validates bearer tokens and loads the caller's session. The
// session is rebuilt from the stored user row on every request so permission
// edits and deactivation apply immediately.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return apperrors.NewUnauthorized("invalid token subject")
	}

	user, err := m.users.GetByID(c.Context(), userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.ToDomainError(err)
	}
	if !user.IsActive {
		return apperrors.NewAccountInactive()
	}

	c.Locals(sessionKey, &domain.Session{
		UserID:      user.ID,
		Username:    user.Username,
		FullName:    user.FullName(),
		Role:        user.Role,
		CompanyID:   user.CompanyID,
		Permissions: user.Permissions,
	})
	return c.Next()
}

// SessionFromContext retrieves the authenticated session.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*domain.Session)
	return session, ok
}

// RequireCapability gates a route on a capability flag. Services re-check the
// same flag before mutating; this is the outer layer of the two.
func RequireCapability(cap domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !session.Can(cap) {
			return apperrors.NewForbidden("missing permission: " + string(cap))
		}
		return c.Next()
	}
}

// RequireRole gates a route on an exact role.
func RequireRole(roles ...domain.Role) fiber.Handler {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowed[session.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
