package auth

import (
	"strings"

	"github.com/Abraxas-365/manifesto/pkg/iam"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

const authContextLocalsKey = "auth"

// TokenMiddleware authenticates Fiber requests against access tokens.
type TokenMiddleware struct {
	tokens *JWTService
}

func NewAuthMiddleware(tokens *JWTService) *TokenMiddleware {
	return &TokenMiddleware{tokens: tokens}
}

// Authenticate validates the bearer token (or access_token cookie) and
// stores the resulting AuthContext as a Fiber local, never as a global.
func (am *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": iam.ErrUnauthorized().Error(),
			})
		}

		claims, err := am.tokens.ValidateAccessToken(c.Context(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		userID := claims.UserID
		authContext := &kernel.AuthContext{
			UserID:      &userID,
			TenantID:    claims.TenantID,
			Email:       claims.Email,
			Name:        claims.Name,
			Permissions: claims.Permissions,
			IsAPIKey:    false,
		}

		c.Locals(authContextLocalsKey, authContext)

		return c.Next()
	}
}

// FromContext retrieves the AuthContext a prior Authenticate call stored on
// c, for handlers outside this package that need to know who's calling.
func FromContext(c *fiber.Ctx) (*kernel.AuthContext, bool) {
	authContext, ok := c.Locals(authContextLocalsKey).(*kernel.AuthContext)
	return authContext, ok
}

func extractToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1]
		}
	}
	return c.Cookies("access_token")
}

// RequirePermission requires the authenticated context to carry the given
// permission (or a wildcard that covers it).
func (am *TokenMiddleware) RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext, ok := c.Locals(authContextLocalsKey).(*kernel.AuthContext)
		if !ok || authContext == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": iam.ErrUnauthorized().Error(),
			})
		}

		if !authContext.IsAdmin() && !authContext.HasPermission(permission) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": iam.ErrAccessDenied().Error(),
			})
		}

		return c.Next()
	}
}

// RequireAdmin requires the system-wide admin bypass permission.
func (am *TokenMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext, ok := c.Locals(authContextLocalsKey).(*kernel.AuthContext)
		if !ok || authContext == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": iam.ErrUnauthorized().Error(),
			})
		}

		if !authContext.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": iam.ErrAccessDenied().Error(),
			})
		}

		return c.Next()
	}
}

// RequireTenant requires the authenticated context to belong to tenantID —
// used by routes scoped to a path-embedded tenant, distinct from the
// tenant the token itself already carries.
func (am *TokenMiddleware) RequireTenant(tenantID kernel.TenantID) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext, ok := c.Locals(authContextLocalsKey).(*kernel.AuthContext)
		if !ok || authContext == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": iam.ErrUnauthorized().Error(),
			})
		}

		if authContext.TenantID != tenantID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "access denied for this tenant",
			})
		}

		return c.Next()
	}
}
