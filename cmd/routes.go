package main

import (
	"time"

	"github.com/Abraxas-365/manifesto/pkg/channel"
	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/iam"
	"github.com/Abraxas-365/manifesto/pkg/iam/apikey"
	"github.com/Abraxas-365/manifesto/pkg/iam/auth"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ============================================================================
// Authentication routes
// ============================================================================

func registerAuthRoutes(app *fiber.App, container *Container) {
	grp := app.Group("/auth")

	grp.Post("/login", func(c *fiber.Ctx) error {
		var req struct {
			TenantID string `json:"tenant_id"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Remember bool   `json:"remember"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errx.Validation(err.Error())
		}

		tenantID := kernel.NewTenantID(req.TenantID)
		result, err := container.IAM.Authenticator.Login(c.Context(), tenantID, req.Email, req.Password, req.Remember, c.IP(), c.Get("User-Agent"))
		if err != nil {
			container.IAM.Audit.LogLoginAttempt(c.Context(), kernel.UserID(""), tenantID, "password", false, c.IP(), c.Get("User-Agent"))
			return err
		}

		container.IAM.Audit.LogLoginAttempt(c.Context(), result.UserID, tenantID, "password", true, c.IP(), c.Get("User-Agent"))
		return c.JSON(loginResultDTO(result))
	})

	grp.Post("/mfa/complete", func(c *fiber.Ctx) error {
		var req struct {
			TenantID string `json:"tenant_id"`
			Email    string `json:"email"`
			Remember bool   `json:"remember"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errx.Validation(err.Error())
		}

		tenantID := kernel.NewTenantID(req.TenantID)
		result, err := container.IAM.Authenticator.CompleteMFA(c.Context(), tenantID, req.Email, req.Remember, c.IP(), c.Get("User-Agent"))
		if err != nil {
			return err
		}
		return c.JSON(loginResultDTO(result))
	})

	grp.Post("/refresh", func(c *fiber.Ctx) error {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errx.Validation(err.Error())
		}

		claims, err := container.IAM.Tokens.ValidateRefreshToken(c.Context(), req.RefreshToken)
		if err != nil {
			return err
		}

		permissions, err := container.IAM.Resolver.ResolvePermissions(c.Context(), claims.UserID, claims.TenantID)
		if err != nil {
			return err
		}

		// Rotate: the presented refresh token is revoked as soon as its
		// replacement is minted, so a stolen-but-not-yet-used token can't be
		// replayed after the legitimate client has refreshed.
		access, _, err := container.IAM.Tokens.GenerateAccessToken(claims.UserID, claims.TenantID, claims.Email, claims.Name, permissions)
		if err != nil {
			return err
		}
		refresh, _, err := container.IAM.Tokens.GenerateRefreshToken(claims.UserID, claims.TenantID)
		if err != nil {
			return err
		}
		if err := container.IAM.Tokens.RevokeToken(c.Context(), claims); err != nil {
			return err
		}

		container.IAM.Audit.LogTokenRefresh(c.Context(), claims.UserID, claims.TenantID, c.IP())

		return c.JSON(fiber.Map{
			"access_token":  access,
			"refresh_token": refresh,
		})
	})

	grp.Post("/logout", container.IAM.AuthMiddleware.Authenticate(), func(c *fiber.Ctx) error {
		authCtx, _ := auth.FromContext(c)
		token := extractBearerToken(c)
		if token != "" {
			claims, err := container.IAM.Tokens.ValidateAccessToken(c.Context(), token)
			if err == nil {
				_ = container.IAM.Tokens.RevokeToken(c.Context(), claims)
			}
		}

		var req struct {
			SessionID string `json:"session_id"`
		}
		_ = c.BodyParser(&req)
		if req.SessionID != "" {
			_ = container.IAM.Sessions.Delete(c.Context(), req.SessionID)
		}

		if authCtx != nil && authCtx.UserID != nil {
			container.IAM.Audit.LogLogout(c.Context(), *authCtx.UserID, authCtx.TenantID, c.IP())
		}
		return c.JSON(fiber.Map{"message": "logged out"})
	})

	grp.Get("/me", container.IAM.AuthMiddleware.Authenticate(), func(c *fiber.Ctx) error {
		authCtx, ok := auth.FromContext(c)
		if !ok || authCtx == nil || !authCtx.IsValid() {
			return iam.ErrUnauthorized()
		}
		return c.JSON(authCtx)
	})

	grp.Post("/password-reset/request", func(c *fiber.Ctx) error {
		var req struct {
			TenantID string `json:"tenant_id"`
			Email    string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errx.Validation(err.Error())
		}
		if err := container.IAM.PasswordResetService.Request(c.Context(), kernel.NewTenantID(req.TenantID), req.Email); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "if the account exists, a reset link has been sent"})
	})

	grp.Post("/password-reset/confirm", func(c *fiber.Ctx) error {
		var req struct {
			TenantID    string `json:"tenant_id"`
			Token       string `json:"token"`
			NewPassword string `json:"new_password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errx.Validation(err.Error())
		}
		if err := container.IAM.PasswordResetService.Confirm(c.Context(), kernel.NewTenantID(req.TenantID), req.Token, req.NewPassword); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "password updated"})
	})
}

func loginResultDTO(r *auth.LoginResult) fiber.Map {
	return fiber.Map{
		"access_token":       r.AccessToken,
		"refresh_token":      r.RefreshToken,
		"session_id":         r.SessionID,
		"user_id":            r.UserID,
		"tenant_id":          r.TenantID,
		"permissions":        r.Permissions,
		"access_expires_at":  r.AccessExpiresAt,
		"refresh_expires_at": r.RefreshExpiresAt,
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	h := c.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return c.Cookies("access_token")
}

// ============================================================================
// Invitation routes
// ============================================================================

func registerInvitationRoutes(app *fiber.App, container *Container) {
	grp := app.Group("/api/v1/invitations", container.IAM.AuthMiddleware.Authenticate())

	grp.Get("/", container.IAM.AuthMiddleware.RequirePermission("invitations:read"), func(c *fiber.Ctx) error {
		authCtx, _ := auth.FromContext(c)
		invitations, err := container.IAM.InvitationService.ListPendingForTenant(c.Context(), authCtx.TenantID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"invitations": invitations})
	})

	grp.Post("/", container.IAM.AuthMiddleware.RequirePermission("invitations:write"), func(c *fiber.Ctx) error {
		authCtx, _ := auth.FromContext(c)
		var req struct {
			Email  string `json:"email"`
			RoleID string `json:"role_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errx.Validation(err.Error())
		}
		invited, err := container.IAM.InvitationService.Invite(c.Context(), authCtx.TenantID, req.Email, req.RoleID, *authCtx.UserID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(invited)
	})

	grp.Post("/:token/accept", func(c *fiber.Ctx) error {
		authCtx, _ := auth.FromContext(c)
		if authCtx == nil || authCtx.UserID == nil {
			return iam.ErrUnauthorized()
		}
		accepted, err := container.IAM.InvitationService.Accept(c.Context(), c.Params("token"), *authCtx.UserID)
		if err != nil {
			return err
		}
		return c.JSON(accepted)
	})

	grp.Delete("/:id", container.IAM.AuthMiddleware.RequirePermission("invitations:write"), func(c *fiber.Ctx) error {
		if err := container.IAM.InvitationService.Revoke(c.Context(), c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// ============================================================================
// API key routes
// ============================================================================

func registerAPIKeyRoutes(app *fiber.App, container *Container) {
	grp := app.Group("/api/v1/api-keys", container.IAM.AuthMiddleware.Authenticate())

	grp.Get("/", func(c *fiber.Ctx) error {
		authCtx, _ := auth.FromContext(c)
		keys, err := container.IAM.APIKeyService.GetTenantAPIKeys(c.Context(), authCtx.TenantID)
		if err != nil {
			return err
		}
		return c.JSON(keys)
	})

	grp.Post("/", func(c *fiber.Ctx) error {
		authCtx, _ := auth.FromContext(c)
		var req apikey.CreateAPIKeyRequest
		if err := c.BodyParser(&req); err != nil {
			return errx.Validation(err.Error())
		}
		created, err := container.IAM.APIKeyService.CreateAPIKey(c.Context(), authCtx.TenantID, *authCtx.UserID, req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	grp.Get("/:id", func(c *fiber.Ctx) error {
		authCtx, _ := auth.FromContext(c)
		key, err := container.IAM.APIKeyService.GetAPIKeyByID(c.Context(), c.Params("id"), authCtx.TenantID)
		if err != nil {
			return err
		}
		return c.JSON(key)
	})

	grp.Patch("/:id", func(c *fiber.Ctx) error {
		authCtx, _ := auth.FromContext(c)
		var req apikey.UpdateAPIKeyRequest
		if err := c.BodyParser(&req); err != nil {
			return errx.Validation(err.Error())
		}
		updated, err := container.IAM.APIKeyService.UpdateAPIKey(c.Context(), c.Params("id"), authCtx.TenantID, req)
		if err != nil {
			return err
		}
		return c.JSON(updated)
	})

	grp.Post("/:id/revoke", func(c *fiber.Ctx) error {
		authCtx, _ := auth.FromContext(c)
		if err := container.IAM.APIKeyService.RevokeAPIKey(c.Context(), c.Params("id"), authCtx.TenantID); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "revoked"})
	})

	grp.Delete("/:id", func(c *fiber.Ctx) error {
		authCtx, _ := auth.FromContext(c)
		if err := container.IAM.APIKeyService.DeleteAPIKey(c.Context(), c.Params("id"), authCtx.TenantID); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// ============================================================================
// Channel (provider-routing) admin routes
// ============================================================================

func registerChannelRoutes(app *fiber.App, container *Container) {
	providerTypes := app.Group("/api/v1/provider-types", container.IAM.AuthMiddleware.Authenticate(), container.IAM.AuthMiddleware.RequirePermission("channels:read"))

	providerTypes.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"provider_types": container.Channel.ProviderTypes.ListTypes()})
	})

	providerTypes.Get("/:id", func(c *fiber.Ctx) error {
		pt, ok := container.Channel.ProviderTypes.GetType(c.Params("id"))
		if !ok {
			return channel.ErrUnknownProviderType(c.Params("id"))
		}
		return c.JSON(pt)
	})

	providerTypes.Get("/:id/models", func(c *fiber.Ctx) error {
		models, ok := container.Channel.ProviderTypes.SupportedModels(c.Params("id"))
		if !ok {
			return channel.ErrUnknownProviderType(c.Params("id"))
		}
		return c.JSON(fiber.Map{"models": models})
	})

	providerTypes.Post("/:id/validate-credentials", func(c *fiber.Ctx) error {
		var req struct {
			Credential string `json:"credential"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errx.Validation(err.Error())
		}
		if err := container.Channel.ProviderTypes.ValidateCredentials(c.Context(), c.Params("id"), req.Credential); err != nil {
			return c.JSON(fiber.Map{"valid": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"valid": true})
	})

	grp := app.Group("/api/v1/channels", container.IAM.AuthMiddleware.Authenticate(), container.IAM.AuthMiddleware.RequirePermission("channels:write"))

	grp.Post("/", func(c *fiber.Ctx) error {
		authCtx, _ := auth.FromContext(c)
		var req struct {
			Name              string   `json:"name"`
			ProviderType      string   `json:"provider_type"`
			BaseURL           string   `json:"base_url"`
			Credential        string   `json:"credential"`
			Models            []string `json:"models"`
			Priority          int      `json:"priority"`
			Weight            float64  `json:"weight"`
			MaxRequestsPerMin int      `json:"max_requests_per_min"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errx.Validation(err.Error())
		}

		sealed, err := container.Channel.Vault.Seal(req.Credential)
		if err != nil {
			return err
		}

		ch := channel.Channel{
			ID:                  kernel.NewChannelID(uuid.NewString()),
			TenantID:            authCtx.TenantID,
			Name:                req.Name,
			ProviderType:        req.ProviderType,
			BaseURL:             req.BaseURL,
			EncryptedCredential: sealed,
			Models:              req.Models,
			Status:              channel.StatusActive,
			Priority:            req.Priority,
			Weight:              req.Weight,
			MaxRequestsPerMin:   req.MaxRequestsPerMin,
			CreatedAt:           time.Now().UTC(),
			UpdatedAt:           time.Now().UTC(),
		}
		if err := container.Channel.Manager.Register(c.Context(), ch); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ch)
	})

	grp.Put("/:id", func(c *fiber.Ctx) error {
		authCtx, _ := auth.FromContext(c)
		var ch channel.Channel
		if err := c.BodyParser(&ch); err != nil {
			return errx.Validation(err.Error())
		}
		ch.ID = kernel.NewChannelID(c.Params("id"))
		ch.TenantID = authCtx.TenantID
		if err := container.Channel.Manager.Update(c.Context(), ch); err != nil {
			return err
		}
		return c.JSON(ch)
	})

	grp.Delete("/:id", func(c *fiber.Ctx) error {
		authCtx, _ := auth.FromContext(c)
		if err := container.Channel.Manager.Delete(c.Context(), kernel.NewChannelID(c.Params("id")), authCtx.TenantID); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// ============================================================================
// Proxy routes — the provider-facing chat-completions gateway
// ============================================================================

func registerProxyRoutes(app *fiber.App, container *Container) {
	app.Post("/v1/chat/completions", container.IAM.AuthMiddleware.Authenticate(), container.Channel.Handler.ChatCompletions)
}
