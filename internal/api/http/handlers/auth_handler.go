package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-console/internal/api/dto"
	"github.com/spec-kit/ticket-console/internal/auth"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// AuthHandler manages console sessions.
type AuthHandler struct {
	provider   *auth.CredentialProvider
	sessions   *auth.SessionManager
	workspaces *Workspaces
}

// NewAuthHandler constructs handler.
func NewAuthHandler(provider *auth.CredentialProvider, sessions *auth.SessionManager, workspaces *Workspaces) *AuthHandler {
	return &AuthHandler{provider: provider, sessions: sessions, workspaces: workspaces}
}

// Login POST /auth/login. Exchanges credentials with the upstream provider
// and wraps the issued bearer token in a console session.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, upstreamToken, err := h.provider.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	signed, session, err := h.sessions.Issue(user, upstreamToken)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     auth.SessionCookie,
		Value:    signed,
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return c.JSON(dto.SessionResponse{Token: signed, User: dto.FromUser(user)})
}

// Logout POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if session, ok := auth.SessionFromContext(c); ok {
		h.sessions.Invalidate(session.ID)
		h.workspaces.Drop(session.ID)
	}
	c.Cookie(&fiber.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return c.JSON(fiber.Map{"message": "logged out"})
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(dto.SessionResponse{User: dto.FromUser(session.User)})
}
