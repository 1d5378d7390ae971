package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

const sessionKey = "console_session"

// SessionCookie is the cookie carrying the console session token.
const SessionCookie = "console_session"

// Middleware loads the console session for protected routes.
type Middleware struct {
	sessions *SessionManager
}

// NewMiddleware constructs middleware.
func NewMiddleware(sessions *SessionManager) *Middleware {
	return &Middleware{sessions: sessions}
}

// Handle enforces authentication. The token is read from the Authorization
// header or, for browser clients, the session cookie.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	tokenStr := bearerToken(c)
	if tokenStr == "" {
		tokenStr = c.Cookies(SessionCookie)
	}
	if tokenStr == "" {
		return apperrors.NewUnauthorized("missing session token")
	}

	session, err := m.sessions.Parse(tokenStr)
	if err != nil {
		return apperrors.NewUnauthorized("invalid session")
	}

	c.Locals(sessionKey, session)
	return c.Next()
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// SessionFromContext retrieves the authenticated session.
func SessionFromContext(c *fiber.Ctx) (*Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*Session)
	return session, ok
}
