package auth

import (
	"errors"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/ticket-console/internal/domain"
)

// Session is the console's view of one authenticated user: the identity
// record plus the opaque upstream bearer token it wraps.
type Session struct {
	ID            string
	User          domain.User
	UpstreamToken string
	ExpiresAt     time.Time
}

// Token returns the upstream bearer token, satisfying the directory client's
// credential source.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.UpstreamToken
}

// SessionManager issues and validates console session tokens. The upstream
// credential travels inside the signed session JWT; invalidating a session
// clears it, which is what a rejected upstream call requires.
type SessionManager struct {
	secret []byte
	ttl    time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewSessionManager builds a manager.
func NewSessionManager(secret string, ttlMinutes int) *SessionManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 480
	}
	return &SessionManager{
		secret:  []byte(secret),
		ttl:     time.Duration(ttlMinutes) * time.Minute,
		revoked: make(map[string]time.Time),
	}
}

// sessionClaims describes the session JWT payload.
type sessionClaims struct {
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Role          domain.Role `json:"role"`
	UpstreamToken string      `json:"upstream_token"`
	jwt.RegisteredClaims
}

// Issue signs a session token for the user and upstream credential.
func (m *SessionManager) Issue(user domain.User, upstreamToken string) (string, *Session, error) {
	now := time.Now()
	session := &Session{
		ID:            uuid.NewString(),
		User:          user,
		UpstreamToken: upstreamToken,
		ExpiresAt:     now.Add(m.ttl),
	}
	claims := &sessionClaims{
		Name:          user.Name,
		Email:         user.Email,
		Role:          user.Role,
		UpstreamToken: upstreamToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, session, nil
}

// Parse validates a session token, rejecting revoked sessions.
func (m *SessionManager) Parse(tokenStr string) (*Session, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid session claims")
	}
	if m.isRevoked(claims.ID) {
		return nil, errors.New("session revoked")
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return &Session{
		ID: claims.ID,
		User: domain.User{
			ID:    claims.Subject,
			Name:  claims.Name,
			Email: claims.Email,
			Role:  claims.Role,
		},
		UpstreamToken: claims.UpstreamToken,
		ExpiresAt:     expires,
	}, nil
}

// Invalidate revokes a session so its credential can no longer be used.
// Called on logout and whenever the upstream rejects the bearer token.
func (m *SessionManager) Invalidate(sessionID string) {
	if sessionID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[sessionID] = time.Now()
	m.pruneLocked()
}

func (m *SessionManager) isRevoked(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, revoked := m.revoked[sessionID]
	return revoked
}

// pruneLocked drops revocation entries older than the session TTL; their
// tokens have expired on their own by then.
func (m *SessionManager) pruneLocked() {
	cutoff := time.Now().Add(-m.ttl)
	for id, at := range m.revoked {
		if at.Before(cutoff) {
			delete(m.revoked, id)
		}
	}
}
