package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/ticket-console/internal/domain"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// CredentialProvider exchanges credentials for an upstream bearer token and
// an identity record. The provider itself is an external collaborator; this
// is just its HTTP edge.
type CredentialProvider struct {
	baseURL string
	http    *http.Client
}

// NewCredentialProvider constructs a provider against the support backend's
// auth endpoint.
func NewCredentialProvider(baseURL string, timeout time.Duration) *CredentialProvider {
	return &CredentialProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"_id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}

// Login authenticates against the upstream provider.
func (p *CredentialProvider) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return domain.User{}, "", apperrors.NewValidationError("email and password are required", nil)
	}

	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return domain.User{}, "", apperrors.NewInternalError(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return domain.User{}, "", apperrors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return domain.User{}, "", apperrors.NewUpstreamError("credential provider unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return domain.User{}, "", apperrors.NewUnauthorized("invalid credentials")
	case resp.StatusCode >= 400:
		return domain.User{}, "", apperrors.NewUpstreamError("credential provider error", nil)
	}

	var parsed loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.User{}, "", apperrors.NewShapeError("malformed login response", err)
	}
	user := domain.User{
		ID:    parsed.User.ID,
		Name:  parsed.User.Name,
		Email: parsed.User.Email,
		Role:  domain.Role(parsed.User.Role),
	}
	return user, parsed.Token, nil
}
