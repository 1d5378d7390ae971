package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/domain"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// CredentialSource supplies the bearer token attached to every request.
// The credential provider itself is an external collaborator; this client
// only reads the token and reports when it has been rejected.
type CredentialSource interface {
	Token() string
}

// statusUnion is the technician-scoped fetch filter: active work plus
// recently resolved tickets, so the board can show both.
const statusUnion = "open,in_progress,working_on,resolved"

// defaultResolution is filled in when a technician resolves a ticket without
// supplying resolution text. A resolved ticket never carries an empty
// resolution.
const defaultResolution = "Issue resolved by technician"

// defaultRoster keeps assignment possible when the technician directory
// service is degraded. Availability over consistency; the trade-off is
// deliberate.
var defaultRoster = []domain.Technician{
	{ID: "tech-1", Name: "Alex Rivera"},
	{ID: "tech-2", Name: "Priya Natarajan"},
	{ID: "tech-3", Name: "Marcus Webb"},
}

// AssignmentInput describes a dispatcher assignment submission.
type AssignmentInput struct {
	TicketID     string
	TechnicianID string
	Priority     domain.TicketPriority
	Notes        string
}

// Client is the only component that speaks to the support backend for ticket
// data. It is stateless: every call is a fresh round trip, and callers own
// whatever caching they do.
type Client struct {
	baseURL       string
	http          *http.Client
	creds         CredentialSource
	onAuthFailure func()
	logger        *zap.Logger
}

// NewClient constructs a directory client. onAuthFailure runs whenever the
// backend answers 401/403; it must clear the stored credential so the caller
// is routed back to login. It may be nil.
func NewClient(baseURL string, timeout time.Duration, creds CredentialSource, onAuthFailure func(), logger *zap.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{Timeout: timeout},
		creds:         creds,
		onAuthFailure: onAuthFailure,
		logger:        logger,
	}
}

// ListTickets returns all tickets, optionally narrowed by backend status
// code. An empty filter omits the status parameter entirely.
func (c *Client) ListTickets(ctx context.Context, statusFilter domain.BackendStatus) ([]domain.Ticket, error) {
	path := "/tickets"
	if statusFilter != "" {
		path += "?status=" + url.QueryEscape(string(statusFilter))
	}
	var records []ticketRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(records))
	for _, r := range records {
		tickets = append(tickets, r.toTicket())
	}
	return tickets, nil
}

// GetTicket fetches a single ticket by id.
func (c *Client) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	var record ticketRecord
	if err := c.do(ctx, http.MethodGet, "/tickets/"+url.PathEscape(id), nil, &record); err != nil {
		return nil, err
	}
	ticket := record.toTicket()
	return &ticket, nil
}

// ListTechnicianTickets fetches one technician's tickets across active and
// recently resolved statuses. A response that is not a list degrades to an
// empty result with a log line; the board renders empty rather than crashing.
func (c *Client) ListTechnicianTickets(ctx context.Context, technicianID string) ([]domain.TechnicianTicket, error) {
	path := "/tickets/technician/" + url.PathEscape(technicianID) + "?status=" + url.QueryEscape(statusUnion)
	body, err := c.doRaw(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var records []ticketRecord
	if err := json.Unmarshal(body, &records); err != nil {
		c.logger.Warn("technician ticket response is not a list; treating as empty",
			zap.String("technician_id", technicianID), zap.Error(err))
		return []domain.TechnicianTicket{}, nil
	}
	tickets := make([]domain.TechnicianTicket, 0, len(records))
	for _, r := range records {
		tickets = append(tickets, r.toTechnicianTicket())
	}
	return tickets, nil
}

// AssignTicket submits a dispatcher assignment. Priority is lower-cased for
// the backend's case-insensitive contract. The returned ticket is reported
// assigned regardless of the server echo: a confirmed assignment must read
// as assigned without waiting for a second fetch.
func (c *Client) AssignTicket(ctx context.Context, input AssignmentInput) (*domain.Ticket, error) {
	if input.TechnicianID == "" || input.Priority == "" {
		return nil, apperrors.NewValidationError("technician and priority are required", nil)
	}
	payload := map[string]any{
		"technicianId": input.TechnicianID,
		"priority":     strings.ToLower(string(input.Priority)),
	}
	if strings.TrimSpace(input.Notes) != "" {
		payload["notes"] = input.Notes
	}
	var record ticketRecord
	path := "/tickets/" + url.PathEscape(input.TicketID) + "/assign"
	if err := c.do(ctx, http.MethodPut, path, payload, &record); err != nil {
		return nil, err
	}
	ticket := record.toTicket()
	ticket.Assigned = true
	return &ticket, nil
}

// UpdateTicketStatus reverse-maps the display status and submits it, with
// resolution text when transitioning into Resolved. An unmappable label is
// rejected before any network call.
func (c *Client) UpdateTicketStatus(ctx context.Context, ticketID string, status domain.DisplayStatus, resolution string) (*domain.TechnicianTicket, error) {
	code, ok := domain.BackendFor(status)
	if !ok {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unknown status %q", status),
			map[string]any{"status": string(status)})
	}
	payload := map[string]any{"status": string(code)}
	if status == domain.DisplayStatusResolved {
		if strings.TrimSpace(resolution) == "" {
			resolution = defaultResolution
		}
		payload["resolution"] = resolution
	}
	var record ticketRecord
	if err := c.do(ctx, http.MethodPut, "/tickets/"+url.PathEscape(ticketID), payload, &record); err != nil {
		return nil, err
	}
	ticket := record.toTechnicianTicket()
	return &ticket, nil
}

// AddNote appends a note to a ticket. Empty content never reaches the
// network. The caller re-fetches to observe the new note; nothing is
// appended optimistically.
func (c *Client) AddNote(ctx context.Context, ticketID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return apperrors.NewValidationError("note content is required", nil)
	}
	payload := map[string]any{"content": content}
	var response struct {
		Message string `json:"message"`
	}
	return c.do(ctx, http.MethodPost, "/tickets/"+url.PathEscape(ticketID)+"/notes", payload, &response)
}

// ListTechnicians looks up the technician roster. A degraded directory
// service falls back to the built-in roster so assignment stays possible.
func (c *Client) ListTechnicians(ctx context.Context) ([]domain.Technician, error) {
	var records []technicianRecord
	if err := c.do(ctx, http.MethodGet, "/technicians", nil, &records); err != nil {
		if apperrors.IsAuthError(err) {
			return nil, err
		}
		c.logger.Warn("technician directory unavailable; using built-in roster", zap.Error(err))
		return append([]domain.Technician(nil), defaultRoster...), nil
	}
	technicians := make([]domain.Technician, 0, len(records))
	for _, r := range records {
		technicians = append(technicians, domain.Technician{ID: r.ID, Name: r.Name})
	}
	return technicians, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	body, err := c.doRaw(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewShapeError("malformed response from support backend", err)
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError("support backend unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewUpstreamError("reading support backend response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		if c.onAuthFailure != nil {
			c.onAuthFailure()
		}
		return nil, apperrors.NewUnauthorized("session rejected by support backend")
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.NewNotFound("ticket", map[string]any{"path": path})
	case resp.StatusCode >= 500:
		return nil, apperrors.NewUpstreamError(
			fmt.Sprintf("support backend returned %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return nil, apperrors.NewDomainError("UPSTREAM_REJECTED",
			fmt.Sprintf("support backend rejected request with %d", resp.StatusCode),
			resp.StatusCode, nil)
	}
	return body, nil
}

// DefaultResolution exposes the auto-filled resolution text.
func DefaultResolution() string {
	return defaultResolution
}
