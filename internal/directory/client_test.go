package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/domain"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, handler http.Handler, onAuthFailure func()) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, 5*time.Second, staticToken("test-token"), onAuthFailure, zap.NewNop())
	return client, server
}

func ticketJSON(id, status, priority string, assigned bool) map[string]any {
	record := map[string]any{
		"_id":       id,
		"title":     "AC unit not cooling",
		"status":    status,
		"priority":  priority,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
		"updatedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if assigned {
		record["assignedTo"] = map[string]any{"_id": "tech-1", "name": "Alex Rivera"}
	}
	return record
}

func TestListTicketsNormalizesStatusAndAssignment(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/tickets", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("status"))
		_ = json.NewEncoder(w).Encode([]map[string]any{
			ticketJSON("t1", "open", "high", false),
			ticketJSON("t2", "in_progress", "low", true),
			ticketJSON("t3", "escalated", "", false),
		})
	}), nil)

	tickets, err := client.ListTickets(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, tickets, 3)

	assert.Equal(t, domain.DisplayStatusPending, tickets[0].Status)
	assert.Equal(t, domain.TicketPriorityHigh, tickets[0].Priority)
	assert.False(t, tickets[0].Assigned)
	assert.Nil(t, tickets[0].AssignedTo)

	assert.Equal(t, domain.DisplayStatusInProgress, tickets[1].Status)
	assert.True(t, tickets[1].Assigned)
	require.NotNil(t, tickets[1].AssignedTo)
	assert.Equal(t, "tech-1", tickets[1].AssignedTo.ID)

	// Unknown status codes pass through instead of breaking the list.
	assert.Equal(t, domain.DisplayStatus("escalated"), tickets[2].Status)
}

func TestListTicketsWithFilter(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		_ = json.NewEncoder(w).Encode([]map[string]any{})
	}), nil)

	tickets, err := client.ListTickets(context.Background(), domain.BackendStatusOpen)
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestAssignTicketLowercasesPriorityAndForcesAssigned(t *testing.T) {
	var payload map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tickets/t1/assign", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		// Server echo deliberately omits assignedTo to exercise the
		// client-side assigned override.
		_ = json.NewEncoder(w).Encode(ticketJSON("t1", "in_progress", "high", false))
	}), nil)

	ticket, err := client.AssignTicket(context.Background(), AssignmentInput{
		TicketID:     "t1",
		TechnicianID: "tech-1",
		Priority:     domain.TicketPriorityHigh,
		Notes:        "check the compressor",
	})
	require.NoError(t, err)

	assert.Equal(t, "tech-1", payload["technicianId"])
	assert.Equal(t, "high", payload["priority"])
	assert.Equal(t, "check the compressor", payload["notes"])
	assert.True(t, ticket.Assigned)
}

func TestAssignTicketRequiresTechnicianAndPriority(t *testing.T) {
	called := false
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}), nil)

	_, err := client.AssignTicket(context.Background(), AssignmentInput{TicketID: "t1"})
	assert.True(t, apperrors.IsValidation(err))
	assert.False(t, called, "incomplete assignment must not reach the network")
}

func TestUpdateTicketStatusFillsDefaultResolution(t *testing.T) {
	var payload map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		record := ticketJSON("t1", "resolved", "high", true)
		record["resolution"] = payload["resolution"]
		_ = json.NewEncoder(w).Encode(record)
	}), nil)

	ticket, err := client.UpdateTicketStatus(context.Background(), "t1", domain.DisplayStatusResolved, "  ")
	require.NoError(t, err)
	assert.Equal(t, "resolved", payload["status"])
	assert.Equal(t, DefaultResolution(), payload["resolution"])
	assert.Equal(t, DefaultResolution(), ticket.Resolution)
}

func TestUpdateTicketStatusRejectsUnknownLabel(t *testing.T) {
	called := false
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}), nil)

	_, err := client.UpdateTicketStatus(context.Background(), "t1", "Escalated", "")
	assert.True(t, apperrors.IsValidation(err))
	assert.False(t, called)
}

func TestAddNoteRejectsEmptyContent(t *testing.T) {
	called := false
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}), nil)

	err := client.AddNote(context.Background(), "t1", "   ")
	assert.True(t, apperrors.IsValidation(err))
	assert.False(t, called)
}

func TestAuthFailureClearsCredential(t *testing.T) {
	cleared := false
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), func() { cleared = true })

	_, err := client.ListTickets(context.Background(), "")
	assert.True(t, apperrors.IsAuthError(err))
	assert.True(t, cleared)
}

func TestListTechniciansFallsBackOnUpstreamFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), nil)

	technicians, err := client.ListTechnicians(context.Background())
	require.NoError(t, err)
	require.Len(t, technicians, 3)
	assert.Equal(t, "tech-1", technicians[0].ID)
}

func TestListTechniciansDoesNotMaskAuthFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}), nil)

	_, err := client.ListTechnicians(context.Background())
	assert.True(t, apperrors.IsAuthError(err))
}

func TestListTechnicianTicketsDegradesOnNonList(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tickets/technician/tech-1", r.URL.Path)
		assert.Equal(t, "open,in_progress,working_on,resolved", r.URL.Query().Get("status"))
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "unexpected shape"})
	}), nil)

	tickets, err := client.ListTechnicianTickets(context.Background(), "tech-1")
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestGetTicketNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), nil)

	_, err := client.GetTicket(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
}
