package console

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/directory"
	"github.com/spec-kit/ticket-console/internal/domain"
	"github.com/spec-kit/ticket-console/internal/lifecycle"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

// fakeSupport is a minimal mutable stand-in for the support backend, serving
// the wire shapes the directory client expects.
type fakeSupport struct {
	mu      sync.Mutex
	tickets []map[string]any
}

func (f *fakeSupport) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tickets", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		filter := r.URL.Query().Get("status")
		visible := make([]map[string]any, 0, len(f.tickets))
		for _, t := range f.tickets {
			if filter == "" || t["status"] == filter {
				visible = append(visible, t)
			}
		}
		_ = json.NewEncoder(w).Encode(visible)
	})
	mux.HandleFunc("PUT /tickets/{id}/assign", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TechnicianID string `json:"technicianId"`
			Priority     string `json:"priority"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, t := range f.tickets {
			if t["_id"] == r.PathValue("id") {
				t["assignedTo"] = map[string]any{"_id": req.TechnicianID, "name": "Alex Rivera"}
				t["priority"] = req.Priority
				if t["status"] == "open" {
					t["status"] = "in_progress"
				}
				_ = json.NewEncoder(w).Encode(t)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /technicians", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"_id": "tech-1", "name": "Alex Rivera"},
			{"_id": "tech-2", "name": "Priya Natarajan"},
		})
	})
	return mux
}

func wireTicket(id, status string, assigned bool) map[string]any {
	t := map[string]any{
		"_id":       id,
		"title":     "ticket " + id,
		"status":    status,
		"priority":  "low",
		"createdAt": time.Now().UTC().Format(time.RFC3339),
		"updatedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if assigned {
		t["assignedTo"] = map[string]any{"_id": "tech-2", "name": "Priya Natarajan"}
	}
	return t
}

func newTestConsole(t *testing.T, backend *fakeSupport, notifier *lifecycle.Notifier) *Console {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)
	client := directory.NewClient(server.URL, 5*time.Second, staticToken("tok"), nil, zap.NewNop())
	return New(client, notifier, zap.NewNop())
}

func TestDefaultViewShowsUnassignedOnly(t *testing.T) {
	backend := &fakeSupport{tickets: []map[string]any{
		wireTicket("t1", "open", false),
		wireTicket("t2", "in_progress", true),
		wireTicket("t3", "open", false),
	}}
	console := newTestConsole(t, backend, nil)

	require.NoError(t, console.Refresh(context.Background()))

	visible := console.Tickets()
	require.Len(t, visible, 2)
	for _, ticket := range visible {
		assert.False(t, ticket.Assigned)
	}
}

func TestSetFilterLeavesUnassignedView(t *testing.T) {
	backend := &fakeSupport{tickets: []map[string]any{
		wireTicket("t1", "open", false),
		wireTicket("t2", "in_progress", true),
	}}
	console := newTestConsole(t, backend, nil)

	require.NoError(t, console.SetFilter(context.Background(), "in_progress"))

	visible := console.Tickets()
	require.Len(t, visible, 1)
	assert.Equal(t, "t2", visible[0].ID)
	assert.True(t, visible[0].Assigned, "explicit filters show assigned tickets too")
}

func TestSelectResetsAndPrefillsPending(t *testing.T) {
	backend := &fakeSupport{tickets: []map[string]any{
		wireTicket("t1", "open", false),
		wireTicket("t2", "in_progress", true),
	}}
	console := newTestConsole(t, backend, nil)
	require.NoError(t, console.SetFilter(context.Background(), FilterAll))

	require.NoError(t, console.Select("t1"))
	require.NoError(t, console.Edit(PendingEdit{Notes: "draft notes", TechnicianID: "tech-1"}))

	// Re-selecting discards the draft and prefills from the assignment.
	require.NoError(t, console.Select("t2"))
	pending := console.Pending()
	assert.Empty(t, pending.Notes)
	assert.Equal(t, "tech-2", pending.TechnicianID)
	assert.Equal(t, domain.TicketPriorityLow, pending.Priority)
}

func TestSelectUnknownTicket(t *testing.T) {
	backend := &fakeSupport{}
	console := newTestConsole(t, backend, nil)
	require.NoError(t, console.Refresh(context.Background()))

	err := console.Select("missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCanSubmitGates(t *testing.T) {
	backend := &fakeSupport{tickets: []map[string]any{
		wireTicket("t1", "open", false),
		wireTicket("t2", "resolved", true),
	}}
	console := newTestConsole(t, backend, nil)
	require.NoError(t, console.SetFilter(context.Background(), FilterAll))

	assert.False(t, console.CanSubmit(), "nothing selected")

	require.NoError(t, console.Select("t1"))
	assert.False(t, console.CanSubmit(), "technician not chosen yet")

	require.NoError(t, console.Edit(PendingEdit{TechnicianID: "tech-1", Priority: domain.TicketPriorityHigh}))
	assert.True(t, console.CanSubmit())

	// A terminal ticket never submits, regardless of the pending fields.
	require.NoError(t, console.Select("t2"))
	require.NoError(t, console.Edit(PendingEdit{TechnicianID: "tech-1", Priority: domain.TicketPriorityHigh}))
	assert.False(t, console.CanSubmit())

	_, err := console.Submit(context.Background())
	assert.True(t, apperrors.IsValidation(err))
}

func TestSubmitUpdatesViewAndBroadcasts(t *testing.T) {
	backend := &fakeSupport{tickets: []map[string]any{
		wireTicket("t1", "open", false),
	}}
	notifier := lifecycle.NewNotifier(lifecycle.NewInMemoryDispatcher(), nil, "test", zap.NewNop())

	var broadcastID string
	sub := notifier.Subscribe(func(_ context.Context, signal lifecycle.Signal) error {
		broadcastID = signal.TicketID
		return nil
	})
	defer sub.Cancel()

	console := newTestConsole(t, backend, notifier)
	require.NoError(t, console.Refresh(context.Background()))
	require.NoError(t, console.Select("t1"))
	require.NoError(t, console.Edit(PendingEdit{TechnicianID: "tech-1", Priority: domain.TicketPriorityUrgent}))

	updated, err := console.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, updated.Assigned)
	assert.Equal(t, domain.TicketPriorityUrgent, updated.Priority)

	// The assigned ticket leaves the default unassigned view immediately,
	// while the selection keeps showing it.
	assert.Empty(t, console.Tickets())
	selected := console.Selected()
	require.NotNil(t, selected)
	assert.True(t, selected.Assigned)

	assert.Equal(t, "t1", broadcastID)
}

func TestTechnicians(t *testing.T) {
	backend := &fakeSupport{}
	console := newTestConsole(t, backend, nil)

	technicians, err := console.Technicians(context.Background())
	require.NoError(t, err)
	require.Len(t, technicians, 2)
	assert.Equal(t, "Alex Rivera", technicians[0].Name)
}

func TestRefreshKeepsSelection(t *testing.T) {
	backend := &fakeSupport{tickets: []map[string]any{
		wireTicket("t1", "open", false),
	}}
	console := newTestConsole(t, backend, nil)
	require.NoError(t, console.Refresh(context.Background()))
	require.NoError(t, console.Select("t1"))

	backend.mu.Lock()
	backend.tickets[0]["title"] = "ticket t1 updated"
	backend.mu.Unlock()

	require.NoError(t, console.Refresh(context.Background()))
	selected := console.Selected()
	require.NotNil(t, selected)
	assert.True(t, strings.HasSuffix(selected.Title, "updated"))
}
