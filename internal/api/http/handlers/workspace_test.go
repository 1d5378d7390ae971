package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticket-console/internal/auth"
	"github.com/spec-kit/ticket-console/internal/console"
	"github.com/spec-kit/ticket-console/internal/domain"
	"github.com/spec-kit/ticket-console/internal/lifecycle"
	"github.com/spec-kit/ticket-console/internal/observability"
	"github.com/spec-kit/ticket-console/internal/supportstub"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

func newWorkspaces(t *testing.T, upstreamURL string, pollInterval time.Duration, notifier *lifecycle.Notifier) (*Workspaces, *auth.SessionManager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sessions := auth.NewSessionManager("test-secret", 60)
	return NewWorkspaces(WorkspaceConfig{
		BaseCtx:         ctx,
		UpstreamBaseURL: upstreamURL,
		UpstreamTimeout: 5 * time.Second,
		PollInterval:    pollInterval,
		Sessions:        sessions,
		Notifier:        notifier,
		Metrics:         observability.NewMetrics(),
		Logger:          zap.NewNop(),
	}), sessions
}

func (w *Workspaces) hasWorkspace(sessionID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, console := w.consoles[sessionID]
	_, board := w.boards[sessionID]
	return console || board
}

func TestAuthFailureTearsDownBoardWorkspace(t *testing.T) {
	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(upstream.Close)

	notifier := lifecycle.NewNotifier(lifecycle.NewInMemoryDispatcher(), nil, "test", zap.NewNop())
	ws, sessions := newWorkspaces(t, upstream.URL, 5*time.Millisecond, notifier)
	_, session, err := sessions.Issue(domain.User{ID: "tech-1", Role: domain.RoleTechnician}, "revoked-token")
	require.NoError(t, err)

	view := ws.BoardFor(session)
	err = view.Refresh(context.Background())
	require.True(t, apperrors.IsAuthError(err))

	// The rejected credential unmounted the workspace.
	assert.False(t, ws.hasWorkspace(session.ID))

	// The poller must stop re-fetching with the revoked token.
	time.Sleep(30 * time.Millisecond)
	settled := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, calls.Load(), "no upstream calls after teardown")
}

func TestAuthFailureTearsDownConsoleWorkspace(t *testing.T) {
	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(upstream.Close)

	notifier := lifecycle.NewNotifier(lifecycle.NewInMemoryDispatcher(), nil, "test", zap.NewNop())
	ws, sessions := newWorkspaces(t, upstream.URL, time.Hour, notifier)
	_, session, err := sessions.Issue(domain.User{ID: "disp-1", Role: domain.RoleDispatcher}, "revoked-token")
	require.NoError(t, err)

	view := ws.ConsoleFor(session)
	err = view.Refresh(context.Background())
	require.True(t, apperrors.IsAuthError(err))
	assert.False(t, ws.hasWorkspace(session.ID))

	// The broadcast subscription was cancelled with the workspace: a later
	// signal triggers no refresh against the upstream.
	settled := calls.Load()
	notifier.Broadcast(context.Background(), "t1")
	assert.Equal(t, settled, calls.Load())
}

func TestExpiredWorkspacesReaped(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(upstream.Close)

	notifier := lifecycle.NewNotifier(lifecycle.NewInMemoryDispatcher(), nil, "test", zap.NewNop())
	ws, sessions := newWorkspaces(t, upstream.URL, time.Hour, notifier)

	expiring := &auth.Session{
		ID:            "sess-expiring",
		User:          domain.User{ID: "tech-1", Role: domain.RoleTechnician},
		UpstreamToken: "tok",
		ExpiresAt:     time.Now().Add(20 * time.Millisecond),
	}
	ws.BoardFor(expiring)
	ws.ConsoleFor(expiring)
	require.True(t, ws.hasWorkspace(expiring.ID))

	time.Sleep(30 * time.Millisecond)

	// Any workspace access reaps entries whose session has expired.
	_, fresh, err := sessions.Issue(domain.User{ID: "tech-2", Role: domain.RoleTechnician}, "tok")
	require.NoError(t, err)
	ws.BoardFor(fresh)

	assert.False(t, ws.hasWorkspace(expiring.ID))
	assert.True(t, ws.hasWorkspace(fresh.ID))
}

// startStubWorkspace boots the seeded support stub and returns a Workspaces
// registry plus sessions for one dispatcher and one technician, both holding
// real stub-issued upstream tokens.
func startStubWorkspace(t *testing.T, pollInterval time.Duration) (*Workspaces, *supportstub.MemoryStore, *auth.Session, *auth.Session) {
	t.Helper()

	store := supportstub.NewMemoryStore()
	require.NoError(t, store.Seed(bcrypt.MinCost))

	stubApp := fiber.New(fiber.Config{ErrorHandler: supportstub.ErrorHandler})
	supportstub.NewServer(store, zap.NewNop(), "stub-secret", 60).Register(stubApp)
	stubServer := httptest.NewServer(adaptor.FiberApp(stubApp))
	t.Cleanup(stubServer.Close)
	baseURL := stubServer.URL + "/support"

	notifier := lifecycle.NewNotifier(lifecycle.NewInMemoryDispatcher(), nil, "test", zap.NewNop())
	ws, sessions := newWorkspaces(t, baseURL, pollInterval, notifier)

	provider := auth.NewCredentialProvider(baseURL, 5*time.Second)
	dispUser, dispToken, err := provider.Login(context.Background(), "dispatcher@example.com", "password123")
	require.NoError(t, err)
	_, dispSession, err := sessions.Issue(dispUser, dispToken)
	require.NoError(t, err)

	techUser, techToken, err := provider.Login(context.Background(), "alex@example.com", "password123")
	require.NoError(t, err)
	_, techSession, err := sessions.Issue(techUser, techToken)
	require.NoError(t, err)

	return ws, store, dispSession, techSession
}

// A technician-side mutation must show up in an independently mounted
// dispatcher console through the broadcast alone, with no manual re-query.
func TestBoardMutationRefreshesSubscribedConsole(t *testing.T) {
	ws, store, dispSession, techSession := startStubWorkspace(t, time.Hour)
	ticketID := store.AddTicket(supportstub.Ticket{
		Title:      "Rooftop unit icing",
		Status:     "in_progress",
		AssignedTo: &supportstub.Assignee{ID: "tech-1", Name: "Alex Rivera"},
	})

	consoleView := ws.ConsoleFor(dispSession)
	require.NoError(t, consoleView.SetFilter(context.Background(), console.FilterAll))

	boardView := ws.BoardFor(techSession)
	require.NoError(t, boardView.Refresh(context.Background()))

	_, err := boardView.StartWork(context.Background(), ticketID)
	require.NoError(t, err)

	var found bool
	for _, ticket := range consoleView.Tickets() {
		if ticket.ID == ticketID {
			found = true
			assert.Equal(t, domain.DisplayStatusWorkingOn, ticket.Status)
		}
	}
	require.True(t, found, "mutated ticket visible in the console's cache")
	assert.GreaterOrEqual(t, ws.metrics.RefreshCount("console", "broadcast"), int64(1))
}

// With no subscription on the technician side, a dispatcher assignment must
// reach the board within one polling interval.
func TestConsoleAssignmentReachesPollingBoard(t *testing.T) {
	ws, store, dispSession, techSession := startStubWorkspace(t, 15*time.Millisecond)
	ticketID := store.AddTicket(supportstub.Ticket{Title: "Dough mixer jammed", Status: "open"})

	boardView := ws.BoardFor(techSession)
	require.NoError(t, boardView.Refresh(context.Background()))
	require.Nil(t, boardView.Ticket(ticketID))

	consoleView := ws.ConsoleFor(dispSession)
	require.NoError(t, consoleView.Refresh(context.Background()))
	require.NoError(t, consoleView.Select(ticketID))
	require.NoError(t, consoleView.Edit(console.PendingEdit{
		TechnicianID: "tech-1",
		Priority:     domain.TicketPriorityHigh,
	}))
	_, err := consoleView.Submit(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return boardView.Ticket(ticketID) != nil
	}, 2*time.Second, 5*time.Millisecond, "board converges via the poll interval")
	assert.Equal(t, domain.DisplayStatusInProgress, boardView.Ticket(ticketID).Status)
}
