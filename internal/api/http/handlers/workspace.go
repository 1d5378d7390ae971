package handlers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/auth"
	"github.com/spec-kit/ticket-console/internal/board"
	"github.com/spec-kit/ticket-console/internal/console"
	"github.com/spec-kit/ticket-console/internal/directory"
	"github.com/spec-kit/ticket-console/internal/lifecycle"
	"github.com/spec-kit/ticket-console/internal/observability"
)

// Workspaces owns one view controller per authenticated session: a console
// for dispatchers, a board for technicians. Each view holds its own
// independent ticket cache, consistent with every other view only through
// the poll/broadcast contract.
type Workspaces struct {
	mu       sync.Mutex
	consoles map[string]*consoleEntry
	boards   map[string]*boardEntry

	baseCtx         context.Context
	upstreamBaseURL string
	upstreamTimeout time.Duration
	pollInterval    time.Duration
	sessions        *auth.SessionManager
	notifier        *lifecycle.Notifier
	metrics         *observability.Metrics
	logger          *zap.Logger
}

type boardEntry struct {
	board     *board.Board
	cancel    context.CancelFunc
	expiresAt time.Time
}

type consoleEntry struct {
	console      *console.Console
	subscription *lifecycle.Subscription
	expiresAt    time.Time
}

// WorkspaceConfig bundles workspace dependencies.
type WorkspaceConfig struct {
	BaseCtx         context.Context
	UpstreamBaseURL string
	UpstreamTimeout time.Duration
	PollInterval    time.Duration
	Sessions        *auth.SessionManager
	Notifier        *lifecycle.Notifier
	Metrics         *observability.Metrics
	Logger          *zap.Logger
}

// NewWorkspaces creates the registry.
func NewWorkspaces(cfg WorkspaceConfig) *Workspaces {
	return &Workspaces{
		consoles:        make(map[string]*consoleEntry),
		boards:          make(map[string]*boardEntry),
		baseCtx:         cfg.BaseCtx,
		upstreamBaseURL: cfg.UpstreamBaseURL,
		upstreamTimeout: cfg.UpstreamTimeout,
		pollInterval:    cfg.PollInterval,
		sessions:        cfg.Sessions,
		notifier:        cfg.Notifier,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
	}
}

// clientFor builds a directory client bound to one session's credential.
// A 401/403 from the backend invalidates exactly that session and tears its
// workspace down; a revoked credential must not keep polling or listening.
func (w *Workspaces) clientFor(session *auth.Session) *directory.Client {
	sessionID := session.ID
	return directory.NewClient(
		w.upstreamBaseURL,
		w.upstreamTimeout,
		session,
		func() {
			w.sessions.Invalidate(sessionID)
			w.Drop(sessionID)
		},
		w.logger,
	)
}

// ConsoleFor returns the dispatcher console for a session, creating it on
// first use. The console subscribes to lifecycle signals for as long as the
// session workspace exists, so technician-side mutations show up without
// waiting for the next manual refresh.
func (w *Workspaces) ConsoleFor(session *auth.Session) *console.Console {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reapLocked(time.Now())
	if existing, ok := w.consoles[session.ID]; ok {
		return existing.console
	}

	view := console.New(w.clientFor(session), w.notifier, w.logger)
	subscription := w.notifier.Subscribe(func(ctx context.Context, _ lifecycle.Signal) error {
		w.metrics.RecordRefresh("console", "broadcast")
		return view.Refresh(ctx)
	})

	w.consoles[session.ID] = &consoleEntry{
		console:      view,
		subscription: subscription,
		expiresAt:    session.ExpiresAt,
	}
	return view
}

// BoardFor returns the technician board for a session, creating it on first
// use. A per-board poller re-fetches on the fixed interval for as long as
// the workspace lives; cancelling the workspace context is the unmount.
func (w *Workspaces) BoardFor(session *auth.Session) *board.Board {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reapLocked(time.Now())
	if existing, ok := w.boards[session.ID]; ok {
		return existing.board
	}

	view := board.New(
		session.User.ID,
		w.clientFor(session),
		w.notifier,
		func() { w.metrics.RecordRefresh("board", "mutation") },
		w.logger,
	)

	ctx, cancel := context.WithCancel(w.baseCtx)
	poller := lifecycle.NewPoller(w.pollInterval, func(ctx context.Context) {
		w.metrics.RecordRefresh("board", "poll")
		if err := view.Refresh(ctx); err != nil {
			w.logger.Warn("board poll refresh failed", zap.Error(err))
		}
	}, w.logger)
	go poller.Run(ctx)

	w.boards[session.ID] = &boardEntry{
		board:     view,
		cancel:    cancel,
		expiresAt: session.ExpiresAt,
	}
	return view
}

// Drop tears down a session's workspace: the console's broadcast subscription
// is cancelled and the board's poller stops. Called on logout and whenever
// the upstream rejects the session's credential.
func (w *Workspaces) Drop(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dropLocked(sessionID)
}

func (w *Workspaces) dropLocked(sessionID string) {
	if entry, ok := w.consoles[sessionID]; ok {
		entry.subscription.Cancel()
		delete(w.consoles, sessionID)
	}
	if entry, ok := w.boards[sessionID]; ok {
		entry.cancel()
		delete(w.boards, sessionID)
	}
}

// reapLocked drops workspaces whose session has passed its expiry. An
// expired session can never issue another request, so its views are
// unmounted the next time any workspace is touched.
func (w *Workspaces) reapLocked(now time.Time) {
	for id, entry := range w.consoles {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			w.dropLocked(id)
		}
	}
	for id, entry := range w.boards {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			w.dropLocked(id)
		}
	}
}
