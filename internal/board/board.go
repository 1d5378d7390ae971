package board

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/directory"
	"github.com/spec-kit/ticket-console/internal/domain"
	"github.com/spec-kit/ticket-console/internal/lifecycle"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// Lanes groups a technician's tickets into the three work-in-progress
// columns. Lane membership is exact display-status equality, so a ticket is
// in at most one lane; Pending and Closed tickets are fetched but shown in
// none.
type Lanes struct {
	InProgress []domain.TechnicianTicket
	WorkingOn  []domain.TechnicianTicket
	Resolved   []domain.TechnicianTicket
}

// Action is a transition control offered on a card.
type Action string

const (
	// ActionStartWork moves an In Progress ticket to Working On.
	ActionStartWork Action = "start_work"
	// ActionResolve moves a Working On ticket to Resolved and requires
	// resolution text (auto-filled when the technician supplies none).
	ActionResolve Action = "resolve"
)

// Board is the technician workflow: one technician's ticket cache, the three
// lanes, the detail selection, and the legal transitions.
type Board struct {
	mu sync.Mutex

	technicianID string
	client       *directory.Client
	notifier     *lifecycle.Notifier
	logger       *zap.Logger
	onUpdate     func()

	tickets    []domain.TechnicianTicket
	selectedID string
	loading    bool
}

// New creates a board for one technician. onUpdate runs after every
// confirmed mutation so a parent view (the stats header) can recompute; it
// may be nil.
func New(technicianID string, client *directory.Client, notifier *lifecycle.Notifier, onUpdate func(), logger *zap.Logger) *Board {
	return &Board{
		technicianID: technicianID,
		client:       client,
		notifier:     notifier,
		onUpdate:     onUpdate,
		logger:       logger,
	}
}

// Refresh re-fetches every ticket for this technician and replaces the cache
// wholesale. Refreshes are idempotent full replacements, so out-of-order
// completion cannot corrupt state.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	b.loading = true
	b.mu.Unlock()

	tickets, err := b.client.ListTechnicianTickets(ctx, b.technicianID)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = false
	if err != nil {
		return err
	}
	b.tickets = tickets
	return nil
}

// Lanes returns the current three-column grouping.
func (b *Board) Lanes() Lanes {
	b.mu.Lock()
	defer b.mu.Unlock()
	var lanes Lanes
	for _, t := range b.tickets {
		switch t.Status {
		case domain.DisplayStatusInProgress:
			lanes.InProgress = append(lanes.InProgress, t)
		case domain.DisplayStatusWorkingOn:
			lanes.WorkingOn = append(lanes.WorkingOn, t)
		case domain.DisplayStatusResolved:
			lanes.Resolved = append(lanes.Resolved, t)
		}
	}
	return lanes
}

// ActionsFor returns the transitions legal on a ticket: exactly one of
// start-work (In Progress cards) or resolve (Working On cards), and none on
// anything else.
func ActionsFor(ticket domain.TechnicianTicket) []Action {
	switch ticket.Status {
	case domain.DisplayStatusInProgress:
		return []Action{ActionStartWork}
	case domain.DisplayStatusWorkingOn:
		return []Action{ActionResolve}
	}
	return nil
}

// StartWork transitions an In Progress ticket to Working On.
func (b *Board) StartWork(ctx context.Context, ticketID string) (*domain.TechnicianTicket, error) {
	return b.transition(ctx, ticketID, domain.DisplayStatusInProgress, domain.DisplayStatusWorkingOn, "")
}

// Resolve transitions a Working On ticket to Resolved. Empty resolution text
// is replaced with the default so a resolved ticket always carries one.
func (b *Board) Resolve(ctx context.Context, ticketID, resolution string) (*domain.TechnicianTicket, error) {
	return b.transition(ctx, ticketID, domain.DisplayStatusWorkingOn, domain.DisplayStatusResolved, resolution)
}

// transition submits a status update after checking the move is legal from
// the ticket's current status. On confirmation the one ticket is replaced in
// the cache (no full re-fetch), the update callback fires, and a lifecycle
// signal is broadcast for independently mounted views.
func (b *Board) transition(ctx context.Context, ticketID string, from, to domain.DisplayStatus, resolution string) (*domain.TechnicianTicket, error) {
	b.mu.Lock()
	current := b.findLocked(ticketID)
	if current == nil {
		b.mu.Unlock()
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if current.Status != from {
		status := current.Status
		b.mu.Unlock()
		return nil, apperrors.NewConflict("transition not allowed from current status",
			map[string]any{"status": string(status)})
	}
	b.loading = true
	b.mu.Unlock()

	updated, err := b.client.UpdateTicketStatus(ctx, ticketID, to, resolution)

	b.mu.Lock()
	b.loading = false
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	for i := range b.tickets {
		if b.tickets[i].ID == updated.ID {
			b.tickets[i] = *updated
			break
		}
	}
	b.mu.Unlock()

	if b.onUpdate != nil {
		b.onUpdate()
	}
	if b.notifier != nil {
		b.notifier.Broadcast(ctx, updated.ID)
	}
	return updated, nil
}

// AddNote posts a note and then re-fetches all of this technician's tickets
// so list and detail stay consistent, re-selecting the same ticket so the
// panel neither goes stale nor vanishes.
func (b *Board) AddNote(ctx context.Context, ticketID, content string) error {
	if err := b.client.AddNote(ctx, ticketID, content); err != nil {
		return err
	}
	if err := b.Refresh(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	if b.findLocked(ticketID) != nil {
		b.selectedID = ticketID
	}
	b.mu.Unlock()
	return nil
}

// Select marks a ticket for the detail panel.
func (b *Board) Select(ticketID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findLocked(ticketID) == nil {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	b.selectedID = ticketID
	return nil
}

// Selected returns the selected ticket from the current cache, or nil when
// nothing is selected or the ticket left the technician's scope.
func (b *Board) Selected() *domain.TechnicianTicket {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selectedID == "" {
		return nil
	}
	if t := b.findLocked(b.selectedID); t != nil {
		copied := *t
		return &copied
	}
	return nil
}

// Ticket returns one ticket from the cache by id.
func (b *Board) Ticket(ticketID string) *domain.TechnicianTicket {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t := b.findLocked(ticketID); t != nil {
		copied := *t
		return &copied
	}
	return nil
}

// Stats recomputes the dashboard aggregate from the current cache. The
// result is always a wholesale replacement, never a partial update.
func (b *Board) Stats() domain.DashboardStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.ComputeStats(b.tickets)
}

// TechnicianID returns the owning technician.
func (b *Board) TechnicianID() string {
	return b.technicianID
}

// Loading reports whether a fetch or transition is in flight.
func (b *Board) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

func (b *Board) findLocked(ticketID string) *domain.TechnicianTicket {
	for i := range b.tickets {
		if b.tickets[i].ID == ticketID {
			return &b.tickets[i]
		}
	}
	return nil
}
