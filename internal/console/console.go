package console

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/directory"
	"github.com/spec-kit/ticket-console/internal/domain"
	"github.com/spec-kit/ticket-console/internal/lifecycle"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// FilterAll is the sentinel filter value that omits the status parameter.
const FilterAll = "all"

// PendingEdit holds the three unsaved assignment fields. Selecting a
// different ticket always discards them; there is no draft persistence
// across selections.
type PendingEdit struct {
	Priority     domain.TicketPriority
	TechnicianID string
	Notes        string
}

// Console is the dispatcher workflow: the full ticket list, one selected
// ticket, and the pending assignment edits. It caches independently of every
// other view and reconciles through explicit re-fetches.
type Console struct {
	mu sync.Mutex

	client   *directory.Client
	notifier *lifecycle.Notifier
	logger   *zap.Logger

	tickets        []domain.Ticket
	selected       *domain.Ticket
	pending        PendingEdit
	statusFilter   string
	unassignedOnly bool
	loading        bool
}

// New creates a dispatcher console. The default view shows unassigned
// tickets only; an explicit status filter replaces that view.
func New(client *directory.Client, notifier *lifecycle.Notifier, logger *zap.Logger) *Console {
	return &Console{
		client:         client,
		notifier:       notifier,
		logger:         logger,
		statusFilter:   FilterAll,
		unassignedOnly: true,
	}
}

// Refresh re-queries the ticket list from the directory client and replaces
// the cache wholesale. The selected ticket is re-pointed at the refreshed
// copy when it is still present; the selection itself survives the refresh.
func (c *Console) Refresh(ctx context.Context) error {
	c.mu.Lock()
	filter := c.statusFilter
	c.loading = true
	c.mu.Unlock()

	var statusArg domain.BackendStatus
	if filter != FilterAll {
		statusArg = domain.BackendStatus(filter)
	}
	tickets, err := c.client.ListTickets(ctx, statusArg)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		return err
	}
	c.tickets = tickets
	if c.selected != nil {
		if fresh := findTicket(tickets, c.selected.ID); fresh != nil {
			c.selected = fresh
		}
	}
	return nil
}

// SetFilter changes the status filter and re-queries. Any backend status
// code is accepted plus the "all" sentinel. Choosing an explicit filter
// leaves the default unassigned-only view.
func (c *Console) SetFilter(ctx context.Context, filter string) error {
	c.mu.Lock()
	c.statusFilter = filter
	c.unassignedOnly = false
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Tickets returns the currently visible list: in the default view only
// unassigned tickets are shown.
func (c *Console) Tickets() []domain.Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.unassignedOnly {
		return append([]domain.Ticket(nil), c.tickets...)
	}
	visible := make([]domain.Ticket, 0, len(c.tickets))
	for _, t := range c.tickets {
		if !t.Assigned {
			visible = append(visible, t)
		}
	}
	return visible
}

// Select marks one ticket as selected and resets the pending edits,
// pre-filling them from the ticket's current assignment so re-opening an
// assigned ticket shows what is already stored.
func (c *Console) Select(ticketID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ticket := findTicket(c.tickets, ticketID)
	if ticket == nil {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	c.selected = ticket
	c.pending = PendingEdit{Priority: ticket.Priority}
	if ticket.AssignedTo != nil {
		c.pending.TechnicianID = ticket.AssignedTo.ID
	}
	return nil
}

// Selected returns the selected ticket, or nil.
func (c *Console) Selected() *domain.Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return nil
	}
	copied := *c.selected
	return &copied
}

// Edit updates the pending assignment fields for the selected ticket.
func (c *Console) Edit(edit PendingEdit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return apperrors.NewValidationError("no ticket selected", nil)
	}
	if edit.Priority != "" {
		c.pending.Priority = edit.Priority
	}
	if edit.TechnicianID != "" {
		c.pending.TechnicianID = edit.TechnicianID
	}
	if edit.Notes != "" {
		c.pending.Notes = edit.Notes
	}
	return nil
}

// Pending returns the current pending edit fields.
func (c *Console) Pending() PendingEdit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// CanSubmit reports whether the assignment action is enabled: a ticket is
// selected, both technician and priority are chosen, and the ticket is not
// terminal. This gate is the client's responsibility; the backend is not
// assumed to enforce it.
func (c *Console) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmitLocked()
}

func (c *Console) canSubmitLocked() bool {
	if c.selected == nil {
		return false
	}
	if c.selected.Status.Terminal() {
		return false
	}
	return c.pending.TechnicianID != "" && c.pending.Priority != ""
}

// Submit sends the pending assignment for the selected ticket. On success
// the visible list reflects the change immediately: in the unassigned view
// the ticket leaves the list while the detail selection keeps showing it as
// assigned. That one transient disagreement is documented behavior.
func (c *Console) Submit(ctx context.Context) (*domain.Ticket, error) {
	c.mu.Lock()
	if !c.canSubmitLocked() {
		c.mu.Unlock()
		return nil, apperrors.NewValidationError("assignment requires a non-terminal ticket, technician and priority", nil)
	}
	input := directory.AssignmentInput{
		TicketID:     c.selected.ID,
		TechnicianID: c.pending.TechnicianID,
		Priority:     c.pending.Priority,
		Notes:        c.pending.Notes,
	}
	c.loading = true
	c.mu.Unlock()

	updated, err := c.client.AssignTicket(ctx, input)

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	for i := range c.tickets {
		if c.tickets[i].ID == updated.ID {
			c.tickets[i] = *updated
			break
		}
	}
	c.selected = updated
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.Broadcast(ctx, updated.ID)
	}
	return updated, nil
}

// Technicians returns the assignable roster.
func (c *Console) Technicians(ctx context.Context) ([]domain.Technician, error) {
	return c.client.ListTechnicians(ctx)
}

// Loading reports whether a fetch or submission is in flight.
func (c *Console) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func findTicket(tickets []domain.Ticket, id string) *domain.Ticket {
	for i := range tickets {
		if tickets[i].ID == id {
			return &tickets[i]
		}
	}
	return nil
}
