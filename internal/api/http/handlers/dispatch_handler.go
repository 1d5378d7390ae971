package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-console/internal/api/dto"
	"github.com/spec-kit/ticket-console/internal/auth"
	"github.com/spec-kit/ticket-console/internal/console"
	"github.com/spec-kit/ticket-console/internal/domain"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// DispatchHandler drives the dispatcher's assignment console.
type DispatchHandler struct {
	workspaces *Workspaces
}

// NewDispatchHandler constructs handler.
func NewDispatchHandler(workspaces *Workspaces) *DispatchHandler {
	return &DispatchHandler{workspaces: workspaces}
}

func (h *DispatchHandler) consoleFor(c *fiber.Ctx) (*console.Console, error) {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return h.workspaces.ConsoleFor(session), nil
}

// ListTickets GET /api/dispatch/tickets. An explicit ?status= filter (backend
// code or "all") replaces the default unassigned-only view and re-queries.
func (h *DispatchHandler) ListTickets(c *fiber.Ctx) error {
	view, err := h.consoleFor(c)
	if err != nil {
		return err
	}
	if filter := c.Query("status"); filter != "" {
		if err := view.SetFilter(c.Context(), filter); err != nil {
			return err
		}
	} else if err := view.Refresh(c.Context()); err != nil {
		return err
	}

	tickets := view.Tickets()
	items := make([]dto.TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		items = append(items, dto.FromTicket(t))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Select POST /api/dispatch/tickets/:id/select. Selecting discards any
// unsaved pending edits and pre-fills from the ticket's stored assignment.
func (h *DispatchHandler) Select(c *fiber.Ctx) error {
	view, err := h.consoleFor(c)
	if err != nil {
		return err
	}
	ticketID := c.Params("id")
	if err := view.Select(ticketID); err != nil {
		// The ticket may have arrived since the last fetch.
		if refreshErr := view.Refresh(c.Context()); refreshErr != nil {
			return refreshErr
		}
		if err := view.Select(ticketID); err != nil {
			return err
		}
	}
	return h.selectionState(c, view)
}

// Edit PUT /api/dispatch/selection. Updates the pending assignment fields.
func (h *DispatchHandler) Edit(c *fiber.Ctx) error {
	view, err := h.consoleFor(c)
	if err != nil {
		return err
	}
	var req dto.PendingEditRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	edit := console.PendingEdit{
		Priority:     domain.TicketPriority(req.Priority),
		TechnicianID: req.TechnicianID,
		Notes:        req.Notes,
	}
	if err := view.Edit(edit); err != nil {
		return err
	}
	return h.selectionState(c, view)
}

// Assign POST /api/dispatch/selection/assign. Submits the pending
// assignment; the gate (technician + priority + non-terminal) is enforced in
// the console.
func (h *DispatchHandler) Assign(c *fiber.Ctx) error {
	view, err := h.consoleFor(c)
	if err != nil {
		return err
	}
	updated, err := view.Submit(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(*updated)})
}

// Technicians GET /api/dispatch/technicians.
func (h *DispatchHandler) Technicians(c *fiber.Ctx) error {
	view, err := h.consoleFor(c)
	if err != nil {
		return err
	}
	technicians, err := view.Technicians(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.TechnicianResponse, 0, len(technicians))
	for _, t := range technicians {
		items = append(items, dto.TechnicianResponse{ID: t.ID, Name: t.Name})
	}
	return c.JSON(fiber.Map{"data": items})
}

func (h *DispatchHandler) selectionState(c *fiber.Ctx, view *console.Console) error {
	selected := view.Selected()
	if selected == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	pending := view.Pending()
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket": dto.FromTicket(*selected),
		"pending": fiber.Map{
			"priority":      pending.Priority,
			"technician_id": pending.TechnicianID,
			"notes":         pending.Notes,
		},
		"can_submit": view.CanSubmit(),
	}})
}
