package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-console/internal/api/dto"
	"github.com/spec-kit/ticket-console/internal/auth"
	"github.com/spec-kit/ticket-console/internal/board"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// BoardHandler drives the technician's board.
type BoardHandler struct {
	workspaces *Workspaces
}

// NewBoardHandler constructs handler.
func NewBoardHandler(workspaces *Workspaces) *BoardHandler {
	return &BoardHandler{workspaces: workspaces}
}

func (h *BoardHandler) boardFor(c *fiber.Ctx) (*board.Board, error) {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return h.workspaces.BoardFor(session), nil
}

// View GET /api/board. Re-fetches and returns the three lanes plus stats.
func (h *BoardHandler) View(c *fiber.Ctx) error {
	view, err := h.boardFor(c)
	if err != nil {
		return err
	}
	if err := view.Refresh(c.Context()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"lanes": dto.FromLanes(view.Lanes()),
		"stats": dto.FromStats(view.Stats()),
	}})
}

// Stats GET /api/board/stats. Serves the cached aggregate without a fetch;
// the poller keeps it fresh.
func (h *BoardHandler) Stats(c *fiber.Ctx) error {
	view, err := h.boardFor(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromStats(view.Stats())})
}

// StartWork POST /api/board/tickets/:id/start.
func (h *BoardHandler) StartWork(c *fiber.Ctx) error {
	view, err := h.boardFor(c)
	if err != nil {
		return err
	}
	updated, err := view.StartWork(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTechnicianTicket(*updated)})
}

// Resolve POST /api/board/tickets/:id/resolve.
func (h *BoardHandler) Resolve(c *fiber.Ctx) error {
	view, err := h.boardFor(c)
	if err != nil {
		return err
	}
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := view.Resolve(c.Context(), c.Params("id"), req.Resolution)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTechnicianTicket(*updated)})
}

// AddNote POST /api/board/tickets/:id/notes. The board re-fetches the whole
// technician list afterwards and keeps the same ticket selected.
func (h *BoardHandler) AddNote(c *fiber.Ctx) error {
	view, err := h.boardFor(c)
	if err != nil {
		return err
	}
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticketID := c.Params("id")
	if err := view.AddNote(c.Context(), ticketID, req.Content); err != nil {
		return err
	}
	refreshed := view.Ticket(ticketID)
	if refreshed == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": dto.FromTechnicianTicket(*refreshed)})
}

// Detail GET /api/board/tickets/:id. Serves the detail panel: full ticket,
// attachments and note thread.
func (h *BoardHandler) Detail(c *fiber.Ctx) error {
	view, err := h.boardFor(c)
	if err != nil {
		return err
	}
	ticketID := c.Params("id")
	ticket := view.Ticket(ticketID)
	if ticket == nil {
		if err := view.Refresh(c.Context()); err != nil {
			return err
		}
		ticket = view.Ticket(ticketID)
	}
	if ticket == nil {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	_ = view.Select(ticketID)
	return c.JSON(fiber.Map{"data": dto.FromTechnicianTicket(*ticket)})
}
