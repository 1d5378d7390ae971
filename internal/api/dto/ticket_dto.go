package dto

import (
	"time"

	"github.com/spec-kit/ticket-console/internal/board"
	"github.com/spec-kit/ticket-console/internal/domain"
)

// TicketResponse is the console's view of one ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Attachments []string              `json:"attachments"`
	Priority    domain.TicketPriority `json:"priority,omitempty"`
	Status      domain.DisplayStatus  `json:"status"`
	Assigned    bool                  `json:"assigned"`
	AssignedTo  *TechnicianResponse   `json:"assigned_to,omitempty"`
	Location    string                `json:"location,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// TechnicianTicketResponse adds the technician-scoped fields.
type TechnicianTicketResponse struct {
	TicketResponse
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerEmail string         `json:"customer_email,omitempty"`
	EstimatedTime string         `json:"estimated_time,omitempty"`
	Resolution    string         `json:"resolution,omitempty"`
	CompletedDate *time.Time     `json:"completed_date,omitempty"`
	Notes         []NoteResponse `json:"notes"`
	Actions       []board.Action `json:"actions"`
}

// NoteResponse is one entry of a ticket's note thread.
type NoteResponse struct {
	Content   string    `json:"content"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TechnicianResponse is a roster entry.
type TechnicianResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LanesResponse is the technician board grouping.
type LanesResponse struct {
	InProgress []TechnicianTicketResponse `json:"in_progress"`
	WorkingOn  []TechnicianTicketResponse `json:"working_on"`
	Resolved   []TechnicianTicketResponse `json:"resolved"`
}

// StatsResponse is the dashboard aggregate.
type StatsResponse struct {
	Assigned int `json:"assigned"`
	Working  int `json:"working"`
	Resolved int `json:"resolved"`
	Total    int `json:"total"`
}

// PendingEditRequest updates the dispatcher's unsaved assignment fields.
type PendingEditRequest struct {
	Priority     string `json:"priority"`
	TechnicianID string `json:"technician_id"`
	Notes        string `json:"notes"`
}

// ResolveRequest carries optional resolution text.
type ResolveRequest struct {
	Resolution string `json:"resolution"`
}

// NoteRequest carries new note content.
type NoteRequest struct {
	Content string `json:"content"`
}

// FromTicket converts a domain ticket.
func FromTicket(t domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Attachments: t.Attachments,
		Priority:    t.Priority,
		Status:      t.Status,
		Assigned:    t.Assigned,
		Location:    t.Location,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.AssignedTo != nil {
		resp.AssignedTo = &TechnicianResponse{ID: t.AssignedTo.ID, Name: t.AssignedTo.Name}
	}
	return resp
}

// FromTechnicianTicket converts a technician-scoped ticket, including the
// transition actions legal on its card.
func FromTechnicianTicket(t domain.TechnicianTicket) TechnicianTicketResponse {
	resp := TechnicianTicketResponse{
		TicketResponse: FromTicket(t.Ticket),
		CustomerName:   t.CustomerName,
		CustomerEmail:  t.CustomerEmail,
		EstimatedTime:  t.EstimatedTime,
		Resolution:     t.Resolution,
		CompletedDate:  t.CompletedDate,
		Notes:          make([]NoteResponse, 0, len(t.Notes)),
		Actions:        board.ActionsFor(t),
	}
	for _, n := range t.Notes {
		resp.Notes = append(resp.Notes, NoteResponse{
			Content:   n.Content,
			CreatedBy: n.CreatedBy,
			CreatedAt: n.CreatedAt,
		})
	}
	return resp
}

// FromLanes converts a board grouping.
func FromLanes(lanes board.Lanes) LanesResponse {
	return LanesResponse{
		InProgress: fromTechnicianTickets(lanes.InProgress),
		WorkingOn:  fromTechnicianTickets(lanes.WorkingOn),
		Resolved:   fromTechnicianTickets(lanes.Resolved),
	}
}

// FromStats converts the dashboard aggregate.
func FromStats(stats domain.DashboardStats) StatsResponse {
	return StatsResponse{
		Assigned: stats.Assigned,
		Working:  stats.Working,
		Resolved: stats.Resolved,
		Total:    stats.Total,
	}
}

func fromTechnicianTickets(tickets []domain.TechnicianTicket) []TechnicianTicketResponse {
	result := make([]TechnicianTicketResponse, 0, len(tickets))
	for _, t := range tickets {
		result = append(result, FromTechnicianTicket(t))
	}
	return result
}
