package directory

import (
	"time"

	"github.com/spec-kit/ticket-console/internal/domain"
)

// ticketRecord mirrors the support backend's ticket JSON shape.
type ticketRecord struct {
	ID            string            `json:"_id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Category      string            `json:"category"`
	Attachments   []string          `json:"attachments"`
	Priority      string            `json:"priority"`
	Status        string            `json:"status"`
	AssignedTo    *assigneeRecord   `json:"assignedTo"`
	Location      string            `json:"location"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	CustomerName  string            `json:"customerName"`
	CustomerEmail string            `json:"customerEmail"`
	EstimatedTime string            `json:"estimatedTime"`
	Resolution    string            `json:"resolution"`
	CompletedDate *time.Time        `json:"completedDate"`
	Notes         []noteRecord      `json:"notes"`
}

type assigneeRecord struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type noteRecord struct {
	Content   string    `json:"content"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type technicianRecord struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// toTicket normalizes a backend record into the display vocabulary and
// derives the Assigned flag.
func (r ticketRecord) toTicket() domain.Ticket {
	ticket := domain.Ticket{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Attachments: r.Attachments,
		Priority:    normalizePriority(r.Priority),
		Status:      domain.DisplayFor(domain.BackendStatus(r.Status)),
		Location:    r.Location,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.AssignedTo != nil {
		ticket.AssignedTo = &domain.Technician{ID: r.AssignedTo.ID, Name: r.AssignedTo.Name}
		ticket.Assigned = true
	}
	return ticket
}

func (r ticketRecord) toTechnicianTicket() domain.TechnicianTicket {
	ticket := domain.TechnicianTicket{
		Ticket:        r.toTicket(),
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		EstimatedTime: r.EstimatedTime,
		Resolution:    r.Resolution,
		CompletedDate: r.CompletedDate,
	}
	for _, n := range r.Notes {
		ticket.Notes = append(ticket.Notes, domain.Note{
			Content:   n.Content,
			CreatedBy: n.CreatedBy,
			CreatedAt: n.CreatedAt,
		})
	}
	return ticket
}

// normalizePriority maps the lower-cased wire value back to display casing.
func normalizePriority(raw string) domain.TicketPriority {
	switch raw {
	case "low":
		return domain.TicketPriorityLow
	case "medium":
		return domain.TicketPriorityMedium
	case "high":
		return domain.TicketPriorityHigh
	case "urgent":
		return domain.TicketPriorityUrgent
	case "":
		return ""
	}
	return domain.TicketPriority(raw)
}
