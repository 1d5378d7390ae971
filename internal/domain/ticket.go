package domain

import "time"

// TicketPriority enumerates urgency levels a dispatcher can assign.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
	TicketPriorityUrgent TicketPriority = "Urgent"
)

// Ticket is a unit of reported work tracked through the status lifecycle.
// Status carries the display vocabulary; the directory client normalizes the
// backend code on every read.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Category    string
	Attachments []string
	Priority    TicketPriority
	Status      DisplayStatus
	AssignedTo  *Technician
	Assigned    bool
	Location    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TechnicianTicket extends Ticket with the fields the technician board needs.
type TechnicianTicket struct {
	Ticket
	CustomerName  string
	CustomerEmail string
	EstimatedTime string
	Resolution    string
	CompletedDate *time.Time
	Notes         []Note
}

// Note is an append-only comment on a ticket. Notes are never edited or
// deleted once created.
type Note struct {
	Content   string
	CreatedBy string
	CreatedAt time.Time
}

// Technician identifies a member of the field-service roster. Read-only from
// this subsystem; sourced from the directory service.
type Technician struct {
	ID   string
	Name string
}

// DashboardStats is a point-in-time aggregate of one technician's tickets by
// status bucket. It is recomputed wholesale after every fetch, never patched.
type DashboardStats struct {
	Assigned int
	Working  int
	Resolved int
	Total    int
}

// ComputeStats derives dashboard counters from a technician's ticket list.
func ComputeStats(tickets []TechnicianTicket) DashboardStats {
	stats := DashboardStats{Total: len(tickets)}
	for i := range tickets {
		switch tickets[i].Status {
		case DisplayStatusInProgress:
			stats.Assigned++
		case DisplayStatusWorkingOn:
			stats.Working++
		case DisplayStatusResolved:
			stats.Resolved++
		}
	}
	return stats
}
