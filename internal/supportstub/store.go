package supportstub

import (
	"context"
	"time"
)

// Ticket is the stub's wire-shaped ticket record, serialized exactly as the
// production support backend does.
type Ticket struct {
	ID            string     `json:"_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Attachments   []string   `json:"attachments"`
	Priority      string     `json:"priority"`
	Status        string     `json:"status"`
	AssignedTo    *Assignee  `json:"assignedTo,omitempty"`
	Location      string     `json:"location,omitempty"`
	CustomerName  string     `json:"customerName,omitempty"`
	CustomerEmail string     `json:"customerEmail,omitempty"`
	EstimatedTime string     `json:"estimatedTime,omitempty"`
	Resolution    string     `json:"resolution,omitempty"`
	CompletedDate *time.Time `json:"completedDate,omitempty"`
	Notes         []Note     `json:"notes"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Assignee is the embedded technician reference on an assigned ticket.
type Assignee struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Note is an append-only ticket comment.
type Note struct {
	Content   string    `json:"content"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Technician is a roster entry.
type Technician struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Account is a login principal for the development backend.
type Account struct {
	ID           string
	Name         string
	Email        string
	Role         string
	PasswordHash string
}

// AssignInput carries a dispatcher assignment.
type AssignInput struct {
	TechnicianID string
	Priority     string
	Notes        string
	ActorName    string
}

// Store abstracts ticket persistence for the stub. The in-memory
// implementation backs tests and zero-config development; the Postgres one
// survives restarts.
type Store interface {
	ListTickets(ctx context.Context, statuses []string) ([]Ticket, error)
	GetTicket(ctx context.Context, id string) (*Ticket, error)
	ListByTechnician(ctx context.Context, technicianID string, statuses []string) ([]Ticket, error)
	Assign(ctx context.Context, id string, input AssignInput) (*Ticket, error)
	UpdateStatus(ctx context.Context, id, status, resolution string) (*Ticket, error)
	AddNote(ctx context.Context, id string, note Note) error
	ListTechnicians(ctx context.Context) ([]Technician, error)
	AccountByEmail(ctx context.Context, email string) (*Account, error)
}

// knownStatuses is the backend's closed status vocabulary.
var knownStatuses = map[string]struct{}{
	"open":        {},
	"in_progress": {},
	"working_on":  {},
	"resolved":    {},
	"closed":      {},
}

func statusKnown(status string) bool {
	_, ok := knownStatuses[status]
	return ok
}
