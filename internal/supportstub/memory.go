package supportstub

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// MemoryStore is the zero-config store used in development and tests.
type MemoryStore struct {
	mu          sync.Mutex
	tickets     map[string]*Ticket
	technicians []Technician
	accounts    map[string]*Account
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:  make(map[string]*Ticket),
		accounts: make(map[string]*Account),
	}
}

// Seed loads the demo roster, accounts and a handful of open tickets.
// Every account's password is "password123".
func (s *MemoryStore) Seed(bcryptCost int) error {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcryptCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.technicians = []Technician{
		{ID: "tech-1", Name: "Alex Rivera"},
		{ID: "tech-2", Name: "Priya Natarajan"},
		{ID: "tech-3", Name: "Marcus Webb"},
	}
	accounts := []*Account{
		{ID: "disp-1", Name: "Dana Kowalski", Email: "dispatcher@example.com", Role: "dispatcher"},
		{ID: "tech-1", Name: "Alex Rivera", Email: "alex@example.com", Role: "technician"},
		{ID: "tech-2", Name: "Priya Natarajan", Email: "priya@example.com", Role: "technician"},
	}
	for _, account := range accounts {
		account.PasswordHash = string(hash)
		s.accounts[strings.ToLower(account.Email)] = account
	}

	now := time.Now()
	seedTickets := []*Ticket{
		{
			ID: uuid.NewString(), Title: "AC unit not cooling", Category: "HVAC",
			Description: "Office unit blows warm air since Monday.",
			Status:      "open", CustomerName: "Harbor Cafe", CustomerEmail: "owner@harborcafe.example",
			Location: "12 Dock St", CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now.Add(-48 * time.Hour),
		},
		{
			ID: uuid.NewString(), Title: "Breaker trips on startup", Category: "Electrical",
			Description: "Main breaker trips whenever the walk-in freezer starts.",
			Status:      "open", CustomerName: "Fresh Mart", CustomerEmail: "facilities@freshmart.example",
			Location: "88 Main Ave", CreatedAt: now.Add(-24 * time.Hour), UpdatedAt: now.Add(-24 * time.Hour),
		},
		{
			ID: uuid.NewString(), Title: "Water heater leak", Category: "Plumbing",
			Description: "Slow drip under the tank, pan almost full.",
			Status:      "open", CustomerName: "Lakeside Inn", CustomerEmail: "desk@lakesideinn.example",
			Location: "3 Shore Rd", CreatedAt: now.Add(-6 * time.Hour), UpdatedAt: now.Add(-6 * time.Hour),
		},
	}
	for _, t := range seedTickets {
		s.tickets[t.ID] = t
	}
	return nil
}

// ListTickets returns tickets matching any of the statuses (all when empty),
// newest first.
func (s *MemoryStore) ListTickets(ctx context.Context, statuses []string) ([]Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectLocked(func(t *Ticket) bool {
		return matchesStatus(t, statuses)
	}), nil
}

// GetTicket returns one ticket by id.
func (s *MemoryStore) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	copied := cloneTicket(t)
	return &copied, nil
}

// ListByTechnician returns a technician's tickets matching the statuses.
func (s *MemoryStore) ListByTechnician(ctx context.Context, technicianID string, statuses []string) ([]Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectLocked(func(t *Ticket) bool {
		if t.AssignedTo == nil || t.AssignedTo.ID != technicianID {
			return false
		}
		return matchesStatus(t, statuses)
	}), nil
}

// Assign sets the assignee and priority. As a backend-owned side effect an
// open ticket moves to in_progress; the two axes stay independent otherwise.
func (s *MemoryStore) Assign(ctx context.Context, id string, input AssignInput) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	var assignee *Technician
	for i := range s.technicians {
		if s.technicians[i].ID == input.TechnicianID {
			assignee = &s.technicians[i]
			break
		}
	}
	if assignee == nil {
		return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": input.TechnicianID})
	}

	t.AssignedTo = &Assignee{ID: assignee.ID, Name: assignee.Name}
	t.Priority = strings.ToLower(input.Priority)
	if t.Status == "open" {
		t.Status = "in_progress"
	}
	if strings.TrimSpace(input.Notes) != "" {
		t.Notes = append(t.Notes, Note{
			Content:   strings.TrimSpace(input.Notes),
			CreatedBy: input.ActorName,
			CreatedAt: time.Now(),
		})
	}
	t.UpdatedAt = time.Now()
	copied := cloneTicket(t)
	return &copied, nil
}

// UpdateStatus sets a new lifecycle status. Unknown codes are rejected;
// terminal-state immutability is deliberately not enforced here because the
// console owns that gate.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id, status, resolution string) (*Ticket, error) {
	if !statusKnown(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	t.Status = status
	if resolution != "" {
		t.Resolution = resolution
	}
	if status == "resolved" {
		now := time.Now()
		t.CompletedDate = &now
	}
	t.UpdatedAt = time.Now()
	copied := cloneTicket(t)
	return &copied, nil
}

// AddNote appends a note; notes are never edited or removed.
func (s *MemoryStore) AddNote(ctx context.Context, id string, note Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}
	t.Notes = append(t.Notes, note)
	t.UpdatedAt = time.Now()
	return nil
}

// ListTechnicians returns the roster.
func (s *MemoryStore) ListTechnicians(ctx context.Context) ([]Technician, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Technician(nil), s.technicians...), nil
}

// AccountByEmail finds a login principal.
func (s *MemoryStore) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return nil, apperrors.NewNotFound("account", nil)
	}
	copied := *account
	return &copied, nil
}

// AddTicket inserts a ticket directly; test fixtures use it.
func (s *MemoryStore) AddTicket(t Ticket) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	copied := cloneTicket(&t)
	s.tickets[t.ID] = &copied
	return t.ID
}

func (s *MemoryStore) collectLocked(keep func(*Ticket) bool) []Ticket {
	result := make([]Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		if keep(t) {
			result = append(result, cloneTicket(t))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func matchesStatus(t *Ticket, statuses []string) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, status := range statuses {
		if t.Status == status {
			return true
		}
	}
	return false
}

func cloneTicket(t *Ticket) Ticket {
	copied := *t
	copied.Attachments = append([]string(nil), t.Attachments...)
	copied.Notes = append([]Note(nil), t.Notes...)
	if t.AssignedTo != nil {
		assignee := *t.AssignedTo
		copied.AssignedTo = &assignee
	}
	if t.CompletedDate != nil {
		completed := *t.CompletedDate
		copied.CompletedDate = &completed
	}
	return copied
}
