package supportstub

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// PostgresStore persists stub data in Postgres. Schema lives in /migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore instantiates the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const ticketColumns = `id, title, description, category, attachments, priority, status,
       assignee_id, assignee_name, location, customer_name, customer_email,
       estimated_time, resolution, completed_date, created_at, updated_at`

func (s *PostgresStore) ListTickets(ctx context.Context, statuses []string) ([]Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM support_tickets`
	args := []any{}
	if len(statuses) > 0 {
		query += ` WHERE status = ANY($1)`
		args = append(args, statuses)
	}
	query += ` ORDER BY created_at DESC`
	return s.fetchList(ctx, query, args...)
}

func (s *PostgresStore) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM support_tickets WHERE id=$1`
	row := s.pool.QueryRow(ctx, query, id)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, err
	}
	if err := s.attachNotes(ctx, []*Ticket{ticket}); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *PostgresStore) ListByTechnician(ctx context.Context, technicianID string, statuses []string) ([]Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM support_tickets WHERE assignee_id=$1`
	args := []any{technicianID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, statuses)
	}
	query += ` ORDER BY created_at DESC`
	return s.fetchList(ctx, query, args...)
}

func (s *PostgresStore) Assign(ctx context.Context, id string, input AssignInput) (*Ticket, error) {
	var name string
	err := s.pool.QueryRow(ctx, `SELECT name FROM support_technicians WHERE id=$1`, input.TechnicianID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": input.TechnicianID})
		}
		return nil, err
	}

	const query = `
        UPDATE support_tickets
        SET assignee_id=$1, assignee_name=$2, priority=$3,
            status = CASE WHEN status='open' THEN 'in_progress' ELSE status END,
            updated_at = NOW()
        WHERE id=$4`
	cmd, err := s.pool.Exec(ctx, query, input.TechnicianID, name, strings.ToLower(input.Priority), id)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	if strings.TrimSpace(input.Notes) != "" {
		note := Note{Content: strings.TrimSpace(input.Notes), CreatedBy: input.ActorName, CreatedAt: time.Now()}
		if err := s.AddNote(ctx, id, note); err != nil {
			return nil, err
		}
	}
	return s.GetTicket(ctx, id)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id, status, resolution string) (*Ticket, error) {
	if !statusKnown(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}
	const query = `
        UPDATE support_tickets
        SET status=$1,
            resolution = COALESCE(NULLIF($2, ''), resolution),
            completed_date = CASE WHEN $1='resolved' THEN NOW() ELSE completed_date END,
            updated_at = NOW()
        WHERE id=$3`
	cmd, err := s.pool.Exec(ctx, query, status, resolution, id)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return s.GetTicket(ctx, id)
}

func (s *PostgresStore) AddNote(ctx context.Context, id string, note Note) error {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}
	const query = `
        INSERT INTO support_ticket_notes (ticket_id, content, created_by, created_at)
        VALUES ($1,$2,$3,$4)`
	if _, err := s.pool.Exec(ctx, query, id, note.Content, note.CreatedBy, note.CreatedAt); err != nil {
		return err
	}
	cmd, err := s.pool.Exec(ctx, `UPDATE support_tickets SET updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return nil
}

func (s *PostgresStore) ListTechnicians(ctx context.Context) ([]Technician, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM support_technicians ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var technicians []Technician
	for rows.Next() {
		var t Technician
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		technicians = append(technicians, t)
	}
	return technicians, rows.Err()
}

func (s *PostgresStore) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	const query = `SELECT id, name, email, role, password_hash FROM support_accounts WHERE lower(email)=lower($1)`
	var account Account
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&account.ID, &account.Name, &account.Email, &account.Role, &account.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", nil)
		}
		return nil, err
	}
	return &account, nil
}

func (s *PostgresStore) fetchList(ctx context.Context, query string, args ...any) ([]Ticket, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachNotes(ctx, tickets); err != nil {
		return nil, err
	}
	result := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		result = append(result, *t)
	}
	return result, nil
}

func (s *PostgresStore) attachNotes(ctx context.Context, tickets []*Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tickets))
	byID := make(map[string]*Ticket, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
		byID[t.ID] = t
		t.Notes = []Note{}
	}

	const query = `
        SELECT ticket_id, content, created_by, created_at
        FROM support_ticket_notes WHERE ticket_id = ANY($1)
        ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ticketID string
		var note Note
		if err := rows.Scan(&ticketID, &note.Content, &note.CreatedBy, &note.CreatedAt); err != nil {
			return err
		}
		if t, ok := byID[ticketID]; ok {
			t.Notes = append(t.Notes, note)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*Ticket, error) {
	var t Ticket
	var assigneeID, assigneeName *string
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Category,
		&t.Attachments,
		&t.Priority,
		&t.Status,
		&assigneeID,
		&assigneeName,
		&t.Location,
		&t.CustomerName,
		&t.CustomerEmail,
		&t.EstimatedTime,
		&t.Resolution,
		&t.CompletedDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if assigneeID != nil {
		name := ""
		if assigneeName != nil {
			name = *assigneeName
		}
		t.AssignedTo = &Assignee{ID: *assigneeID, Name: name}
	}
	return &t, nil
}
