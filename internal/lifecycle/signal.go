package lifecycle

import "time"

// SignalType enumerates supported signal identifiers.
type SignalType string

const (
	// SignalTicketUpdated is broadcast after any successful ticket mutation.
	// It carries no ordering guarantee; receivers re-fetch and replace their
	// local state wholesale.
	SignalTicketUpdated SignalType = "ticket_updated"
)

// Signal is a lifecycle notification emitted after a mutating operation.
type Signal struct {
	ID        string     `json:"id"`
	Type      SignalType `json:"type"`
	TicketID  string     `json:"ticket_id,omitempty"`
	Origin    string     `json:"origin"`
	Timestamp time.Time  `json:"timestamp"`
}
