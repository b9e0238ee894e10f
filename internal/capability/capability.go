// Package capability defines the outbound boundary the engine calls
// through when a step needs a side effect: email, SMS, calendar, CRM,
// audit logging. Implementations are black boxes to the engine; failures
// surface as ordinary errors that the retry subsystem classifies by text.
package capability

import (
	"context"
	"time"
)

// EmailRequest asks for one outbound email.
type EmailRequest struct {
	EntityID string
	To       string
	Subject  string
	Body     string
	Template string
}

// SMSRequest asks for one outbound text message.
type SMSRequest struct {
	EntityID string
	To       string
	Message  string
}

// CalendarRequest asks for one calendar booking.
type CalendarRequest struct {
	EntityID        string
	Title           string
	Start           time.Time
	DurationMinutes int
}

// CRMUpdate asks for a partial update of the entity's CRM record.
type CRMUpdate struct {
	EntityID string
	Fields   map[string]any
}

// AuditEntry records an engine action for external audit trails.
// Audit writes are best-effort: the engine never fails a step over them.
type AuditEntry struct {
	EntityID string
	Action   string
	Detail   string
}

// Result is the uniform capability outcome. Detail carries
// capability-specific fields (message ids, booking links) that handlers
// merge into step results.
type Result struct {
	Success bool
	Detail  map[string]any
}

// Client is the full outbound capability surface. The engine wraps every
// call in the retry/fallback ladder and a per-action deadline; clients
// should not retry internally.
type Client interface {
	SendEmail(ctx context.Context, req EmailRequest) (Result, error)
	SendSMS(ctx context.Context, req SMSRequest) (Result, error)
	BookCalendarEvent(ctx context.Context, req CalendarRequest) (Result, error)
	UpdateCRMRecord(ctx context.Context, req CRMUpdate) (Result, error)
	LogAction(ctx context.Context, entry AuditEntry) error
}
