package capability

import (
	"context"
	"log/slog"
)

// Local is a capability client that performs no external calls: every
// request is logged and reported successful. It backs local development
// and the CLI's default wiring, where the interesting behavior is the
// engine's, not the transport's.
type Local struct {
	logger *slog.Logger
}

// NewLocal creates a logging-only capability client.
func NewLocal(logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{logger: logger}
}

func (l *Local) SendEmail(ctx context.Context, req EmailRequest) (Result, error) {
	l.logger.Info("capability: send email",
		"entity_id", req.EntityID,
		"to", req.To,
		"subject", req.Subject,
		"template", req.Template,
	)
	return Result{Success: true, Detail: map[string]any{"channel": "email"}}, nil
}

func (l *Local) SendSMS(ctx context.Context, req SMSRequest) (Result, error) {
	l.logger.Info("capability: send sms",
		"entity_id", req.EntityID,
		"to", req.To,
	)
	return Result{Success: true, Detail: map[string]any{"channel": "sms"}}, nil
}

func (l *Local) BookCalendarEvent(ctx context.Context, req CalendarRequest) (Result, error) {
	l.logger.Info("capability: book calendar event",
		"entity_id", req.EntityID,
		"title", req.Title,
		"start", req.Start,
		"duration_minutes", req.DurationMinutes,
	)
	return Result{Success: true, Detail: map[string]any{"channel": "calendar"}}, nil
}

func (l *Local) UpdateCRMRecord(ctx context.Context, req CRMUpdate) (Result, error) {
	l.logger.Info("capability: update crm record",
		"entity_id", req.EntityID,
		"fields", len(req.Fields),
	)
	return Result{Success: true, Detail: map[string]any{"channel": "crm"}}, nil
}

func (l *Local) LogAction(ctx context.Context, entry AuditEntry) error {
	l.logger.Info("capability: audit",
		"entity_id", entry.EntityID,
		"action", entry.Action,
		"detail", entry.Detail,
	)
	return nil
}
