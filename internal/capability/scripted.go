package capability

import (
	"context"
	"sync"
)

// Scripted is a capability client whose failures are scripted per
// channel: the first N calls to a channel return the scripted error, then
// calls succeed. Used by the scenario harness and engine tests to
// exercise the retry and fallback ladder deterministically.
//
// Thread-safety: safe for concurrent use via internal mutex, although
// the engine only issues sequential calls per entity.
type Scripted struct {
	mu       sync.Mutex
	failures map[string]*scriptedFailure
	calls    map[string]int
}

type scriptedFailure struct {
	remaining int
	err       error
}

// Channel names accepted by FailNext.
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelCalendar = "calendar"
	ChannelCRM      = "crm"
	ChannelAudit    = "audit"
)

// NewScripted creates a scripted client with no failures configured.
func NewScripted() *Scripted {
	return &Scripted{
		failures: make(map[string]*scriptedFailure),
		calls:    make(map[string]int),
	}
}

// FailNext scripts the next n calls on a channel to fail with err.
// n < 0 means fail forever.
func (s *Scripted) FailNext(channel string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[channel] = &scriptedFailure{remaining: n, err: err}
}

// Calls reports how many calls a channel has received.
func (s *Scripted) Calls(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[channel]
}

func (s *Scripted) attempt(channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[channel]++
	failure, ok := s.failures[channel]
	if !ok || failure.remaining == 0 {
		return nil
	}
	if failure.remaining > 0 {
		failure.remaining--
	}
	return failure.err
}

func (s *Scripted) SendEmail(ctx context.Context, req EmailRequest) (Result, error) {
	if err := s.attempt(ChannelEmail); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Detail: map[string]any{"channel": ChannelEmail}}, nil
}

func (s *Scripted) SendSMS(ctx context.Context, req SMSRequest) (Result, error) {
	if err := s.attempt(ChannelSMS); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Detail: map[string]any{"channel": ChannelSMS}}, nil
}

func (s *Scripted) BookCalendarEvent(ctx context.Context, req CalendarRequest) (Result, error) {
	if err := s.attempt(ChannelCalendar); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Detail: map[string]any{"channel": ChannelCalendar}}, nil
}

func (s *Scripted) UpdateCRMRecord(ctx context.Context, req CRMUpdate) (Result, error) {
	if err := s.attempt(ChannelCRM); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Detail: map[string]any{"channel": ChannelCRM}}, nil
}

func (s *Scripted) LogAction(ctx context.Context, entry AuditEntry) error {
	return s.attempt(ChannelAudit)
}
