package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"docassist/internal/domain"
)

// State is the lifecycle position of a Session.
type State string

const (
	StateCollecting State = "collecting"
	StateValidating State = "validating"
	StateComplete   State = "complete"
	StateAbandoned  State = "abandoned"
)

// Terminal reports whether no further input is accepted.
func (s State) Terminal() bool { return s == StateComplete || s == StateAbandoned }

// ErrSessionClosed is returned by Submit on a completed or abandoned session.
var ErrSessionClosed = errors.New("booking session is closed")

const cancelledReply = "❌ Booking cancelled. How else can I help you?"

var cancelWords = map[string]bool{
	"cancel": true, "stop": true, "quit": true, "exit": true,
	"never mind": true, "nevermind": true, "abort": true,
}

// IsCancel reports whether msg asks to abandon the booking.
func IsCancel(msg string) bool {
	s := strings.ToLower(strings.TrimSpace(msg))
	return cancelWords[strings.TrimRight(s, ".!")]
}

// Session is one booking conversation. Exactly one field is awaited while
// collecting: Fields[Index]. It is plain data so conversation stores can
// serialize it.
type Session struct {
	Kind      Kind      `json:"kind"`
	Fields    []Field   `json:"fields"`
	Index     int       `json:"index"`
	State     State     `json:"state"`
	Attempts  int       `json:"attempts"`
	Reference string    `json:"reference,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// Step is the outcome of one user turn inside a session.
type Step struct {
	Reply        string
	State        State
	Confirmation *Confirmation
	// Rejected is set when the input failed validation and the field is re-asked.
	Rejected *ValidationError
}

// NewSession starts collecting the field sequence configured for kind.
func NewSession(p *Policy, kind Kind) (*Session, error) {
	kinds, ok := p.Fields[kind]
	if !ok || len(kinds) == 0 {
		return nil, fmt.Errorf("%w: no fields configured for %s bookings", domain.ErrConfiguration, kind)
	}
	fields := make([]Field, len(kinds))
	for i, k := range kinds {
		fields[i] = Field{Kind: k}
	}
	return &Session{Kind: kind, Fields: fields, State: StateCollecting, StartedAt: p.now()}, nil
}

// Intro is the first message of a session: a greeting plus the first prompt.
func (s *Session) Intro() string {
	greeting := "Let's book your appointment! 📅"
	if s.Kind == Callback {
		greeting = "I'll arrange a callback for you! 📞"
	}
	return greeting + "\n\n" + s.Prompt() + "\n\n_Type 'cancel' at any time to stop._"
}

// Prompt is the question for the field currently awaited, or "" when none is.
func (s *Session) Prompt() string {
	if s.State != StateCollecting || s.Index >= len(s.Fields) {
		return ""
	}
	return s.Fields[s.Index].Kind.Prompt()
}

// Current is the field awaited, if any.
func (s *Session) Current() (Field, bool) {
	if s.State.Terminal() || s.Index >= len(s.Fields) {
		return Field{}, false
	}
	return s.Fields[s.Index], true
}

// Submit feeds one user message to the awaited field. A rejected value keeps
// the same field active and leaves earlier values untouched; MaxAttempts
// consecutive rejections abandon the session.
func (s *Session) Submit(p *Policy, msg string) (Step, error) {
	if s.State.Terminal() {
		return Step{State: s.State}, ErrSessionClosed
	}
	if IsCancel(msg) {
		return s.Cancel(), nil
	}

	field := &s.Fields[s.Index]
	s.State = StateValidating
	value, err := Validate(field.Kind, msg, p.constraints())
	if err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			s.State = StateCollecting
			return Step{State: s.State}, err
		}
		s.Attempts++
		if s.Attempts >= p.MaxAttempts {
			s.State = StateAbandoned
			return Step{
				Reply:    fmt.Sprintf("❌ %s\n\nToo many invalid attempts, so I've cancelled this booking. Say \"book an appointment\" to start again.", verr.Hint),
				State:    s.State,
				Rejected: verr,
			}, nil
		}
		s.State = StateCollecting
		return Step{
			Reply:    fmt.Sprintf("❌ %s\n\n%s", verr.Hint, field.Kind.Prompt()),
			State:    s.State,
			Rejected: verr,
		}, nil
	}

	field.Raw = strings.TrimSpace(msg)
	field.Value = value
	s.Attempts = 0
	s.Index++
	s.State = StateCollecting
	if s.Index < len(s.Fields) {
		return Step{Reply: fmt.Sprintf("✅ %s: %s\n\n%s", field.Kind.Label(), value, s.Prompt()), State: s.State}, nil
	}

	if s.Reference == "" {
		s.Reference = p.Refs.Next(s.Kind)
	}
	s.State = StateComplete
	conf := s.confirmation(p.now())
	return Step{Reply: conf.Render(), State: s.State, Confirmation: conf}, nil
}

// Cancel abandons the session.
func (s *Session) Cancel() Step {
	if !s.State.Terminal() {
		s.State = StateAbandoned
	}
	return Step{Reply: cancelledReply, State: s.State}
}

func (s *Session) confirmation(at time.Time) *Confirmation {
	fields := make([]Field, len(s.Fields))
	copy(fields, s.Fields)
	return &Confirmation{Reference: s.Reference, Kind: s.Kind, Fields: fields, CreatedAt: at}
}
