package booking

import (
	"fmt"
	"time"

	"docassist/internal/config"
	"docassist/internal/domain"
)

// Policy holds the rules shared by every booking session: which fields each
// kind collects, how many failed attempts a field tolerates and the
// constraints handed to the validators. Sessions keep no reference to it so
// they stay serializable.
type Policy struct {
	Fields         map[Kind][]FieldKind
	MaxAttempts    int
	OpenAt         int
	CloseAt        int
	Location       *time.Location
	MinPhoneDigits int
	MaxPhoneDigits int
	Refs           *ReferenceGenerator
	Now            func() time.Time
}

// NewPolicy builds a Policy from the booking section of the config.
func NewPolicy(cfg config.BookingConfig) (*Policy, error) {
	appt, err := ParseFieldKinds(cfg.AppointmentFields)
	if err != nil {
		return nil, fmt.Errorf("appointment fields: %w", err)
	}
	cb, err := ParseFieldKinds(cfg.CallbackFields)
	if err != nil {
		return nil, fmt.Errorf("callback fields: %w", err)
	}
	openAt, err := ParseClock(cfg.OpenAt)
	if err != nil {
		return nil, err
	}
	closeAt, err := ParseClock(cfg.CloseAt)
	if err != nil {
		return nil, err
	}
	if closeAt <= openAt {
		return nil, fmt.Errorf("%w: booking close_at %s is not after open_at %s", domain.ErrConfiguration, cfg.CloseAt, cfg.OpenAt)
	}
	loc := time.Local
	if cfg.Timezone != "" {
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %v", domain.ErrConfiguration, cfg.Timezone, err)
		}
	}
	if cfg.MinPhoneDigits <= 0 || cfg.MaxPhoneDigits < cfg.MinPhoneDigits {
		return nil, fmt.Errorf("%w: phone digit range %d-%d", domain.ErrConfiguration, cfg.MinPhoneDigits, cfg.MaxPhoneDigits)
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Policy{
		Fields:         map[Kind][]FieldKind{Appointment: appt, Callback: cb},
		MaxAttempts:    maxAttempts,
		OpenAt:         openAt,
		CloseAt:        closeAt,
		Location:       loc,
		MinPhoneDigits: cfg.MinPhoneDigits,
		MaxPhoneDigits: cfg.MaxPhoneDigits,
		Refs:           NewReferenceGenerator(),
		Now:            time.Now,
	}, nil
}

func (p *Policy) constraints() Constraints {
	today := p.now()
	if p.Location != nil {
		today = today.In(p.Location)
	}
	return Constraints{
		Today:          today,
		OpenAt:         p.OpenAt,
		CloseAt:        p.CloseAt,
		MinPhoneDigits: p.MinPhoneDigits,
		MaxPhoneDigits: p.MaxPhoneDigits,
	}
}

func (p *Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
