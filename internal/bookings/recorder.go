package bookings

import (
	"context"
	"errors"

	"docassist/internal/booking"
)

// Recorder persists confirmed bookings somewhere outside the conversation.
type Recorder interface {
	Record(ctx context.Context, c *booking.Confirmation) error
}

// Nop discards confirmations.
type Nop struct{}

func (Nop) Record(context.Context, *booking.Confirmation) error { return nil }

// Multi records to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, c *booking.Confirmation) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
