package chat

import (
	"time"

	"docassist/internal/booking"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// State is everything remembered about one user's conversation between
// turns. It is passed into and out of the orchestrator and persisted by a
// session store; nothing about a conversation lives in globals.
type State struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Version   int64            `json:"version"`
	Booking   *booking.Session `json:"booking,omitempty"`
	History   []Message        `json:"history"`
}

func NewState(id string) *State {
	return &State{ID: id}
}

// BookingActive reports whether a booking is being collected.
func (s *State) BookingActive() bool {
	return s.Booking != nil && !s.Booking.State.Terminal()
}

// ClearHistory forgets past messages and any booking in progress.
func (s *State) ClearHistory() {
	s.History = nil
	s.Booking = nil
}
