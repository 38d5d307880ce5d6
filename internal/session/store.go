package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docassist/internal/chat"
	"docassist/internal/config"
	"docassist/internal/domain"
)

var (
	ErrVersionConflict = errors.New("session version conflict")
	ErrNotFound        = errors.New("session not found")
	ErrExists          = errors.New("session already exists")
)

// Store keeps conversation state between turns.
type Store interface {
	// Create stores a new state with Version set to 1.
	Create(ctx context.Context, st *chat.State) error

	// Get returns nil, nil when the session does not exist.
	Get(ctx context.Context, id string) (*chat.State, error)

	// Update persists st if its Version matches the stored one, then
	// increments Version. Returns ErrVersionConflict or ErrNotFound.
	Update(ctx context.Context, st *chat.State) error

	Delete(ctx context.Context, id string) error

	Close() error
}

// NewStore picks a driver from config.
func NewStore(cfg config.SessionsConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if cfg.Addr == "" {
			return nil, fmt.Errorf("%w: sessions.addr is required for redis", domain.ErrConfiguration)
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
		return NewRedisStore(client, time.Duration(cfg.TTLMins)*time.Minute), nil
	default:
		return nil, fmt.Errorf("%w: unknown session store %q", domain.ErrConfiguration, cfg.Type)
	}
}

// Load returns the stored state for id, creating an empty one when missing.
func Load(ctx context.Context, s Store, id string) (*chat.State, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return st, nil
	}
	st = chat.NewState(id)
	if err := s.Create(ctx, st); err != nil {
		if errors.Is(err, ErrExists) {
			return s.Get(ctx, id)
		}
		return nil, err
	}
	return st, nil
}
