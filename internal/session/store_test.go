package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docassist/internal/booking"
	"docassist/internal/chat"
	"docassist/internal/config"
	"docassist/internal/domain"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	missing, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	st := chat.NewState("abc")
	require.NoError(t, s.Create(ctx, st))
	assert.Equal(t, int64(1), st.Version)
	assert.ErrorIs(t, s.Create(ctx, chat.NewState("abc")), ErrExists)

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	got.Booking = &booking.Session{Kind: booking.Callback, State: booking.StateCollecting,
		Fields: []booking.Field{{Kind: booking.FieldName}}}
	got.History = chat.AddMessage(got.History, chat.RoleUser, "call me", time.Now())
	require.NoError(t, s.Update(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	again, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, again.Booking)
	assert.Equal(t, booking.Callback, again.Booking.Kind)
	assert.Len(t, again.History, 1)

	require.NoError(t, s.Delete(ctx, "abc"))
	assert.ErrorIs(t, s.Update(ctx, again), ErrNotFound)
}

func TestMemoryStore_VersionConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, chat.NewState("abc")))

	a, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	b, err := s.Get(ctx, "abc")
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, a))
	assert.ErrorIs(t, s.Update(ctx, b), ErrVersionConflict)
}

func TestMemoryStore_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, chat.NewState("abc")))

	a, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	a.History = chat.AddMessage(nil, chat.RoleUser, "unsaved", time.Now())

	b, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, b.History)
}

func TestLoad_CreatesMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	st, err := Load(ctx, s, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", st.ID)
	assert.Equal(t, int64(1), st.Version)

	again, err := Load(ctx, s, "new")
	require.NoError(t, err)
	assert.Equal(t, st.CreatedAt.Unix(), again.CreatedAt.Unix())
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(config.SessionsConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewStore(config.SessionsConfig{Type: "redis"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewStore(config.SessionsConfig{Type: "etcd"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	r, err := NewStore(config.SessionsConfig{Type: "redis", Addr: "localhost:6379", TTLMins: 5})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, r.(*RedisStore).ttl)
	assert.NoError(t, r.Close())
}

func TestWatchErr_RacedTransactionIsVersionConflict(t *testing.T) {
	assert.ErrorIs(t, watchErr(redis.TxFailedErr), ErrVersionConflict)
	assert.ErrorIs(t, watchErr(fmt.Errorf("exec: %w", redis.TxFailedErr)), ErrVersionConflict)
	assert.ErrorIs(t, watchErr(ErrNotFound), ErrNotFound)

	boom := errors.New("connection reset")
	assert.Equal(t, boom, watchErr(boom))
	assert.NoError(t, watchErr(nil))
}
