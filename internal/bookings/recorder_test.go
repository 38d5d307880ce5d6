package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docassist/internal/booking"
)

func testConfirmation() *booking.Confirmation {
	return &booking.Confirmation{
		Reference: "CB-0123456789",
		Kind:      booking.Callback,
		Fields: []booking.Field{
			{Kind: booking.FieldName, Value: "Sam Lee"},
			{Kind: booking.FieldPhone, Value: "5551234567"},
			{Kind: booking.FieldEmail, Value: "sam@lee.io"},
		},
		CreatedAt: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
	}
}

type MockExecer struct {
	mock.Mock
}

func (m *MockExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	called := m.Called(append([]any{ctx, sql}, args...)...)
	return pgconn.NewCommandTag("INSERT 0 1"), called.Error(0)
}

func TestPGRecorder_Record(t *testing.T) {
	db := new(MockExecer)
	c := testConfirmation()
	db.On("Exec", mock.Anything, insertSQL, "CB-0123456789", "callback", "Sam Lee", "sam@lee.io", "5551234567",
		mock.MatchedBy(func(b []byte) bool {
			var m map[string]string
			return json.Unmarshal(b, &m) == nil && m["phone"] == "5551234567"
		}), c.CreatedAt).Return(nil)

	require.NoError(t, (&PGRecorder{db: db}).Record(context.Background(), c))
	db.AssertExpectations(t)
}

func TestPGRecorder_Migrate(t *testing.T) {
	db := new(MockExecer)
	db.On("Exec", mock.Anything, createTableSQL).Return(errors.New("permission denied"))

	err := (&PGRecorder{db: db}).Migrate(context.Background())
	assert.ErrorContains(t, err, "permission denied")
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaRecorder_Record(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, (&KafkaRecorder{writer: w}).Record(context.Background(), testConfirmation()))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "CB-0123456789", string(w.msgs[0].Key))
	var ev Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, EventBookingConfirmed, ev.Type)
	assert.Equal(t, "callback", ev.Kind)
	assert.Equal(t, "Sam Lee", ev.Fields["name"])
}

type recorderFunc func(ctx context.Context, c *booking.Confirmation) error

func (f recorderFunc) Record(ctx context.Context, c *booking.Confirmation) error { return f(ctx, c) }

func TestMulti_RecordsEverywhereAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	m := Multi{
		recorderFunc(func(context.Context, *booking.Confirmation) error { calls++; return boom }),
		recorderFunc(func(context.Context, *booking.Confirmation) error { calls++; return nil }),
		Nop{},
	}
	err := m.Record(context.Background(), testConfirmation())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)

	assert.NoError(t, Multi{Nop{}}.Record(context.Background(), testConfirmation()))
}
