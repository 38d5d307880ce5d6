package booking

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docassist/internal/domain"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestKeywordClassifier(t *testing.T) {
	cases := []struct {
		in   string
		want Intent
	}{
		{"book an appointment", IntentAppointment},
		{"Can I schedule a meeting for next week?", IntentAppointment},
		{"I'd like to make an appointment", IntentAppointment},
		{"I need an appointment", IntentAppointment},
		{"schedule a callback", IntentCallback},
		{"Please call me back", IntentCallback},
		{"can someone give me a call", IntentCallback},
		{"arrange a call with sales", IntentCallback},
		{"What are the main points in the document?", NoIntent},
		{"What does the policy say about cancelling appointments?", NoIntent},
		{"Summarize chapter 3", NoIntent},
		{"What does the document say about how to book an appointment?", NoIntent},
		{"Does the policy let staff request a callback?", NoIntent},
		{"How do I schedule a visit according to the handbook?", NoIntent},
		{"Can you book an appointment for me?", IntentAppointment},
		{"", NoIntent},
	}
	c := KeywordClassifier{}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLLMClassifier_Labels(t *testing.T) {
	cases := map[string]Intent{
		"appointment":  IntentAppointment,
		" Callback.\n": IntentCallback,
		"none":         NoIntent,
	}
	for reply, want := range cases {
		gen := new(MockGenerator)
		gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
			return strings.HasSuffix(p, "Message: hello")
		})).Return(reply, nil)

		got, err := NewLLMClassifier(gen).Classify(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		gen.AssertExpectations(t)
	}
}

func TestLLMClassifier_UnknownLabel(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("I think the user wants pizza", nil)

	_, err := NewLLMClassifier(gen).Classify(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnknownLabel)
	assert.ErrorIs(t, err, domain.ErrParseFailure)
}

func TestFallbackClassifier(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", domain.ErrServiceUnavailable)
	c := &FallbackClassifier{Primary: NewLLMClassifier(gen), Secondary: KeywordClassifier{}, Log: zap.NewNop()}

	got, err := c.Classify(context.Background(), "book an appointment")
	require.NoError(t, err)
	assert.Equal(t, IntentAppointment, got)
}

func TestFallbackClassifier_KeepsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", context.Canceled)
	c := &FallbackClassifier{Primary: NewLLMClassifier(gen), Secondary: KeywordClassifier{}}

	_, err := c.Classify(ctx, "book an appointment")
	assert.True(t, errors.Is(err, context.Canceled))
}
