package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_PicksFrequentSentencesInOrder(t *testing.T) {
	text := "Refunds are processed weekly. The cafeteria serves lunch. " +
		"Refunds require a receipt. Refunds over fifty dollars need approval. Parking is free."
	out, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Refunds are processed weekly. Refunds over fifty dollars need approval.", out)
}

func TestSummarize_ShortAndEmptyText(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize("  No terminator here  ", 3)
	require.NoError(t, err)
	assert.Equal(t, "No terminator here", out)

	out, err = s.Summarize("   ", 3)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSummarize_RepeatedSentencesCountOnce(t *testing.T) {
	text := "Company Handbook. Vacation requests go to your manager. Company Handbook. " +
		"Vacation days expire in March. Company Handbook."
	out, err := NewFrequencySummarizer().Summarize(text, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "Company Handbook."))
	assert.Contains(t, out, "Vacation days expire in March.")
}
