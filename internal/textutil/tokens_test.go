package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentWords_DropsStopwords(t *testing.T) {
	assert.Equal(t, []string{"quick", "fox", "jumps"}, ContentWords("The quick fox jumps over the"))
}

func TestSentences(t *testing.T) {
	assert.Equal(t, []string{"One.", " Two!", " Three?"}, Sentences("One. Two! Three?"))
	assert.Equal(t, []string{"no terminator"}, Sentences("  no terminator "))
	assert.Nil(t, Sentences("   "))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b", Preview("a \n b", 10))
	assert.Equal(t, "abc...", Preview("abcdef", 3))
}

func TestSentenceSpans(t *testing.T) {
	text := "  One.  Two!\nThree"
	spans := SentenceSpans(text)
	require.Len(t, spans, 3)
	assert.Equal(t, "One.", text[spans[0][0]:spans[0][1]])
	assert.Equal(t, "Two!", text[spans[1][0]:spans[1][1]])
	assert.Equal(t, "Three", text[spans[2][0]:spans[2][1]])

	spans = SentenceSpans("  no terminator ")
	require.Len(t, spans, 1)
	assert.Empty(t, SentenceSpans("   "))
}
