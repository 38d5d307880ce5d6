package summarizer

import (
	"math"
	"sort"
	"strings"

	"docassist/internal/textutil"
)

// FrequencySummarizer picks the sentences whose content words recur most
// across the document. It is extractive and needs no model, so an ingest
// summary is available even when the LLM is down.
type FrequencySummarizer struct{}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{}
}

type rankedSentence struct {
	pos   int
	text  string
	score float64
}

// Summarize returns up to maxSentences sentences of text, kept in document
// order. Repeated sentences (running headers, page footers) count once.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	sentences := uniqueSentences(text)
	if len(sentences) == 0 {
		return "", nil
	}
	weights := wordWeights(sentences)

	ranked := make([]rankedSentence, len(sentences))
	for i, sent := range sentences {
		ranked[i] = rankedSentence{pos: i, text: sent, score: sentenceScore(sent, weights)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > maxSentences {
		ranked = ranked[:maxSentences]
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].pos < ranked[j].pos })

	parts := make([]string, len(ranked))
	for i, r := range ranked {
		parts[i] = r.text
	}
	return strings.Join(parts, " "), nil
}

func uniqueSentences(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, sp := range textutil.SentenceSpans(text) {
		sent := strings.Join(strings.Fields(text[sp[0]:sp[1]]), " ")
		key := strings.ToLower(sent)
		if sent == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sent)
	}
	return out
}

// wordWeights maps each content word to its frequency relative to the most
// frequent one, so weights fall in (0, 1].
func wordWeights(sentences []string) map[string]float64 {
	counts := make(map[string]float64)
	top := 0.0
	for _, sent := range sentences {
		for _, w := range textutil.ContentWords(sent) {
			counts[w]++
			if counts[w] > top {
				top = counts[w]
			}
		}
	}
	for w, c := range counts {
		counts[w] = c / top
	}
	return counts
}

// sentenceScore damps long sentences by the square root of their length.
func sentenceScore(sent string, weights map[string]float64) float64 {
	words := textutil.Words(sent)
	if len(words) == 0 {
		return 0
	}
	total := 0.0
	for _, w := range words {
		total += weights[w]
	}
	return total / math.Sqrt(float64(len(words)))
}
