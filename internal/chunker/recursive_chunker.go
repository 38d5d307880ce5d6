package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"docassist/internal/domain"
)

// DefaultSeparators are tried in order, from paragraph breaks down to single runes.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveChunker splits on the coarsest separator present and recurses
// into pieces that are still too long. Sizes are counted in runes.
type RecursiveChunker struct {
	size       int
	overlap    int
	separators []string
}

type span struct{ start, end int }

func NewRecursiveChunker(size, overlap int, separators []string) *RecursiveChunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	if separators[len(separators)-1] != "" {
		separators = append(append([]string(nil), separators...), "")
	}
	return &RecursiveChunker{size: size, overlap: overlap, separators: separators}
}

func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	text := document.Content
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var chunks []domain.Chunk
	prev := span{-1, -1}
	for _, s := range c.split(text, span{0, len(text)}, c.separators) {
		s = trimSpan(text, s)
		if s.start >= s.end || s == prev {
			continue
		}
		prev = s
		chunks = append(chunks, newChunk(document, len(chunks), s.start, text[s.start:s.end]))
	}
	return chunks, nil
}

func (c *RecursiveChunker) split(text string, s span, separators []string) []span {
	sub := text[s.start:s.end]
	sep, rest := "", []string(nil)
	for i, cand := range separators {
		if cand == "" || strings.Contains(sub, cand) {
			sep, rest = cand, separators[i+1:]
			break
		}
	}

	var out, fits []span
	for _, p := range splitKeep(sub, sep, s.start) {
		if c.length(text, p) <= c.size {
			fits = append(fits, p)
			continue
		}
		if len(fits) > 0 {
			out = append(out, c.merge(text, fits)...)
			fits = nil
		}
		out = append(out, c.split(text, p, rest)...)
	}
	if len(fits) > 0 {
		out = append(out, c.merge(text, fits)...)
	}
	return out
}

// merge packs adjacent pieces into windows of at most size runes, carrying
// up to overlap runes of trailing pieces into the next window.
func (c *RecursiveChunker) merge(text string, pieces []span) []span {
	var out, window []span
	total := 0
	for _, p := range pieces {
		l := c.length(text, p)
		if total+l > c.size && len(window) > 0 {
			out = append(out, span{window[0].start, window[len(window)-1].end})
			for len(window) > 0 && (total > c.overlap || total+l > c.size) {
				total -= c.length(text, window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += l
	}
	if len(window) > 0 {
		out = append(out, span{window[0].start, window[len(window)-1].end})
	}
	return out
}

func (c *RecursiveChunker) length(text string, s span) int {
	return utf8.RuneCountInString(text[s.start:s.end])
}

// splitKeep cuts sub at sep, keeping each separator on the piece before it.
// Returned spans are absolute offsets into the original text.
func splitKeep(sub, sep string, base int) []span {
	var out []span
	if sep == "" {
		for i := 0; i < len(sub); {
			_, n := utf8.DecodeRuneInString(sub[i:])
			out = append(out, span{base + i, base + i + n})
			i += n
		}
		return out
	}
	pos := 0
	for {
		idx := strings.Index(sub[pos:], sep)
		if idx < 0 {
			break
		}
		end := pos + idx + len(sep)
		out = append(out, span{base + pos, base + end})
		pos = end
	}
	if pos < len(sub) {
		out = append(out, span{base + pos, base + len(sub)})
	}
	return out
}

func trimSpan(text string, s span) span {
	for s.start < s.end {
		r, n := utf8.DecodeRuneInString(text[s.start:s.end])
		if !unicode.IsSpace(r) {
			break
		}
		s.start += n
	}
	for s.end > s.start {
		r, n := utf8.DecodeLastRuneInString(text[s.start:s.end])
		if !unicode.IsSpace(r) {
			break
		}
		s.end -= n
	}
	return s
}
