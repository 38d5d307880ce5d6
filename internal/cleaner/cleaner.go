package cleaner

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"docassist/internal/domain"
)

const (
	// DefaultMaxPieceSize is the largest text sent to the LLM in one prompt.
	DefaultMaxPieceSize = 30000
	condenseThreshold   = 50000
	condenseInput       = 40000
)

var (
	spaceRunRe   = regexp.MustCompile(`[ \t\f\v]+`)
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
)

const cleanPrompt = `You are helping to build a knowledge base. Please clean and filter the following text:

INSTRUCTIONS:
1. Remove any irrelevant content (headers, footers, page numbers, etc.)
2. Fix formatting issues and normalize spacing
3. Correct obvious typos and grammatical errors
4. Remove duplicate or redundant information
5. Organize the content in a clear, logical structure
6. Keep all important factual information intact
7. Make the text more readable and coherent
8. If there are bullet points or lists, format them properly
9. Remove any advertisements, navigation elements, or metadata
10. Ensure the text flows naturally for knowledge retrieval

TEXT TO CLEAN:
%s

CLEANED TEXT:
`

const condensePrompt = `The following text is too long. Please provide a concise, well-organized summary
that captures all the key information:

%s

Concise summary:
`

// Normalize fixes line endings and collapses runs of blanks.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRunRe.ReplaceAllString(l, " "))
	}
	text = strings.Join(lines, "\n")
	text = newlineRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Cleaner turns extracted text into indexable text.
type Cleaner interface {
	Clean(ctx context.Context, text string) (string, error)
}

// NormalizeOnly applies Normalize and never calls out.
type NormalizeOnly struct{}

func (NormalizeOnly) Clean(_ context.Context, text string) (string, error) {
	return Normalize(text), nil
}

// LLMCleaner asks a Generator to tidy each piece of the text.
// A piece whose cleaning fails keeps its normalized original.
type LLMCleaner struct {
	gen          domain.Generator
	maxPieceSize int
	log          *zap.Logger
}

func NewLLMCleaner(gen domain.Generator, maxPieceSize int, log *zap.Logger) *LLMCleaner {
	if maxPieceSize <= 0 {
		maxPieceSize = DefaultMaxPieceSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LLMCleaner{gen: gen, maxPieceSize: maxPieceSize, log: log}
}

func (c *LLMCleaner) Clean(ctx context.Context, text string) (string, error) {
	text = Normalize(text)
	if text == "" {
		return "", nil
	}
	pieces := SplitPieces(text, c.maxPieceSize)
	out := make([]string, 0, len(pieces))
	for i, piece := range pieces {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		c.log.Debug("cleaning piece", zap.Int("piece", i+1), zap.Int("of", len(pieces)), zap.Int("chars", len(piece)))
		out = append(out, c.cleanPiece(ctx, piece))
	}
	return strings.Join(out, "\n\n"), nil
}

func (c *LLMCleaner) cleanPiece(ctx context.Context, piece string) string {
	cleaned, err := c.gen.Generate(ctx, fmt.Sprintf(cleanPrompt, piece))
	if err != nil {
		c.log.Warn("text cleaning failed, using original text", zap.Error(err))
		return piece
	}
	if len(cleaned) > condenseThreshold {
		condensed, err := c.gen.Generate(ctx, fmt.Sprintf(condensePrompt, truncate(cleaned, condenseInput)))
		if err != nil {
			c.log.Warn("condensing cleaned text failed, using original text", zap.Error(err))
			return piece
		}
		cleaned = condensed
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return piece
	}
	return cleaned
}

// SplitPieces cuts text at ". " boundaries into pieces of roughly maxSize
// bytes. A single sentence longer than maxSize becomes its own piece.
func SplitPieces(text string, maxSize int) []string {
	if len(text) <= maxSize {
		return []string{text}
	}
	var pieces []string
	var cur strings.Builder
	for _, sentence := range strings.Split(text, ". ") {
		if cur.Len() > 0 && cur.Len()+len(sentence)+2 > maxSize {
			pieces = append(pieces, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
		cur.WriteString(sentence)
		cur.WriteString(". ")
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		pieces = append(pieces, strings.TrimSuffix(s, "."))
	}
	return pieces
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
