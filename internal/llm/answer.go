package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"docassist/internal/domain"
)

// NoContextAnswer is returned when retrieval finds nothing to ground an answer on.
const NoContextAnswer = "❌ No relevant documents found. Try rephrasing your question."

const answerPrompt = `You are a helpful AI assistant. Answer the user's question based on the provided context.

Context Information:
%s

User Question: %s

Instructions:
- Answer the question using only the information provided in the context
- If the context doesn't contain enough information to answer the question, say so clearly
- Be concise and accurate
- If you need to make assumptions, state them clearly
- Provide specific examples from the context when relevant

Answer:
`

// Answer is a generated reply and the chunks it was grounded on.
type Answer struct {
	Text      string
	Sources   []domain.SearchResult
	NoContext bool
}

// Answerer produces answers grounded in retrieved chunks.
type Answerer struct {
	gen domain.Generator
	log *zap.Logger
}

func NewAnswerer(gen domain.Generator, log *zap.Logger) *Answerer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Answerer{gen: gen, log: log}
}

// Answer never calls the generator when results is empty.
func (a *Answerer) Answer(ctx context.Context, question string, results []domain.SearchResult) (Answer, error) {
	if len(results) == 0 {
		a.log.Info("no context for question", zap.String("question", question))
		return Answer{Text: NoContextAnswer, NoContext: true}, nil
	}
	text, err := a.gen.Generate(ctx, BuildPrompt(question, results))
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}
	return Answer{Text: strings.TrimSpace(text), Sources: results}, nil
}

// BuildPrompt joins the chunk texts in rank order into the answer prompt.
func BuildPrompt(question string, results []domain.SearchResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Chunk.Text
	}
	return fmt.Sprintf(answerPrompt, strings.Join(parts, "\n\n"), question)
}
