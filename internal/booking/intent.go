package booking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"docassist/internal/domain"
)

// Intent is the closed set of goals a top-level message can express.
type Intent int

const (
	NoIntent Intent = iota
	IntentAppointment
	IntentCallback
)

func (i Intent) String() string {
	switch i {
	case IntentAppointment:
		return "appointment"
	case IntentCallback:
		return "callback"
	default:
		return "none"
	}
}

// Kind maps a booking intent to its session kind.
func (i Intent) Kind() (Kind, bool) {
	switch i {
	case IntentAppointment:
		return Appointment, true
	case IntentCallback:
		return Callback, true
	}
	return "", false
}

// Classifier decides whether free text asks for a booking.
type Classifier interface {
	Classify(ctx context.Context, text string) (Intent, error)
}

// bookingRe wants a booking verb followed by something bookable; callbackRe
// and appointmentRe are phrases that stand on their own.
var (
	bookingRe     = regexp.MustCompile(`\b(book|schedule|arrange|set up|reserve|request|make an?)\b.*\b(appointment|meeting|consultation|call|callback|call back|visit)s?\b`)
	callbackRe    = regexp.MustCompile(`\b(call me|callback|call back|phone me|ring me|contact me|give me a call)\b`)
	appointmentRe = regexp.MustCompile(`\b(book me|(want|need|like) an? (appointment|meeting|consultation))\b`)
	docQuestionRe = regexp.MustCompile(`^(what|how|when|where|why|which|who|does|do|is|are|can|could|should|according to)\b.*\b(document|documents|docs|policy|policies|manual|handbook|guide|guidelines|procedure|procedures|file|pdf|section|chapter|page|say|says)\b`)
)

// KeywordClassifier matches booking phrasing with regular expressions.
// A question about the documents never starts a booking, even when it quotes
// booking phrasing ("how do I book an appointment according to the policy?").
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, text string) (Intent, error) {
	return classifyKeywords(text), nil
}

func classifyKeywords(text string) Intent {
	s := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if s == "" || docQuestionRe.MatchString(s) {
		return NoIntent
	}
	if callbackRe.MatchString(s) {
		return IntentCallback
	}
	if m := bookingRe.FindStringSubmatch(s); m != nil {
		if strings.HasPrefix(m[2], "call") {
			return IntentCallback
		}
		return IntentAppointment
	}
	if appointmentRe.MatchString(s) {
		return IntentAppointment
	}
	return NoIntent
}

const intentPrompt = `You route messages for a document assistant that can also book appointments and callbacks.
Classify the user's message into exactly one label:
- appointment: the user wants to book, schedule or arrange an appointment or meeting
- callback: the user wants someone to call or phone them back
- none: anything else, including questions about documents that merely mention appointments

Reply with the single label only.

Message: %s`

// ErrUnknownLabel is returned when the model replies outside the label set.
var ErrUnknownLabel = errors.New("unrecognized intent label")

// LLMClassifier asks a generator for the label with a constrained prompt.
type LLMClassifier struct {
	gen domain.Generator
}

func NewLLMClassifier(gen domain.Generator) *LLMClassifier {
	return &LLMClassifier{gen: gen}
}

func (c *LLMClassifier) Classify(ctx context.Context, text string) (Intent, error) {
	out, err := c.gen.Generate(ctx, fmt.Sprintf(intentPrompt, text))
	if err != nil {
		return NoIntent, err
	}
	label := strings.ToLower(strings.Trim(strings.TrimSpace(out), ".\"'`*"))
	switch label {
	case "appointment":
		return IntentAppointment, nil
	case "callback":
		return IntentCallback, nil
	case "none", "no-intent", "no intent":
		return NoIntent, nil
	}
	return NoIntent, fmt.Errorf("%w %q: %w", ErrUnknownLabel, label, domain.ErrParseFailure)
}

// FallbackClassifier tries Primary and uses Secondary when it fails.
// A cancelled context is never masked.
type FallbackClassifier struct {
	Primary   Classifier
	Secondary Classifier
	Log       *zap.Logger
}

func (c *FallbackClassifier) Classify(ctx context.Context, text string) (Intent, error) {
	intent, err := c.Primary.Classify(ctx, text)
	if err == nil {
		return intent, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return NoIntent, ctxErr
	}
	if c.Log != nil {
		c.Log.Warn("intent classifier failed, using fallback", zap.Error(err))
	}
	return c.Secondary.Classify(ctx, text)
}
