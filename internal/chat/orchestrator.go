package chat

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"docassist/internal/booking"
	"docassist/internal/bookings"
	"docassist/internal/domain"
	"docassist/internal/llm"
)

// Route says which path handled a turn.
type Route string

const (
	RouteNone    Route = "none"
	RouteBooking Route = "booking"
	RouteQA      Route = "qa"
)

const (
	unavailableReply = "⚠️ The assistant is temporarily unavailable. Please try again in a moment."
	failedReply      = "❌ Sorry, something went wrong while answering. Please try again."
	emptyReply       = "Please type a question, or ask me to book an appointment or a callback."
)

// Answerer answers a document question. service.RAGService implements it.
type Answerer interface {
	Answer(ctx context.Context, question string) (llm.Answer, error)
}

// Reply is the outcome of one turn.
type Reply struct {
	Text         string                `json:"text"`
	Route        Route                 `json:"route"`
	Retryable    bool                  `json:"retryable,omitempty"`
	BookingState booking.State         `json:"booking_state,omitempty"`
	Confirmation *booking.Confirmation `json:"confirmation,omitempty"`
	Sources      []string              `json:"sources,omitempty"`
}

type Options struct {
	HistoryMessages int
	HistoryTokens   int
}

// Orchestrator is the single entry point per user turn.
type Orchestrator struct {
	policy     *booking.Policy
	classifier booking.Classifier
	answerer   Answerer
	recorder   bookings.Recorder
	opts       Options
	log        *zap.Logger
	now        func() time.Time
}

func NewOrchestrator(policy *booking.Policy, classifier booking.Classifier, answerer Answerer,
	recorder bookings.Recorder, opts Options, log *zap.Logger) *Orchestrator {
	if recorder == nil {
		recorder = bookings.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.HistoryMessages <= 0 {
		opts.HistoryMessages = 50
	}
	if opts.HistoryTokens <= 0 {
		opts.HistoryTokens = 8000
	}
	return &Orchestrator{
		policy:     policy,
		classifier: classifier,
		answerer:   answerer,
		recorder:   recorder,
		opts:       opts,
		log:        log,
		now:        time.Now,
	}
}

// Handle routes msg: into the active booking if there is one, else into a
// new booking when the message asks for one, else to document Q&A.
//
// An external-service failure yields an apology Reply and leaves st exactly
// as it was so the same turn can be retried. The only error returned is the
// context's.
func (o *Orchestrator) Handle(ctx context.Context, st *State, msg string) (Reply, error) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return Reply{Text: emptyReply, Route: RouteNone}, nil
	}

	if st.BookingActive() {
		return o.continueBooking(ctx, st, msg), nil
	}

	intent, err := o.classifier.Classify(ctx, msg)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Reply{}, ctxErr
		}
		if domain.IsTransient(err) {
			o.log.Warn("intent classification unavailable", zap.Error(err))
			return Reply{Text: unavailableReply, Route: RouteNone, Retryable: true}, nil
		}
		o.log.Warn("intent classification failed, treating as question", zap.Error(err))
		intent = booking.NoIntent
	}
	o.log.Debug("intent", zap.String("session", st.ID), zap.Stringer("intent", intent))

	if kind, ok := intent.Kind(); ok {
		sess, err := booking.NewSession(o.policy, kind)
		if err != nil {
			o.log.Error("cannot start booking", zap.Error(err))
			return Reply{Text: failedReply, Route: RouteBooking}, nil
		}
		st.Booking = sess
		o.log.Info("booking started", zap.String("session", st.ID), zap.String("kind", string(kind)))
		reply := Reply{Text: sess.Intro(), Route: RouteBooking, BookingState: sess.State}
		o.remember(st, msg, reply.Text)
		return reply, nil
	}

	return o.answer(ctx, st, msg)
}

func (o *Orchestrator) continueBooking(ctx context.Context, st *State, msg string) Reply {
	sess := st.Booking
	step, err := sess.Submit(o.policy, msg)
	if err != nil {
		// Only reachable with a closed or misconfigured session.
		o.log.Error("booking step failed", zap.String("session", st.ID), zap.Error(err))
		st.Booking = nil
		return Reply{Text: failedReply, Route: RouteBooking}
	}

	fields := []zap.Field{
		zap.String("session", st.ID),
		zap.String("kind", string(sess.Kind)),
		zap.String("state", string(step.State)),
		zap.Int("index", sess.Index),
	}
	if step.Rejected != nil {
		fields = append(fields, zap.String("rejected", string(step.Rejected.Field)), zap.Int("attempts", sess.Attempts))
	}
	o.log.Info("booking step", fields...)

	reply := Reply{Text: step.Reply, Route: RouteBooking, BookingState: step.State, Confirmation: step.Confirmation}
	if step.Confirmation != nil {
		if err := o.recorder.Record(ctx, step.Confirmation); err != nil {
			o.log.Warn("failed to record booking", zap.String("reference", step.Confirmation.Reference), zap.Error(err))
		}
	}
	if step.State.Terminal() {
		st.Booking = nil
	}
	o.remember(st, msg, reply.Text)
	return reply
}

func (o *Orchestrator) answer(ctx context.Context, st *State, msg string) (Reply, error) {
	ans, err := o.answerer.Answer(ctx, msg)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Reply{}, ctxErr
		}
		transient := domain.IsTransient(err)
		o.log.Warn("answer failed", zap.String("session", st.ID), zap.Bool("transient", transient), zap.Error(err))
		text := failedReply
		if transient {
			text = unavailableReply
		}
		return Reply{Text: text, Route: RouteQA, Retryable: transient}, nil
	}

	reply := Reply{Text: ans.Text, Route: RouteQA, Sources: sourceNames(ans.Sources)}
	o.remember(st, msg, reply.Text)
	return reply, nil
}

func (o *Orchestrator) remember(st *State, user, assistant string) {
	now := o.now()
	st.History = AddMessage(st.History, RoleUser, user, now)
	st.History = AddMessage(st.History, RoleAssistant, assistant, now)
	st.History = TruncateHistory(st.History, o.opts.HistoryTokens, o.opts.HistoryMessages)
}

func sourceNames(results []domain.SearchResult) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range results {
		if src := r.Chunk.Source; src != "" && !seen[src] {
			seen[src] = true
			out = append(out, src)
		}
	}
	return out
}
