// Package chat answers questions about the loaded resume. Every call returns
// reply text; failures are turned into fixed user-facing messages.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumechat/store"
	"resumechat/telemetry"
	"resumechat/types"
)

const (
	DefaultMinLatency = time.Second
	DefaultJitter     = time.Second
)

// Documents is the view of the document loader the service needs.
type Documents interface {
	Cache() *types.DocumentCache
	State() types.DocumentState
	Reload(ctx context.Context) *types.DocumentCache
	Wait(ctx context.Context) types.DocumentState
}

// Backend answers a question, optionally using the document text.
type Backend interface {
	Ask(ctx context.Context, question, document string) (string, error)
}

type Option func(*Service)

// WithLatency sets the minimum reply delay and the width of the random jitter added to it.
func WithLatency(min, jitter time.Duration) Option {
	return func(s *Service) {
		s.minLatency = min
		s.jitter = jitter
	}
}

func WithTranscript(ts store.TranscriptStorer) Option {
	return func(s *Service) { s.transcript = ts }
}

func WithRecorder(r *telemetry.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// withSleep replaces time.Sleep, for tests.
func withSleep(sleep func(time.Duration)) Option {
	return func(s *Service) { s.sleep = sleep }
}

type Service struct {
	docs       Documents
	backend    Backend
	transcript store.TranscriptStorer
	metrics    *telemetry.Recorder
	logger     *slog.Logger

	minLatency time.Duration
	jitter     time.Duration
	sleep      func(time.Duration)
	now        func() time.Time
}

func New(docs Documents, backend Backend, opts ...Option) *Service {
	s := &Service{
		docs:       docs,
		backend:    backend,
		transcript: store.NewMemoryStore(),
		logger:     slog.Default(),
		minLatency: DefaultMinLatency,
		jitter:     DefaultJitter,
		sleep:      time.Sleep,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit answers question. It returns false, records nothing and makes no
// call when the question is blank. Otherwise it always returns a reply, never
// sooner than the latency floor, and ignores cancellation of ctx.
func (s *Service) Submit(ctx context.Context, question string) (types.Reply, bool) {
	question = strings.TrimSpace(question)
	if question == "" {
		return types.Reply{}, false
	}
	ctx = context.WithoutCancel(ctx)
	start := s.now()

	userTurn := s.newTurn(question, types.OriginUser)
	s.transcript.Append(userTurn)

	s.sleep(s.delay())

	reply := s.answer(ctx, question)
	reply.Question = userTurn
	reply.Answer = s.newTurn(reply.Text, types.OriginAssistant)
	s.transcript.Append(reply.Answer)

	var kind string
	if reply.Failure != nil {
		kind = string(reply.Failure.Kind)
	}
	s.metrics.Reply(ctx, string(reply.Outcome), kind, s.now().Sub(start))

	return reply, true
}

func (s *Service) answer(ctx context.Context, question string) types.Reply {
	cache := s.docs.Cache()
	switch types.StateOf(cache) {
	case types.StateLoading:
		return types.Reply{Text: types.StillLoadingReply, Outcome: types.OutcomeStillLoading}
	case types.StateFailed:
		return types.Reply{Text: types.LoadFailedReply, Outcome: types.OutcomeLoadFailed}
	}

	answer, err := s.backend.Ask(ctx, question, cache.Content)
	if err != nil {
		var f *types.Failure
		if !errors.As(err, &f) {
			f = types.NewFailure(types.BackendUnreachable, err)
		}
		s.logger.Error("API call to backend failed", "kind", string(f.Kind), "error", f.Err)
		return types.Reply{Text: types.DifficultiesReply, Outcome: types.OutcomeDifficulties, Failure: f}
	}

	return types.Reply{Text: answer, Outcome: types.OutcomeAnswered}
}

func (s *Service) delay() time.Duration {
	d := s.minLatency
	if s.jitter > 0 {
		d += time.Duration(rand.Int63n(int64(s.jitter)))
	}
	return d
}

func (s *Service) newTurn(text string, origin types.Origin) types.ChatTurn {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	now := s.now()
	return types.ChatTurn{
		ID:        id.String(),
		Text:      text,
		Origin:    origin,
		Timestamp: now.Format("15:04"),
		CreatedAt: now,
	}
}

func (s *Service) IsReady() bool {
	return s.docs.State() == types.StateReady
}

func (s *Service) DocumentState() types.DocumentState {
	return s.docs.State()
}

func (s *Service) Document() *types.DocumentCache {
	return s.docs.Cache()
}

// RefreshDocument reloads the document and returns once the load is done.
// Query IsReady afterwards for the result.
func (s *Service) RefreshDocument(ctx context.Context) {
	s.docs.Reload(ctx)
}

// WaitReady blocks until the current document load completes or ctx ends.
func (s *Service) WaitReady(ctx context.Context) bool {
	return s.docs.Wait(ctx) == types.StateReady
}

func (s *Service) Transcript() []types.ChatTurn {
	return s.transcript.List()
}
