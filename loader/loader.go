// Package loader acquires the resume artifact, converts it to text and keeps
// the latest result as an immutable in-memory cache.
package loader

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"resumechat/telemetry"
	"resumechat/types"
)

var (
	errEmptyText   = errors.New("artifact converted to empty text")
	errInvalidUTF8 = errors.New("text artifact is not valid UTF-8")
)

// TokenCounter reports the token size of the loaded text. Optional.
type TokenCounter interface {
	Count(text string) (int, error)
}

type Option func(*Loader)

func WithTokenCounter(tc TokenCounter) Option {
	return func(l *Loader) { l.tokens = tc }
}

func WithRecorder(r *telemetry.Recorder) Option {
	return func(l *Loader) { l.metrics = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

type Loader struct {
	fetcher   Fetcher
	converter Converter
	tokens    TokenCounter
	metrics   *telemetry.Recorder
	logger    *slog.Logger
	now       func() time.Time

	cache atomic.Pointer[types.DocumentCache]

	runMu sync.Mutex
	run   *loadRun
}

// loadRun is the completion signal of one Load call.
type loadRun struct {
	done    chan struct{}
	started bool
}

func New(fetcher Fetcher, converter Converter, opts ...Option) *Loader {
	l := &Loader{
		fetcher:   fetcher,
		converter: converter,
		logger:    slog.Default(),
		now:       time.Now,
		run:       &loadRun{done: make(chan struct{})},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the artifact once and publishes a new cache. Failures are
// absorbed into the cache as the load-failed sentinel, so Load never fails.
// It runs to completion even if ctx is cancelled.
func (l *Loader) Load(ctx context.Context) *types.DocumentCache {
	run := l.begin()
	defer close(run.done)

	cache := l.load(context.WithoutCancel(ctx))
	l.cache.Store(cache)
	return cache
}

// Reload drops the current cache, even a valid one, and loads again.
func (l *Loader) Reload(ctx context.Context) *types.DocumentCache {
	run := l.begin()
	defer close(run.done)

	l.cache.Store(nil)
	l.logger.Info("reloading document", "location", l.fetcher.Location())

	cache := l.load(context.WithoutCancel(ctx))
	l.cache.Store(cache)
	return cache
}

func (l *Loader) IsReady() bool {
	return l.State() == types.StateReady
}

func (l *Loader) State() types.DocumentState {
	return types.StateOf(l.cache.Load())
}

// Cache returns the current cache or nil while nothing has been published.
func (l *Loader) Cache() *types.DocumentCache {
	return l.cache.Load()
}

// Loaded returns a channel closed when the most recent load finishes. Before
// the first load starts it belongs to that first load.
func (l *Loader) Loaded() <-chan struct{} {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	return l.run.done
}

// Wait blocks until the current load finishes or ctx is done and reports the state.
func (l *Loader) Wait(ctx context.Context) types.DocumentState {
	select {
	case <-l.Loaded():
	case <-ctx.Done():
	}
	return l.State()
}

func (l *Loader) begin() *loadRun {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	if l.run.started {
		l.run = &loadRun{done: make(chan struct{})}
	}
	l.run.started = true
	return l.run
}

func (l *Loader) load(ctx context.Context) *types.DocumentCache {
	start := l.now()
	location := l.fetcher.Location()

	name, data, err := l.fetcher.Fetch(ctx)
	if err != nil {
		return l.fail(ctx, types.NewFailure(types.ArtifactUnavailable, err))
	}

	converter := l.converter
	if isTextArtifact(name) {
		converter = plainText{}
	}

	text, err := converter.Convert(ctx, name, data)
	if err != nil {
		return l.fail(ctx, types.NewFailure(types.ConversionFailure, err))
	}
	content := strings.TrimSpace(text.Content)
	if content == "" || content == types.LoadFailedContent {
		return l.fail(ctx, types.NewFailure(types.ConversionFailure, errEmptyText))
	}

	attrs := []any{
		"location", location,
		"bytes", len(data),
		"pages", text.Pages,
		"chars", len(content),
		"took", l.now().Sub(start).String(),
	}
	if l.tokens != nil {
		if n, err := l.tokens.Count(content); err == nil {
			attrs = append(attrs, "tokens", n)
		}
	}
	l.logger.Info("document loaded", attrs...)
	l.metrics.Load(ctx, string(types.StateReady), "")

	return &types.DocumentCache{
		Content:     content,
		LastUpdated: l.now(),
		Pages:       text.Pages,
		Source:      location,
	}
}

func (l *Loader) fail(ctx context.Context, f *types.Failure) *types.DocumentCache {
	l.logger.Error("error loading document",
		"location", l.fetcher.Location(),
		"kind", string(f.Kind),
		"error", f.Err,
	)
	l.metrics.Load(ctx, string(types.StateFailed), string(f.Kind))

	return &types.DocumentCache{
		Content:     types.LoadFailedContent,
		LastUpdated: l.now(),
		Source:      l.fetcher.Location(),
		Failure:     f,
	}
}
