package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumechat/app/agent"
	"resumechat/loader"
	"resumechat/loader/pdftest"
	"resumechat/types"
)

// backendServer answers every question with answer and counts calls.
func backendServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func answering(answer string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"answer": answer})
	}
}

func writeResume(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.Build(pdftest.Lines(lines...)), 0644))
	return path
}

func noSleep(time.Duration) {}

func newService(docs Documents, backendURL string, opts ...Option) *Service {
	opts = append([]Option{withSleep(noSleep)}, opts...)
	return New(docs, agent.NewClient(backendURL, 0), opts...)
}

func TestSubmitAnswersVerbatim(t *testing.T) {
	server, calls := backendServer(t, answering("5 years experience"))
	docs := loader.New(loader.NewFetcher(writeResume(t, "Jane Doe", "Go engineer"), nil), loader.NewPDFConverter())
	docs.Load(context.Background())

	s := newService(docs, server.URL)
	reply, ok := s.Submit(context.Background(), "experience?")

	require.True(t, ok)
	assert.Equal(t, "5 years experience", reply.Text)
	assert.Equal(t, types.OutcomeAnswered, reply.Outcome)
	assert.Nil(t, reply.Failure)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubmitRespectsLatencyFloor(t *testing.T) {
	server, _ := backendServer(t, answering("5 years experience"))
	docs := loader.New(loader.NewFetcher(writeResume(t, "Jane Doe"), nil), loader.NewPDFConverter())
	docs.Load(context.Background())

	floor := 60 * time.Millisecond
	s := New(docs, agent.NewClient(server.URL, 0), WithLatency(floor, 20*time.Millisecond))

	start := time.Now()
	reply, ok := s.Submit(context.Background(), "experience?")
	elapsed := time.Since(start)

	require.True(t, ok)
	assert.Equal(t, "5 years experience", reply.Text)
	assert.GreaterOrEqual(t, elapsed, floor)
}

func TestDelayStaysInWindow(t *testing.T) {
	var mu sync.Mutex
	var delays []time.Duration
	record := func(d time.Duration) {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
	}

	s := New(&fakeDocs{}, nil, withSleep(record))
	for i := 0; i < 200; i++ {
		_, ok := s.Submit(context.Background(), "still there?")
		require.True(t, ok)
	}

	require.Len(t, delays, 200)
	for _, d := range delays {
		assert.GreaterOrEqual(t, d, DefaultMinLatency)
		assert.Less(t, d, DefaultMinLatency+DefaultJitter)
	}
}

func TestSubmitRejectsBlankQuestions(t *testing.T) {
	server, calls := backendServer(t, answering("unused"))
	docs := &fakeDocs{cache: &types.DocumentCache{Content: "Jane Doe"}}
	slept := false
	s := New(docs, agent.NewClient(server.URL, 0), withSleep(func(time.Duration) { slept = true }))

	for _, q := range []string{"", "   ", "\n\t "} {
		_, ok := s.Submit(context.Background(), q)
		assert.False(t, ok)
	}

	assert.Empty(t, s.Transcript())
	assert.Zero(t, calls.Load())
	assert.False(t, slept)
}

func TestSubmitStillLoading(t *testing.T) {
	server, calls := backendServer(t, answering("unused"))
	s := newService(&fakeDocs{}, server.URL)

	reply, ok := s.Submit(context.Background(), "skills?")

	require.True(t, ok)
	assert.Equal(t, types.StillLoadingReply, reply.Text)
	assert.Equal(t, types.OutcomeStillLoading, reply.Outcome)
	assert.Zero(t, calls.Load())
}

func TestSubmitAfterMissingArtifactReportsLoadFailure(t *testing.T) {
	artifacts := httptest.NewServer(http.NotFoundHandler())
	defer artifacts.Close()
	server, calls := backendServer(t, answering("unused"))

	docs := loader.New(loader.NewFetcher(artifacts.URL+"/resume.pdf", artifacts.Client()), loader.NewPDFConverter())
	cache := docs.Load(context.Background())
	assert.Equal(t, types.LoadFailedContent, cache.Content)

	s := newService(docs, server.URL)
	assert.False(t, s.IsReady())

	reply, ok := s.Submit(context.Background(), "skills?")
	require.True(t, ok)
	assert.Equal(t, types.LoadFailedReply, reply.Text)
	assert.NotEqual(t, types.StillLoadingReply, reply.Text)
	assert.Equal(t, types.OutcomeLoadFailed, reply.Outcome)
	assert.Zero(t, calls.Load())
}

func TestSubmitBackendUnreachable(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	docs := &fakeDocs{cache: &types.DocumentCache{Content: "Jane Doe"}}
	s := newService(docs, url)

	reply, ok := s.Submit(context.Background(), "skills?")
	require.True(t, ok)
	assert.Equal(t, "I'm experiencing technical difficulties. Please try again later.", reply.Text)
	require.NotNil(t, reply.Failure)
	assert.Equal(t, types.BackendUnreachable, reply.Failure.Kind)
}

func TestSubmitMalformedIsIdempotent(t *testing.T) {
	server, calls := backendServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	})
	docs := &fakeDocs{cache: &types.DocumentCache{Content: "Jane Doe"}}
	s := newService(docs, server.URL)

	for i := 0; i < 3; i++ {
		reply, ok := s.Submit(context.Background(), "skills?")
		require.True(t, ok)
		assert.Equal(t, types.DifficultiesReply, reply.Text)
		assert.Equal(t, types.OutcomeDifficulties, reply.Outcome)
		assert.Equal(t, types.BackendMalformed, reply.Failure.Kind)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestSubmitWrapsPlainBackendErrors(t *testing.T) {
	docs := &fakeDocs{cache: &types.DocumentCache{Content: "Jane Doe"}}
	s := New(docs, failingBackend{}, withSleep(noSleep))

	reply, ok := s.Submit(context.Background(), "skills?")
	require.True(t, ok)
	assert.Equal(t, types.DifficultiesReply, reply.Text)
	assert.Equal(t, types.BackendUnreachable, reply.Failure.Kind)
}

func TestSubmitRecordsTurns(t *testing.T) {
	server, _ := backendServer(t, answering("Go and SQL"))
	docs := &fakeDocs{cache: &types.DocumentCache{Content: "Jane Doe"}}
	s := newService(docs, server.URL)

	reply, _ := s.Submit(context.Background(), "  skills?  ")
	s.Submit(context.Background(), "education?")

	turns := s.Transcript()
	require.Len(t, turns, 4)
	assert.Equal(t, reply.Question, turns[0])
	assert.Equal(t, reply.Answer, turns[1])
	assert.Equal(t, "skills?", turns[0].Text)
	assert.Equal(t, types.OriginUser, turns[0].Origin)
	assert.Equal(t, "Go and SQL", turns[1].Text)
	assert.Equal(t, types.OriginAssistant, turns[1].Origin)
	assert.NotEmpty(t, turns[0].Timestamp)

	seen := map[string]bool{}
	for _, turn := range turns {
		assert.False(t, seen[turn.ID], "duplicate turn id %s", turn.ID)
		seen[turn.ID] = true
	}
}

func TestSubmitIgnoresCancellation(t *testing.T) {
	server, calls := backendServer(t, answering("ok"))
	docs := &fakeDocs{cache: &types.DocumentCache{Content: "Jane Doe"}}
	s := newService(docs, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply, ok := s.Submit(ctx, "skills?")
	require.True(t, ok)
	assert.Equal(t, "ok", reply.Text)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRefreshDocumentTransitions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.pdf")
	docs := loader.New(loader.NewFetcher(path, nil), loader.NewPDFConverter())
	s := newService(docs, "http://unused")

	docs.Load(context.Background())
	assert.False(t, s.IsReady())
	assert.Equal(t, types.StateFailed, s.DocumentState())

	require.NoError(t, os.WriteFile(path, pdftest.Build(pdftest.Lines("Jane Doe")), 0644))
	s.RefreshDocument(context.Background())
	assert.True(t, s.IsReady())

	require.NoError(t, os.Remove(path))
	s.RefreshDocument(context.Background())
	assert.False(t, s.IsReady())
	assert.Equal(t, types.StateFailed, s.DocumentState())
}

func TestWaitReady(t *testing.T) {
	docs := loader.New(loader.NewFetcher(writeResume(t, "Jane Doe"), nil), loader.NewPDFConverter())
	s := newService(docs, "http://unused")

	go docs.Load(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.True(t, s.WaitReady(ctx))
}

func TestConcurrentSubmits(t *testing.T) {
	server, calls := backendServer(t, answering("ok"))
	docs := &fakeDocs{cache: &types.DocumentCache{Content: "Jane Doe"}}
	s := New(docs, agent.NewClient(server.URL, 0), WithLatency(10*time.Millisecond, 10*time.Millisecond))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, ok := s.Submit(context.Background(), "skills?")
			assert.True(t, ok)
			assert.Equal(t, "ok", reply.Text)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), calls.Load())
	assert.Len(t, s.Transcript(), 20)
}

type fakeDocs struct {
	cache *types.DocumentCache
}

func (f *fakeDocs) Cache() *types.DocumentCache { return f.cache }

func (f *fakeDocs) State() types.DocumentState { return types.StateOf(f.cache) }

func (f *fakeDocs) Reload(context.Context) *types.DocumentCache { return f.cache }

func (f *fakeDocs) Wait(context.Context) types.DocumentState { return f.State() }

type failingBackend struct{}

func (failingBackend) Ask(context.Context, string, string) (string, error) {
	return "", errors.New("connection reset")
}
