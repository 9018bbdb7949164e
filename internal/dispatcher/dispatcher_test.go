package dispatcher

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-assistant-be/internal/generation"
	"doc-assistant-be/internal/index"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/internal/prompt"
	"doc-assistant-be/internal/retrieval"
	"doc-assistant-be/internal/session"
	"doc-assistant-be/pkg/embedding"
	"doc-assistant-be/pkg/events"
	"doc-assistant-be/pkg/llm"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: s.vector},
	}, nil
}

type stubLLM struct {
	answer  string
	errs    []error
	calls   int
	prompts [][]llm.Message
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, history)
	if len(s.errs) >= s.calls {
		return "", s.errs[s.calls-1]
	}
	return s.answer, nil
}

func (s *stubLLM) Generate(ctx context.Context, p string, options ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: p}})
}

type recordingPublisher struct {
	published []events.Event
}

func (r *recordingPublisher) Publish(e events.Event) error {
	r.published = append(r.published, e)
	return nil
}

type harness struct {
	dispatcher *Dispatcher
	sessions   *session.Store
	llm        *stubLLM
	publisher  *recordingPublisher
}

func newHarness(t *testing.T, docs []index.Document, backend *stubLLM) *harness {
	t.Helper()

	dim := 3
	idx, err := index.NewMemoryIndex(docs, dim)
	require.NoError(t, err)

	sessions := session.NewStore()
	engine := retrieval.NewEngine(&stubEmbedder{vector: []float32{1, 0, 0}}, idx,
		retrieval.Config{MaxQueryChars: 2000, MaxK: 4}, logger.Noop())
	assembler := prompt.NewAssembler(prompt.Config{HistoryWindow: 6, CharBudget: 12000})
	client := generation.NewClient(backend,
		generation.Config{MaxAttempts: 3, BackoffBase: time.Millisecond}, logger.Noop())
	publisher := &recordingPublisher{}

	d := New(sessions, engine, assembler, client, publisher, logger.Noop(), Config{
		MaxMessageChars: 2000,
		RetrievalK:      4,
	})
	return &harness{dispatcher: d, sessions: sessions, llm: backend, publisher: publisher}
}

func someDocs() []index.Document {
	return []index.Document{
		{ID: "guide#0", Text: "installation guide", Embedding: []float32{1, 0, 0}},
		{ID: "guide#1", Text: "troubleshooting", Embedding: []float32{0, 1, 0}},
	}
}

func TestHandleMessageSuccess(t *testing.T) {
	h := newHarness(t, someDocs(), &stubLLM{answer: "Here is how you install it."})

	resp := h.dispatcher.HandleMessage(context.Background(), "sess-1", "how do I install?")

	assert.Equal(t, TypeResponse, resp.Type)
	assert.Equal(t, "Here is how you install it.", resp.Content)

	sess, found := h.sessions.Get("sess-1")
	require.True(t, found)
	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, session.RoleUser, history[0].Role)
	assert.Equal(t, session.RoleAssistant, history[1].Role)
	assert.False(t, sess.Busy())

	require.Len(t, h.publisher.published, 1)
	assert.Equal(t, events.TypeTurnCompleted, h.publisher.published[0].EventType())
}

func TestHandleMessageEmptyIndexStillGenerates(t *testing.T) {
	backend := &stubLLM{answer: "Hello! How can I help?"}
	h := newHarness(t, nil, backend)

	resp := h.dispatcher.HandleMessage(context.Background(), "sess-1", "hello")

	assert.Equal(t, TypeResponse, resp.Type)
	assert.Equal(t, 1, backend.calls, "generation must run even with an empty index")

	// The prompt carries no context segment when nothing was retrieved
	require.NotEmpty(t, backend.prompts)
	systemSegment := backend.prompts[0][0].Content
	assert.NotContains(t, systemSegment, "<supporting_context>")
}

func TestHandleMessageValidation(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantNotice string
	}{
		{name: "empty message", text: "", wantNotice: "Please enter a message."},
		{name: "whitespace only", text: "   \n\t ", wantNotice: "Please enter a message."},
		{name: "oversized message", text: strings.Repeat("x", 2001), wantNotice: "too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubLLM{answer: "should not be called"}
			h := newHarness(t, someDocs(), backend)

			resp := h.dispatcher.HandleMessage(context.Background(), "sess-1", tt.text)

			assert.Equal(t, TypeError, resp.Type)
			assert.Contains(t, resp.Content, tt.wantNotice)
			assert.Zero(t, backend.calls, "rejected input must not reach the backend")
		})
	}
}

func TestHandleMessageBusyReject(t *testing.T) {
	h := newHarness(t, someDocs(), &stubLLM{answer: "ok"})

	sess := h.sessions.LoadOrCreate("sess-1")
	require.True(t, sess.TryAcquire())

	resp := h.dispatcher.HandleMessage(context.Background(), "sess-1", "second message")
	assert.Equal(t, TypeError, resp.Type)
	assert.Contains(t, resp.Content, "previous message")
	assert.Empty(t, sess.History(), "rejected message must not be recorded")

	sess.Release()
	resp = h.dispatcher.HandleMessage(context.Background(), "sess-1", "second message")
	assert.Equal(t, TypeResponse, resp.Type)
}

func TestHandleMessageFatalFailure(t *testing.T) {
	backend := &stubLLM{errs: []error{&llm.APIError{StatusCode: 401, Body: "api key invalid"}}}
	h := newHarness(t, someDocs(), backend)

	resp := h.dispatcher.HandleMessage(context.Background(), "sess-1", "question")

	assert.Equal(t, TypeError, resp.Type)
	assert.NotContains(t, resp.Content, "api key", "backend detail must not leak to the user")
	assert.NotContains(t, resp.Content, "401")
	assert.Equal(t, 1, backend.calls, "fatal failures are not retried")

	sess, found := h.sessions.Get("sess-1")
	require.True(t, found)
	assert.Equal(t, 0, sess.CountByRole(session.RoleAssistant), "no assistant turn for a failed exchange")
	assert.Equal(t, 1, sess.CountByRole(session.RoleUser))
	assert.False(t, sess.Busy(), "busy flag must reset after failure")
	assert.Empty(t, h.publisher.published, "no event for a failed exchange")
}

func TestHandleMessageTransientRecovery(t *testing.T) {
	backend := &stubLLM{
		errs:   []error{&llm.APIError{StatusCode: 503}, &llm.APIError{StatusCode: 503}},
		answer: "recovered answer",
	}
	h := newHarness(t, someDocs(), backend)

	resp := h.dispatcher.HandleMessage(context.Background(), "sess-1", "question")

	assert.Equal(t, TypeResponse, resp.Type)
	assert.Equal(t, "recovered answer", resp.Content)
	assert.Equal(t, 3, backend.calls)
}

func TestHandleMessageRateLimitedNotice(t *testing.T) {
	backend := &stubLLM{errs: []error{&llm.APIError{StatusCode: 429, RetryAfter: 30 * time.Second}}}
	h := newHarness(t, someDocs(), backend)

	resp := h.dispatcher.HandleMessage(context.Background(), "sess-1", "question")

	assert.Equal(t, TypeError, resp.Type)
	assert.Contains(t, resp.Content, "30s")
	assert.Equal(t, 1, backend.calls)
}

func TestAssistantTurnsMatchSuccessfulGenerations(t *testing.T) {
	backend := &stubLLM{
		errs:   []error{&llm.APIError{StatusCode: 400}},
		answer: "fine",
	}
	h := newHarness(t, someDocs(), backend)

	// First exchange fails, next two succeed
	h.dispatcher.HandleMessage(context.Background(), "sess-1", "one")
	h.dispatcher.HandleMessage(context.Background(), "sess-1", "two")
	h.dispatcher.HandleMessage(context.Background(), "sess-1", "three")

	sess, found := h.sessions.Get("sess-1")
	require.True(t, found)
	assert.Equal(t, 3, sess.CountByRole(session.RoleUser))
	assert.Equal(t, 2, sess.CountByRole(session.RoleAssistant))
	assert.Len(t, h.publisher.published, 2)
}

func TestHandleMessageSessionsAreIndependent(t *testing.T) {
	h := newHarness(t, someDocs(), &stubLLM{answer: "ok"})

	busy := h.sessions.LoadOrCreate("sess-busy")
	require.True(t, busy.TryAcquire())

	// A different session is unaffected by sess-busy's in-flight run
	resp := h.dispatcher.HandleMessage(context.Background(), "sess-other", "hello")
	assert.Equal(t, TypeResponse, resp.Type)
}

func TestHandleMessageHistoryExcludesCurrentMessage(t *testing.T) {
	backend := &stubLLM{answer: "ok"}
	h := newHarness(t, someDocs(), backend)

	h.dispatcher.HandleMessage(context.Background(), "sess-1", "first")
	h.dispatcher.HandleMessage(context.Background(), "sess-1", "second")

	// Second prompt: system, prior user turn, prior assistant turn, new message
	require.Len(t, backend.prompts, 2)
	second := backend.prompts[1]
	require.Len(t, second, 4)
	assert.Equal(t, "first", second[1].Content)
	assert.Equal(t, "ok", second[2].Content)
	assert.Equal(t, "second", second[3].Content)
}

func TestEndSession(t *testing.T) {
	h := newHarness(t, someDocs(), &stubLLM{answer: "ok"})

	h.dispatcher.HandleMessage(context.Background(), "sess-1", "hello")
	h.dispatcher.EndSession("sess-1")

	_, found := h.sessions.Get("sess-1")
	assert.False(t, found)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text untouched", in: "hello world", want: "hello world"},
		{name: "newlines and tabs kept", in: "a\n\tb", want: "a\n\tb"},
		{name: "control characters stripped", in: "a\x00b\x1bc\rd", want: "abcd"},
		{name: "unicode preserved", in: "héllo – wörld", want: "héllo – wörld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
