package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"doc-assistant-be/internal/generation"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/internal/prompt"
	"doc-assistant-be/internal/retrieval"
	"doc-assistant-be/internal/session"
	"doc-assistant-be/pkg/events"
	"doc-assistant-be/pkg/llm"
)

const (
	TypeResponse = "response"
	TypeError    = "error"
)

// Response is the single outbound event produced per inbound message.
type Response struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// User-facing notices. Raw backend detail never leaves the session boundary.
const (
	noticeEmpty       = "Please enter a message."
	noticeTooLong     = "That message is too long. Please shorten it and try again."
	noticeBusy        = "Still working on your previous message, one moment."
	noticeTryAgain    = "Something went wrong while generating a response. Please try again."
	noticeUnavailable = "The assistant is unavailable right now. Please try again later."
)

type Config struct {
	MaxMessageChars int
	RetrievalK      int
}

// Dispatcher runs the per-message pipeline: validate, retrieve, assemble,
// generate, record. Each session cycles Idle -> Processing -> Idle; the
// session's busy gate keeps runs serialized while distinct sessions proceed
// concurrently.
type Dispatcher struct {
	sessions  *session.Store
	engine    *retrieval.Engine
	assembler *prompt.Assembler
	client    *generation.Client
	publisher events.Publisher // optional
	logger    logger.ILogger
	cfg       Config
}

func New(
	sessions *session.Store,
	engine *retrieval.Engine,
	assembler *prompt.Assembler,
	client *generation.Client,
	publisher events.Publisher,
	log logger.ILogger,
	cfg Config,
) *Dispatcher {
	if cfg.MaxMessageChars <= 0 {
		cfg.MaxMessageChars = 2000
	}
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = 4
	}
	return &Dispatcher{
		sessions:  sessions,
		engine:    engine,
		assembler: assembler,
		client:    client,
		publisher: publisher,
		logger:    log,
		cfg:       cfg,
	}
}

// HandleMessage processes one inbound message for the given session and
// returns exactly one outbound event. The context belongs to the originating
// connection; cancellation aborts the in-flight generation best-effort.
func (d *Dispatcher) HandleMessage(ctx context.Context, sessionID, text string) Response {
	text = strings.TrimSpace(text)
	if text == "" {
		return Response{Type: TypeError, Content: noticeEmpty}
	}
	if len(text) > d.cfg.MaxMessageChars {
		return Response{Type: TypeError, Content: noticeTooLong}
	}

	sess := d.sessions.LoadOrCreate(sessionID)
	if !sess.TryAcquire() {
		return Response{Type: TypeError, Content: noticeBusy}
	}
	defer sess.Release()

	history := sess.History()
	sess.Append(session.RoleUser, text)

	results, err := d.engine.Retrieve(ctx, text, d.cfg.RetrievalK)
	if err != nil {
		// Query-shape rejections degrade to an uncontextualized chat;
		// generation still proceeds
		d.logger.Warn("Dispatcher", "Retrieval rejected query, proceeding without context", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		results = nil
	}

	messages := d.assembler.Assemble(history, text, results)

	answer, err := d.client.Generate(ctx, messages)
	if err != nil {
		return d.failure(sessionID, err)
	}

	answer = Sanitize(answer)
	sess.Append(session.RoleAssistant, answer)
	d.publishTurn(sessionID, text, answer)

	return Response{Type: TypeResponse, Content: answer}
}

// EndSession releases per-session resources once the connection is gone.
func (d *Dispatcher) EndSession(sessionID string) {
	d.sessions.Drop(sessionID)
}

// failure maps a generation error to a sanitized notice. No assistant turn
// is recorded for a failed exchange.
func (d *Dispatcher) failure(sessionID string, err error) Response {
	details := map[string]interface{}{
		"session_id": sessionID,
		"error":      err.Error(),
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		details["backend_status"] = apiErr.StatusCode
		details["backend_body"] = apiErr.Body
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		d.logger.Info("Dispatcher", "Generation aborted by connection", details)
		return Response{Type: TypeError, Content: noticeTryAgain}
	}

	var rateLimited *generation.RateLimitedError
	if errors.As(err, &rateLimited) {
		d.logger.Warn("Dispatcher", "Generation rate limited", details)
		notice := "The assistant is handling too many requests. Please try again shortly."
		if rateLimited.RetryAfter > 0 {
			notice = fmt.Sprintf("The assistant is handling too many requests. Please try again in %s.", rateLimited.RetryAfter)
		}
		return Response{Type: TypeError, Content: notice}
	}

	var transient *generation.TransientError
	if errors.As(err, &transient) {
		d.logger.Error("Dispatcher", "Generation failed after retries", details)
		return Response{Type: TypeError, Content: noticeTryAgain}
	}

	d.logger.Error("Dispatcher", "Generation failed", details)
	return Response{Type: TypeError, Content: noticeUnavailable}
}

func (d *Dispatcher) publishTurn(sessionID, userMessage, assistantMessage string) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(events.NewTurnCompleted(sessionID, userMessage, assistantMessage)); err != nil {
		d.logger.Warn("Dispatcher", "Failed to publish turn event", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}
