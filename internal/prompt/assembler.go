package prompt

import (
	"strings"

	"doc-assistant-be/internal/index"
	"doc-assistant-be/internal/session"
	"doc-assistant-be/pkg/llm"
)

// DefaultSystemInstruction keeps answers grounded in retrieved material.
const DefaultSystemInstruction = "You are a helpful assistant answering questions about the user's document collection.\n" +
	"Base your answer on the supporting context when it is provided. " +
	"If the context does not contain the answer, say \"I don't know.\" instead of making one up. " +
	"Be concise but complete."

type Config struct {
	HistoryWindow     int
	CharBudget        int
	SystemInstruction string
}

func DefaultConfig() Config {
	return Config{
		HistoryWindow:     6,
		CharBudget:        12000,
		SystemInstruction: DefaultSystemInstruction,
	}
}

// Assembler deterministically combines history, retrieved context and the
// new message into a role-tagged prompt. Pure: no I/O, no side effects.
type Assembler struct {
	cfg Config
}

func NewAssembler(cfg Config) *Assembler {
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = DefaultSystemInstruction
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultConfig().HistoryWindow
	}
	if cfg.CharBudget <= 0 {
		cfg.CharBudget = DefaultConfig().CharBudget
	}
	return &Assembler{cfg: cfg}
}

// Assemble builds the prompt in fixed order: system segment with supporting
// context, prior turns (newest HistoryWindow of them), then the new user
// message. When the character budget is exceeded, oldest history goes first,
// then the lowest-ranked snippets. The new message and the base instruction
// are never dropped.
func (a *Assembler) Assemble(history []session.Turn, newMessage string, results []index.RetrievalResult) []llm.Message {
	if len(history) > a.cfg.HistoryWindow {
		history = history[len(history)-a.cfg.HistoryWindow:]
	}

	for {
		system := a.buildSystem(results)
		size := len(system) + len(newMessage)
		for _, turn := range history {
			size += len(turn.Content)
		}

		if size <= a.cfg.CharBudget {
			return a.build(system, history, newMessage)
		}
		if len(history) > 0 {
			history = history[1:]
			continue
		}
		if len(results) > 0 {
			results = results[:len(results)-1]
			continue
		}
		// Only the instruction and the new message remain
		return a.build(system, nil, newMessage)
	}
}

func (a *Assembler) build(system string, history []session.Turn, newMessage string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: newMessage})
	return messages
}

func (a *Assembler) buildSystem(results []index.RetrievalResult) string {
	var b strings.Builder
	b.WriteString(a.cfg.SystemInstruction)

	if len(results) == 0 {
		return b.String()
	}

	b.WriteString("\n\n<supporting_context>\n")
	for _, res := range results {
		b.WriteString("<snippet source=\"")
		b.WriteString(res.DocumentID)
		b.WriteString("\">\n")
		b.WriteString(res.Snippet)
		b.WriteString("\n</snippet>\n")
	}
	b.WriteString("</supporting_context>")
	return b.String()
}
