package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-voicebot-be/internal/pkg/logger"
	"ai-voicebot-be/pkg/knowledge"
	"ai-voicebot-be/pkg/llm"
)

const systemPromptTemplate = `You are "Voice", a professional real estate assistant bot.
Your task is to answer user questions accurately based *only* on the provided context information.
If the context does not contain information to answer the question, state that you cannot find the specific details in your available documents. Do not make up information.
Personalization: If a user shares their name (%s), use it to address them in subsequent responses where appropriate.
Language: Respond entirely in %s. Do not switch languages unless requested.
Context Information:
%s`

const (
	// ResponseNotFound is returned without invoking the model when retrieval
	// yields nothing. Generating against empty context invites hallucination.
	ResponseNotFound = "I couldn't find relevant information in the uploaded documents."

	// ResponseApology substitutes for any backend failure. Raw errors never
	// cross the transport boundary.
	ResponseApology = "Sorry, I ran into an error while processing your request. Please try again."
)

// SessionView is the read-only slice of session state a turn needs.
type SessionView struct {
	UserName string
	Language string
	History  []llm.Message
}

// Pipeline binds a tenant's retriever to the generation backend. Building one
// is expensive, so a session constructs it once and reuses it every turn.
type Pipeline struct {
	TenantID  string
	retriever knowledge.Retriever
}

// Engine orchestrates retrieval-augmented generation for all tenants.
type Engine struct {
	store       knowledge.Store
	provider    llm.LLMProvider
	logger      logger.ILogger
	topK        int
	turnTimeout time.Duration
}

func NewEngine(
	store knowledge.Store,
	provider llm.LLMProvider,
	log logger.ILogger,
	topK int,
	turnTimeout time.Duration,
) *Engine {
	if topK <= 0 {
		topK = knowledge.DefaultTopK
	}
	if turnTimeout <= 0 {
		turnTimeout = 60 * time.Second
	}
	return &Engine{
		store:       store,
		provider:    provider,
		logger:      log,
		topK:        topK,
		turnTimeout: turnTimeout,
	}
}

// BuildPipeline obtains the tenant's retriever. Fails with an error wrapping
// knowledge.ErrTenantNotIngested when the tenant has no indexed documents,
// which is terminal for the session handshake.
func (e *Engine) BuildPipeline(tenantID string) (*Pipeline, error) {
	retriever, err := e.store.Retriever(tenantID, e.topK)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		TenantID:  tenantID,
		retriever: retriever,
	}, nil
}

// LanguageInstruction maps a session language code to the wording used in the
// system prompt. Unrecognized codes fall back to English, never an error.
func LanguageInstruction(code string) string {
	switch strings.ToLower(code) {
	case "hi", "hindi":
		return "Hindi"
	default:
		return "English"
	}
}

// RunTurn executes one query against the pipeline. Every failure path resolves
// into user-safe text; the returned string is always sendable.
func (e *Engine) RunTurn(ctx context.Context, pipeline *Pipeline, query string, view SessionView) string {
	ctx, cancel := context.WithTimeout(ctx, e.turnTimeout)
	defer cancel()

	passages, err := pipeline.retriever.Retrieve(ctx, query)
	if err != nil {
		e.logger.Error("Engine", "Retrieval failed", map[string]interface{}{
			"tenant_id": pipeline.TenantID,
			"error":     err.Error(),
		})
		return ResponseApology
	}
	if len(passages) == 0 {
		return ResponseNotFound
	}

	contextBlock := formatPassages(passages)

	userName := view.UserName
	if userName == "" {
		userName = "the user"
	}

	system := fmt.Sprintf(systemPromptTemplate, userName, LanguageInstruction(view.Language), contextBlock)

	messages := make([]llm.Message, 0, len(view.History)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, view.History...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	reply, err := e.provider.Chat(ctx, messages)
	if err != nil || strings.TrimSpace(reply) == "" {
		details := map[string]interface{}{"tenant_id": pipeline.TenantID}
		if err != nil {
			details["error"] = err.Error()
		}
		e.logger.Error("Engine", "Generation failed", details)
		return ResponseApology
	}

	return reply
}

// formatPassages concatenates passages in retrieval-rank order, separated by
// blank lines.
func formatPassages(passages []knowledge.Passage) string {
	parts := make([]string, 0, len(passages))
	for _, passage := range passages {
		parts = append(parts, passage.Content)
	}
	return strings.Join(parts, "\n\n")
}
