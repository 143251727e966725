package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"newsflow/backend/pkg/logger"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Trigger marks a message as a question for the assistant
	Trigger = "@ai"
	// AuthorName is the author of stored assistant replies
	AuthorName = "AI Assistant"
	// TimePosted is the display time of stored assistant replies
	TimePosted = "now"

	// SystemPrompt frames every completion request
	SystemPrompt = "You are a helpful assistant for news teams. Provide concise, helpful responses."
	// PlaceholderReply is stored when no API key is configured
	PlaceholderReply = "AI assistant is currently being set up. Your message has been noted!"
	// FallbackReply prefixes the error description when the upstream call fails
	FallbackReply = "Sorry, I couldn't process that request right now."
)

// Outcome labels for the reply counter
const (
	OutcomeCompleted   = "completed"
	OutcomePlaceholder = "placeholder"
	OutcomeFallback    = "fallback"
)

var errEmptyCompletion = errors.New("the assistant returned an empty answer")

// ChatCompleter is the part of the OpenAI client the responder needs
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config tunes the completion request
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	BaseURL     string
}

// DefaultConfig returns the stock completion settings
func DefaultConfig() Config {
	return Config{
		Model:       openai.GPT3Dot5Turbo,
		MaxTokens:   500,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
	}
}

// Responder turns "@ai" messages into assistant replies. It never fails:
// missing credentials and upstream errors both produce a stored reply text.
type Responder struct {
	client  ChatCompleter
	cfg     Config
	log     *logger.Logger
	tracer  trace.Tracer
	replies metric.Int64Counter
}

// NewResponder builds a responder backed by the OpenAI API. An empty apiKey
// yields a responder that always answers with the placeholder.
func NewResponder(apiKey string, cfg Config, log *logger.Logger) *Responder {
	var client ChatCompleter
	if apiKey != "" {
		clientCfg := openai.DefaultConfig(apiKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		client = openai.NewClientWithConfig(clientCfg)
	}
	return NewResponderWithClient(client, cfg, log)
}

// NewResponderWithClient builds a responder around an existing completer
func NewResponderWithClient(client ChatCompleter, cfg Config, log *logger.Logger) *Responder {
	defaults := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	replies, err := otel.Meter("newsflow/ai").Int64Counter(
		"newsflow_ai_replies_total",
		metric.WithDescription("Assistant replies by outcome"),
	)
	if err != nil {
		log.LogError(err, "failed to create ai reply counter")
	}

	return &Responder{
		client:  client,
		cfg:     cfg,
		log:     log.WithComponent("ai"),
		tracer:  otel.Tracer("newsflow/ai"),
		replies: replies,
	}
}

// HasTrigger reports whether content asks for an assistant reply
func HasTrigger(content string) bool {
	return strings.Contains(content, Trigger)
}

// Prompt strips the trigger from content and trims the rest
func Prompt(content string) string {
	return strings.TrimSpace(strings.ReplaceAll(content, Trigger, ""))
}

// Configured reports whether replies come from the API rather than the placeholder
func (r *Responder) Configured() bool {
	return r.client != nil
}

// Reply returns the assistant's answer to content
func (r *Responder) Reply(ctx context.Context, content string) string {
	ctx, span := r.tracer.Start(ctx, "ai.Reply")
	defer span.End()

	if r.client == nil {
		r.record(ctx, OutcomePlaceholder)
		span.SetAttributes(attribute.String("ai.outcome", OutcomePlaceholder))
		return PlaceholderReply
	}

	prompt := Prompt(content)
	if prompt == "" {
		prompt = content
	}
	span.SetAttributes(
		attribute.String("ai.model", r.cfg.Model),
		attribute.Int("ai.prompt_length", len(prompt)),
	)

	answer, err := r.complete(ctx, prompt)
	if err != nil {
		r.log.LogError(err, "assistant request failed", "model", r.cfg.Model)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("ai.outcome", OutcomeFallback))
		r.record(ctx, OutcomeFallback)
		return FallbackReply + " " + err.Error()
	}

	span.SetAttributes(attribute.String("ai.outcome", OutcomeCompleted))
	r.record(ctx, OutcomeCompleted)
	return answer
}

func (r *Responder) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.cfg.Model,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errEmptyCompletion
	}
	return answer, nil
}

func (r *Responder) record(ctx context.Context, outcome string) {
	if r.replies == nil {
		return
	}
	r.replies.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
