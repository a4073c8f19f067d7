package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/threads-agent/internal/config"
	"github.com/threads-agent/pkg/logger"
	"github.com/threads-agent/pkg/ratelimit"
)

const systemPrompt = "You are an expert Japanese social media planner who outputs strict JSON only. " +
	"Never use markdown code blocks or explanations. Respect all constraints from the user prompt. " +
	"IMPORTANT: Use \\n\\n for line breaks in text content to improve readability. " +
	"CRITICAL: Never use emojis in any generated content."

const parseSnippetLength = 200

// ParseError is returned when a response stays unparseable after the
// repair pass. Snippet carries the head of the sanitized text for
// diagnostics.
type ParseError struct {
	Err     error
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse generation response after repair: %v. snippet=%s", e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Client sends composed prompts to Claude and validates the JSON plans it
// returns
type Client struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	validator   *Validator
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

func NewClient(cfg config.AnthropicConfig, validator *Validator, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	return &Client{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		validator:   validator,
		rateLimiter: limiter,
		log:         log.WithComponent("generation"),
	}
}

// GeneratePlans sends the batch prompt and returns the validated plans.
// The request runs under the configured timeout and is not retried.
func (c *Client) GeneratePlans(ctx context.Context, prompt string) ([]GeneratedPost, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterAnthropic); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.log.Debug().
		Str("model", c.model).
		Int("max_tokens", c.maxTokens).
		Msg("Sending generation request to Claude")

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.maxTokens),
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemPrompt,
			},
		},
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(prompt),
				},
			},
		},
	})

	if err != nil {
		c.log.Error().Err(err).Msg("Claude API error")
		return nil, fmt.Errorf("claude API error: %w", err)
	}

	var response string
	for _, block := range message.Content {
		textBlock := block.AsText()
		if textBlock.Text != "" {
			response += textBlock.Text
		}
	}

	c.log.Debug().
		Int("input_tokens", int(message.Usage.InputTokens)).
		Int("output_tokens", int(message.Usage.OutputTokens)).
		Msg("Received Claude response")

	return c.parseAndValidate(response)
}

// parseAndValidate parses strict JSON first and falls back to exactly one
// repaired retry before giving up.
func (c *Client) parseAndValidate(text string) ([]GeneratedPost, error) {
	clean := stripCodeFences(text)

	var envelope responseEnvelope
	if err := json.Unmarshal([]byte(clean), &envelope); err != nil {
		repaired := Repair(clean)
		if retryErr := json.Unmarshal([]byte(repaired), &envelope); retryErr != nil {
			c.log.Error().Err(retryErr).Msg("Generation response unparseable after repair")
			return nil, &ParseError{Err: retryErr, Snippet: snippet(repaired)}
		}
	}

	posts, err := c.validator.ValidateBatch(envelope)
	if err != nil {
		return nil, fmt.Errorf("invalid generation batch: %w", err)
	}
	return posts, nil
}

// snippet truncates and whitespace-collapses text for error messages
func snippet(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) > parseSnippetLength {
		return string(runes[:parseSnippetLength])
	}
	return collapsed
}
