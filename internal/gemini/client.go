// Package gemini implements the optional chat summary on top of Google's
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/tgstats/internal/config"
	"github.com/edgard/tgstats/internal/stats"
)

// ErrNoAPIKey is returned by NewClient without an API key.
var ErrNoAPIKey = errors.New("gemini API key is required")

// Client summarizes chat history.
type Client interface {
	Summarize(ctx context.Context, lines []stats.Line) (string, error)
}

// contentGenerator is the part of genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type sdkClient struct {
	models        contentGenerator
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	maxRetries    int
	retryDelay    time.Duration
	plain         *plainText
}

// linePrefix matches the transcript prefix the model sometimes echoes back.
var linePrefix = regexp.MustCompile(`(?m)^(?:\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}\] [^:\n]{1,64}: )+`)

func formatLine(l stats.Line) string {
	return fmt.Sprintf("[%s] %s: %s", l.Time.Format("2006-01-02 15:04"), l.Name, l.Text)
}

// NewClient creates a Gemini client from configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c := newClient(gi.Models, cfg, log)
	c.log.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return c, nil
}

func newClient(models contentGenerator, cfg config.GeminiConfig, log *slog.Logger) *sdkClient {
	temperature := cfg.Temperature
	baseCfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}

	instruction := cfg.SystemInstruction
	if instruction == "" {
		instruction = config.DefaultSummaryInstruction
	}
	baseCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: instruction + SummaryInstructionFooter}}}

	return &sdkClient{
		models:        models,
		log:           log.With("component", "gemini_client"),
		contentConfig: baseCfg,
		modelName:     cfg.ModelName,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    time.Duration(cfg.RetryDelaySeconds) * time.Second,
		plain:         newPlainText(),
	}
}

// Summarize sends the transcript as one user turn and returns the cleaned
// reply.
func (c *sdkClient) Summarize(ctx context.Context, lines []stats.Line) (string, error) {
	if len(lines) == 0 {
		return "", errors.New("no messages to summarize")
	}
	c.log.DebugContext(ctx, "Generating summary", "message_count", len(lines))

	var transcript strings.Builder
	for _, l := range lines {
		transcript.WriteString(formatLine(l))
		transcript.WriteByte('\n')
	}
	contents := []*genai.Content{genai.NewContentFromText(transcript.String(), genai.RoleUser)}

	resp, err := c.generateContentWithRetries(ctx, contents)
	if err != nil {
		return "", err
	}
	return c.extractText(ctx, resp)
}

func retriable(err error) (int, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}
	switch apiErr.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return apiErr.Code, true
	}
	return apiErr.Code, false
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.models.GenerateContent(ctx, c.modelName, contents, c.contentConfig)
		if err == nil {
			return resp, nil
		}

		code, ok := retriable(err)
		if !ok {
			c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
			return nil, fmt.Errorf("gemini API call failed: %w", err)
		}
		if attempt >= c.maxRetries {
			c.log.ErrorContext(ctx, "Gemini API call failed after max retries", "error", err, "code", code)
			return nil, fmt.Errorf("gemini API call failed after %d retries (code %d): %w", c.maxRetries, code, err)
		}

		c.log.InfoContext(ctx, "Retrying Gemini API call", "attempt", attempt+1, "delay", c.retryDelay, "code", code)
		t := time.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (c *sdkClient) extractText(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reason)
		return "", fmt.Errorf("summary blocked by safety filter: %s", reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", fmt.Errorf("summary returned no content, finish reason: %s", finishReason)
	}

	text := c.plain.Strip(linePrefix.ReplaceAllString(resp.Text(), ""))
	if text == "" {
		c.log.WarnContext(ctx, "Gemini response text is empty after stripping prefixes")
		return "", errors.New("summary returned empty text")
	}
	return text, nil
}
