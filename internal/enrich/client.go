// Package enrich turns raw transcripts into validated structured case
// records via the summarization model, deduplicating calls through the
// citation-keyed cache gate.
package enrich

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/LinfanS/court-transcripts-pipeline/internal/config"
	"github.com/LinfanS/court-transcripts-pipeline/internal/model"
)

// Summarizer produces a structured enrichment record from a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (*model.Enrichment, error)
}

// OpenAIClient implements Summarizer against the OpenAI chat completions
// API. One client is shared per run; calls are rate limited.
type OpenAIClient struct {
	client  *openai.Client
	cfg     config.OpenAIConfig
	limiter *rate.Limiter
}

// NewOpenAIClient creates a summarization client.
func NewOpenAIClient(cfg config.OpenAIConfig) (*OpenAIClient, error) {
	if cfg.Key == "" {
		return nil, eris.New("enrich: openai key is required")
	}
	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 60
	}
	return &OpenAIClient{
		client:  openai.NewClient(cfg.Key),
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}, nil
}

// Summarize shortens the transcript, asks the model for the structured JSON
// record and decodes it. A decode failure is an invalid record, reported as
// an error for the caller to drop and log.
func (c *OpenAIClient) Summarize(ctx context.Context, transcript string) (*model.Enrichment, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "enrich: rate limit wait")
	}

	timeout := time.Duration(c.cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	shortened := ShortenTranscript(transcript, c.cfg.KeepHeadRunes, c.cfg.KeepTailRunes)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt + shortened},
		},
		Temperature: c.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("enrich: empty completion response")
	}

	var e model.Enrichment
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &e); err != nil {
		return nil, eris.Wrap(err, "enrich: decode completion")
	}
	return &e, nil
}

// ShortenTranscript keeps the head and tail of a long transcript and elides
// the middle, since the opening and closing of a judgment carry the parties,
// the judges and the disposition. Limits are in runes; zero limits fall back
// to defaults.
func ShortenTranscript(text string, keepHead, keepTail int) string {
	if keepHead <= 0 {
		keepHead = 16000
	}
	if keepTail <= 0 {
		keepTail = 16000
	}
	runes := []rune(text)
	if len(runes) <= keepHead+keepTail {
		return text
	}
	return string(runes[:keepHead]) + "[...]" + string(runes[len(runes)-keepTail:])
}
