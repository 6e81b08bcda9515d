package rfp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/rfpextract/internal/budget"
	"github.com/hyperifyio/rfpextract/internal/llm"
	"github.com/hyperifyio/rfpextract/internal/schema"
)

// Defaults for the chat request.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = float32(0.3)
	DefaultMaxTokens   = 2000
)

var (
	// ErrModelCall wraps any failure of the chat completion call itself.
	ErrModelCall = errors.New("model call failed")
	// ErrModelResponseParse means the reply was not a JSON object.
	ErrModelResponseParse = errors.New("failed to parse JSON from the model's response")
	// ErrEmptyResponse means the call succeeded but carried no data.
	ErrEmptyResponse = errors.New("model returned no data")
)

// Outcome is the result of one extraction. Exactly one of Fields and Err is
// meaningful: a failed outcome has no fields, a successful one has all of
// the schema's keys.
type Outcome struct {
	Fields schema.Fields
	Err    error
	Usage  openai.Usage
}

// Failed reports whether the extraction produced no usable data.
func (o Outcome) Failed() bool { return o.Err != nil || len(o.Fields) == 0 }

// Extractor turns document text into schema fields with one chat completion
// per call. It is safe for concurrent use once constructed.
type Extractor struct {
	Client       llm.Client
	Schema       schema.Schema
	Model        string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
	// MaxAttempts bounds calls per document; values below 2 disable retry.
	MaxAttempts int
	// RetryBackoff is the first retry delay; it doubles on each attempt.
	RetryBackoff time.Duration
	Verbose      bool

	once    sync.Once
	checker *schema.Checker
}

func (e *Extractor) fields() schema.Schema {
	if len(e.Schema) == 0 {
		return schema.Default
	}
	return e.Schema
}

func (e *Extractor) model() string {
	if strings.TrimSpace(e.Model) == "" {
		return DefaultModel
	}
	return e.Model
}

func (e *Extractor) shapeChecker() *schema.Checker {
	e.once.Do(func() {
		c, err := e.fields().NewChecker()
		if err != nil {
			log.Warn().Err(err).Msg("field schema did not compile; reply shape checks disabled")
			return
		}
		e.checker = c
	})
	return e.checker
}

// Request builds the chat completion request for text.
func (e *Extractor) Request(text string) openai.ChatCompletionRequest {
	system := e.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = DefaultSystemPrompt
	}
	temp := e.Temperature
	if temp == 0 {
		temp = DefaultTemperature
	}
	maxTokens := e.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return openai.ChatCompletionRequest{
		Model: e.model(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(e.fields(), text)},
		},
		Temperature:    temp,
		MaxTokens:      maxTokens,
		N:              1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
}

// Extract sends text to the model and decodes the reply. Failures never
// escape as errors: they are logged and reported through Outcome.Err so a
// batch can move on to the next document.
func (e *Extractor) Extract(ctx context.Context, text string) Outcome {
	if e.Client == nil {
		return Outcome{Err: fmt.Errorf("%w: extractor has no client", ErrModelCall)}
	}
	req := e.Request(text)

	est := budget.Check(req.Model, req.MaxTokens, req.Messages[0].Content, req.Messages[1].Content)
	if !est.Fits {
		log.Warn().Str("model", req.Model).Int("prompt_tokens", est.PromptTokens).Int("context", est.ModelContext).Msg("prompt may exceed the model context window")
	}
	if e.Verbose {
		log.Debug().Str("model", req.Model).Int("system_len", len(req.Messages[0].Content)).Int("user_len", len(req.Messages[1].Content)).Msg("extraction prompt")
	}

	resp, err := e.call(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("model", req.Model).Msg("an error occurred calling the model")
		return Outcome{Err: fmt.Errorf("%w: %w", ErrModelCall, err)}
	}
	if len(resp.Choices) == 0 {
		log.Warn().Str("model", req.Model).Msg("model returned no choices")
		return Outcome{Err: ErrEmptyResponse, Usage: resp.Usage}
	}

	raw := []byte(stripCodeFence(resp.Choices[0].Message.Content))
	if len(raw) == 0 {
		log.Warn().Str("model", req.Model).Msg("model returned blank content")
		return Outcome{Err: ErrEmptyResponse, Usage: resp.Usage}
	}
	if resp.Choices[0].FinishReason == openai.FinishReasonLength {
		log.Warn().Str("model", req.Model).Int("max_tokens", req.MaxTokens).Msg("model reply hit the token limit")
	}
	if err := e.shapeChecker().Check(raw); err != nil {
		log.Debug().Err(err).Msg("reply deviates from the field schema; backfilling")
	}
	decoded, total, err := e.fields().Decode(raw)
	if err != nil {
		log.Error().Err(err).Int("reply_len", len(raw)).Msg("failed to parse JSON from the model's response")
		return Outcome{Err: fmt.Errorf("%w: %w", ErrModelResponseParse, err), Usage: resp.Usage}
	}
	if total == 0 {
		log.Warn().Str("model", req.Model).Msg("model returned an empty JSON object")
		return Outcome{Err: ErrEmptyResponse, Usage: resp.Usage}
	}
	return Outcome{Fields: e.fields().Backfill(decoded), Usage: resp.Usage}
}

func (e *Extractor) call(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	attempts := e.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := e.RetryBackoff
	if delay <= 0 {
		delay = time.Second
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		resp, err := e.Client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if i == attempts || !retryable(err) {
			break
		}
		log.Warn().Err(err).Int("attempt", i).Dur("backoff", delay).Msg("model call failed; retrying")
		select {
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, errors.Join(lastErr, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return openai.ChatCompletionResponse{}, lastErr
}

// retryable reports transient failures: rate limits, server errors and
// transport errors. Client errors such as bad credentials are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}
