package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	openai "github.com/sashabaranov/go-openai"
)

// VertexProvider serves chat completion requests with Gemini models on
// Vertex AI. Requests and responses are translated to and from the go-openai
// types so callers stay provider independent.
type VertexProvider struct {
	client *genai.Client
}

// NewVertex connects to Vertex AI using application default credentials.
func NewVertex(ctx context.Context, projectID, location string) (*VertexProvider, error) {
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(location) == "" {
		return nil, errors.New("vertex: project and location are required")
	}
	c, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &VertexProvider{client: c}, nil
}

// Close releases the underlying client.
func (p *VertexProvider) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *VertexProvider) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if p == nil || p.client == nil {
		return openai.ChatCompletionResponse{}, errors.New("vertex provider not configured")
	}
	model := p.client.GenerativeModel(req.Model)
	system, parts := splitMessages(req.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	model.GenerationConfig = generationConfig(req)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return openai.ChatCompletionResponse{}, fmt.Errorf("vertex generate: %w", err)
	}
	return toChatResponse(req.Model, resp), nil
}

// splitMessages folds system messages into one instruction and returns the
// remaining message contents as text parts, in order.
func splitMessages(msgs []openai.ChatCompletionMessage) (string, []genai.Part) {
	var system []string
	parts := make([]genai.Part, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == openai.ChatMessageRoleSystem {
			system = append(system, m.Content)
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	return strings.Join(system, "\n\n"), parts
}

func generationConfig(req openai.ChatCompletionRequest) genai.GenerationConfig {
	cfg := genai.GenerationConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = genai.Ptr(int32(req.MaxTokens))
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == openai.ChatCompletionResponseFormatTypeJSONObject {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

func toChatResponse(model string, resp *genai.GenerateContentResponse) openai.ChatCompletionResponse {
	out := openai.ChatCompletionResponse{Object: "chat.completion", Model: model}
	if resp == nil {
		return out
	}
	for i, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		var b strings.Builder
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					b.WriteString(string(t))
				}
			}
		}
		finish := openai.FinishReasonStop
		if cand.FinishReason == genai.FinishReasonMaxTokens {
			finish = openai.FinishReasonLength
		}
		out.Choices = append(out.Choices, openai.ChatCompletionChoice{
			Index:        i,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: b.String()},
			FinishReason: finish,
		})
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = openai.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out
}
