package rfp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/rfpextract/internal/llm"
	"github.com/hyperifyio/rfpextract/internal/schema"
)

// scriptedClient replies with contents[i] for the i-th call, or errs[i] when set.
type scriptedClient struct {
	mu       sync.Mutex
	contents []string
	errs     []error
	calls    int
	lastReq  openai.ChatCompletionRequest
}

func (c *scriptedClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	c.lastReq = req
	if i < len(c.errs) && c.errs[i] != nil {
		return openai.ChatCompletionResponse{}, c.errs[i]
	}
	content := ""
	if i < len(c.contents) {
		content = c.contents[i]
	} else if len(c.contents) > 0 {
		content = c.contents[len(c.contents)-1]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			FinishReason: openai.FinishReasonStop,
		}},
	}, nil
}

func TestBuildPrompt_ListsFieldsAndEmbedsText(t *testing.T) {
	p := BuildPrompt(schema.Default, "Bid Number: 4411\r\nDue: March 3")
	if !strings.HasPrefix(p, promptIntro) {
		t.Fatalf("prompt should open with the role statement; got %q", p[:80])
	}
	for _, f := range schema.Default {
		if !strings.Contains(p, "- "+f.Name+": "+f.Description) {
			t.Fatalf("missing field line for %q", f.Name)
		}
	}
	if !strings.Contains(p, "Text: Bid Number: 4411\nDue: March 3") {
		t.Fatalf("expected normalized text in prompt")
	}
	if !strings.Contains(p, schema.Default.Skeleton()) {
		t.Fatalf("expected skeleton in prompt")
	}
	if !strings.Contains(p, "strictly in JSON format") {
		t.Fatalf("expected closing instruction")
	}
	if BuildPrompt(schema.Default, "x") != BuildPrompt(schema.Default, "x") {
		t.Fatalf("prompt must be deterministic")
	}
}

func TestNormalizeText_ComposesNFC(t *testing.T) {
	decomposed := "Cafe\u0301"
	if got := NormalizeText(decomposed); got != "Caf\u00e9" {
		t.Fatalf("got %q", got)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		`{"a":"b"}`:                  `{"a":"b"}`,
		"```json\n{\"a\":\"b\"}\n```": `{"a":"b"}`,
		"```\n{}\n```":               `{}`,
		"  {\"x\":1}  ":              `{"x":1}`,
	}
	for in, want := range cases {
		if got := stripCodeFence(in); got != want {
			t.Fatalf("stripCodeFence(%q)=%q want %q", in, got, want)
		}
	}
}

func TestExtractor_RequestDefaults(t *testing.T) {
	c := &scriptedClient{contents: []string{`{"Bid Number":"4411"}`}}
	e := &Extractor{Client: c}
	out := e.Extract(context.Background(), "Bid Number: 4411")
	if out.Failed() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	req := c.lastReq
	if req.Model != DefaultModel || req.Temperature != DefaultTemperature || req.MaxTokens != DefaultMaxTokens {
		t.Fatalf("unexpected request params: model=%q temp=%v max=%d", req.Model, req.Temperature, req.MaxTokens)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem || req.Messages[0].Content != DefaultSystemPrompt {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("expected JSON object response format")
	}
}

func TestExtractor_BackfillsMissingFields(t *testing.T) {
	c := &scriptedClient{contents: []string{"```json\n{\"Bid Number\":\"4411\",\"Notes\":\"extra\",\"Budget\":125000}\n```"}}
	e := &Extractor{Client: c}
	out := e.Extract(context.Background(), "text")
	if out.Failed() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if len(out.Fields) != len(schema.Default) {
		t.Fatalf("expected %d fields, got %d", len(schema.Default), len(out.Fields))
	}
	if out.Fields["Bid Number"] != "4411" {
		t.Fatalf("Bid Number=%q", out.Fields["Bid Number"])
	}
	if _, ok := out.Fields["Notes"]; ok {
		t.Fatalf("unknown key should be dropped")
	}
	if out.Fields["Title"] != "" {
		t.Fatalf("missing field should be empty, got %q", out.Fields["Title"])
	}
}

func TestExtractor_ParseFailure(t *testing.T) {
	for _, content := range []string{"not json at all", `["a","b"]`, `{"Title":"x"} and some commentary`} {
		e := &Extractor{Client: &scriptedClient{contents: []string{content}}}
		out := e.Extract(context.Background(), "text")
		if !out.Failed() || !errors.Is(out.Err, ErrModelResponseParse) {
			t.Fatalf("content %q: expected ErrModelResponseParse, got %v", content, out.Err)
		}
		if out.Fields != nil {
			t.Fatalf("failed outcome must not carry fields")
		}
	}
}

func TestExtractor_EmptyReplies(t *testing.T) {
	for _, content := range []string{"{}", "", "   "} {
		e := &Extractor{Client: &scriptedClient{contents: []string{content}}}
		out := e.Extract(context.Background(), "text")
		if !out.Failed() || !errors.Is(out.Err, ErrEmptyResponse) {
			t.Fatalf("content %q: expected ErrEmptyResponse, got %v", content, out.Err)
		}
	}
}

func TestExtractor_CallFailureNoRetryByDefault(t *testing.T) {
	c := &scriptedClient{errs: []error{&openai.APIError{HTTPStatusCode: 500, Message: "boom"}}}
	e := &Extractor{Client: c}
	out := e.Extract(context.Background(), "text")
	if !errors.Is(out.Err, ErrModelCall) {
		t.Fatalf("expected ErrModelCall, got %v", out.Err)
	}
	if c.calls != 1 {
		t.Fatalf("expected a single call, got %d", c.calls)
	}
}

func TestExtractor_RetriesTransientErrors(t *testing.T) {
	c := &scriptedClient{
		errs:     []error{&openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, nil},
		contents: []string{"", `{"Title":"Snow Removal"}`},
	}
	e := &Extractor{Client: c, MaxAttempts: 3, RetryBackoff: time.Millisecond}
	out := e.Extract(context.Background(), "text")
	if out.Failed() {
		t.Fatalf("expected success after retry, got %v", out.Err)
	}
	if c.calls != 2 || out.Fields["Title"] != "Snow Removal" {
		t.Fatalf("calls=%d fields=%v", c.calls, out.Fields)
	}
}

func TestExtractor_DoesNotRetryClientErrors(t *testing.T) {
	c := &scriptedClient{errs: []error{&openai.APIError{HTTPStatusCode: 401, Message: "bad key"}}}
	e := &Extractor{Client: c, MaxAttempts: 3, RetryBackoff: time.Millisecond}
	out := e.Extract(context.Background(), "text")
	if !errors.Is(out.Err, ErrModelCall) || c.calls != 1 {
		t.Fatalf("err=%v calls=%d", out.Err, c.calls)
	}
}

func TestExtractor_NoClient(t *testing.T) {
	out := (&Extractor{}).Extract(context.Background(), "text")
	if !errors.Is(out.Err, ErrModelCall) {
		t.Fatalf("expected ErrModelCall, got %v", out.Err)
	}
}

func TestExtractor_AgainstOpenAICompatibleServer(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reply := `{"Title":"Snow Removal Services","Bid Number":"24-117"}`
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  got.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120},
		})
	}))
	defer srv.Close()

	e := &Extractor{Client: llm.NewOpenAI("test", srv.URL+"/v1", srv.Client()), Model: "stub-model"}
	out := e.Extract(context.Background(), "RFP 24-117 Snow Removal Services")
	if out.Failed() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if out.Fields["Bid Number"] != "24-117" || out.Usage.TotalTokens != 120 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if got.Model != "stub-model" || !strings.Contains(got.Messages[1].Content, "Snow Removal Services") {
		t.Fatalf("server saw unexpected request: %+v", got)
	}
}
