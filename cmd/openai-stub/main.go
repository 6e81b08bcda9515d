// Command openai-stub is a local OpenAI-compatible server that answers chat
// completions with RFP field JSON lifted from "Field: value" lines of the
// prompt, for offline runs of rfpextract.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/rfpextract/internal/schema"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	log.Info().Str("addr", addr).Str("model", model).Str("mode", os.Getenv("STUB_MODE")).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, newHandler(model, os.Getenv("STUB_MODE"))); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

// newHandler serves /v1/models and /v1/chat/completions. mode "nonjson"
// answers with prose and mode "error" with HTTP 500, to exercise failure
// paths.
func newHandler(model, mode string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if mode == "error" {
			http.Error(w, `{"error":{"message":"stub failure","type":"server_error"}}`, http.StatusInternalServerError)
			return
		}
		user := ""
		for _, m := range req.Messages {
			if m.Role == "user" {
				user = m.Content
			}
		}
		content := "I could not find any RFP details in that text."
		if mode != "nonjson" {
			b, _ := schema.Default.MarshalFields(fieldsFromPrompt(user))
			content = string(b)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-stub",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		})
	})
	return mux
}

// fieldsFromPrompt reads the document part of the prompt (between "Text:"
// and the output format section) and maps "Field: value" lines onto the
// schema. The first non-empty line doubles as the title.
func fieldsFromPrompt(prompt string) schema.Fields {
	doc := prompt
	if i := strings.Index(doc, "\nText: "); i >= 0 {
		doc = doc[i+len("\nText: "):]
	}
	if i := strings.Index(doc, "\n\nUse the following format"); i >= 0 {
		doc = doc[:i]
	}
	found := schema.Fields{}
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, ok := found["Title"]; !ok {
			found["Title"] = line
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if schema.Default.Has(name) {
			found[name] = strings.TrimSpace(value)
		}
	}
	return schema.Default.Backfill(found)
}
