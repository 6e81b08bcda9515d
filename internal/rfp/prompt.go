package rfp

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/rfpextract/internal/schema"
)

// DefaultSystemPrompt is the system message sent with every request.
const DefaultSystemPrompt = "You are a helpful assistant."

const promptIntro = "You are a highly skilled assistant specializing in extracting and organizing data from Request for Proposal (RFP) documents."

// BuildPrompt embeds the document text in the fixed extraction template. The
// field list and the JSON skeleton are both rendered from s, so the template
// cannot drift from the decoded field set. The output is deterministic for a
// given schema and text.
func BuildPrompt(s schema.Schema, text string) string {
	var b strings.Builder
	b.WriteString(promptIntro)
	b.WriteString("\n\nPlease extract the following details from the provided text and return them in JSON format:\n")
	for _, f := range s {
		b.WriteString("- ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Description)
		b.WriteString("\n")
	}
	b.WriteString("\nText: ")
	b.WriteString(NormalizeText(text))
	b.WriteString("\n\nUse the following format for your JSON output:\n")
	b.WriteString(s.Skeleton())
	b.WriteString("\n\nEnsure the response is strictly in JSON format without any extra text or commentary.\n")
	return b.String()
}

// NormalizeText converts line endings to LF and composes Unicode to NFC, so
// visually identical documents produce identical prompts.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(text)
}

// stripCodeFence removes a surrounding ```json fence that some
// OpenAI-compatible servers add even in JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
