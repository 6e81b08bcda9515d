package budget

import (
    "math"
    "strings"
)

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic (~4 chars per token in English). The
// result is always at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
    if charCount <= 0 {
        return 0
    }
    return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
    return EstimateTokensFromChars(len(s))
}

// ModelContextTokens returns an estimated maximum context window for a given
// model name. Unknown models fall back to a conservative default.
func ModelContextTokens(modelName string) int {
    name := strings.ToLower(strings.TrimSpace(modelName))
    if name == "" {
        return 8192
    }
    // Vertex model names may carry a publisher path.
    if i := strings.LastIndex(name, "/"); i >= 0 && !strings.HasPrefix(name, "openai/") {
        name = name[i+1:]
    }
    if v, ok := knownModelMax[name]; ok {
        return v
    }
    for _, p := range knownPrefixes {
        if strings.HasPrefix(name, p.prefix) {
            return p.tokens
        }
    }
    switch {
    case strings.HasSuffix(name, "1m"):
        return 1_000_000
    case strings.HasSuffix(name, "200k"):
        return 200_000
    case strings.HasSuffix(name, "128k"):
        return 128_000
    case strings.Contains(name, "-mini"):
        return 128_000
    }
    return 8192
}

// Estimate is the outcome of a context-window preflight for one request.
type Estimate struct {
    PromptTokens   int
    ReservedOutput int
    ModelContext   int
    Remaining      int
    Fits           bool
}

// Check estimates whether the prompt messages plus the reserved output fit
// the model's context window. It never truncates anything; callers decide
// whether an overflow is worth a warning.
func Check(modelName string, reservedForOutput int, messages ...string) Estimate {
    if reservedForOutput < 0 {
        reservedForOutput = 0
    }
    prompt := 0
    for _, m := range messages {
        prompt += EstimateTokens(m)
    }
    maxCtx := ModelContextTokens(modelName)
    remaining := maxCtx - reservedForOutput - prompt
    est := Estimate{
        PromptTokens:   prompt,
        ReservedOutput: reservedForOutput,
        ModelContext:   maxCtx,
        Remaining:      remaining,
        Fits:           remaining > 0,
    }
    if est.Remaining < 0 {
        est.Remaining = 0
    }
    return est
}

// knownModelMax contains rough context sizes for common model identifiers.
var knownModelMax = map[string]int{
    "gpt-4o":        128_000,
    "gpt-4o-mini":   128_000,
    "gpt-4-turbo":   128_000,
    "gpt-4":         8_192,
    "gpt-3.5-turbo": 16_384,

    "gemini-1.0-pro": 32_760,

    "openai/gpt-oss-20b": 4_096,
    "gpt-oss-20b":        4_096,
}

// knownPrefixes covers dated and versioned variants, longest prefix first.
var knownPrefixes = []struct {
    prefix string
    tokens int
}{
    {"gpt-4o-mini-", 128_000},
    {"gpt-4o-", 128_000},
    {"gpt-4.1", 1_000_000},
    {"gemini-1.5-", 1_000_000},
    {"gemini-2.0-", 1_000_000},
    {"gemini-2.5-", 1_000_000},
}
