package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Provider is a text-generation backend. GenerateJSON returns the raw
// JSON payload extracted from the model output; callers unmarshal it
// into their own types.
type Provider interface {
	Name() string
	GenerateContent(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error)
}

const jsonSuffix = "\n\n请以JSON格式返回，确保JSON格式正确。"

var fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// extractJSON pulls a JSON object out of model output. Models wrap
// JSON in prose or code fences often enough that three passes are
// needed: direct parse, fenced block, then outermost brace span.
func extractJSON(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	if m := fencedJSONRe.FindStringSubmatch(content); m != nil {
		candidate := strings.TrimSpace(m[1])
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		candidate := content[start : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}

	return nil, fmt.Errorf("no parseable JSON in model output")
}
