package agents

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
)

var errNoJSON = errors.New("no JSON object in model response")

// extractJSON pulls the JSON object out of a model response. Models asked
// for bare JSON still wrap it in markdown fences or preamble often enough
// that tolerating both is cheaper than retrying.
func extractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)

	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			text = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", errNoJSON
	}
	return text[start : end+1], nil
}

// decodePayload parses a model response into a typed stage output plus the
// raw key/value payload for best-effort extraction of optional fields.
func decodePayload[T any](raw string) (*T, map[string]any, error) {
	jsonText, err := extractJSON(raw)
	if err != nil {
		return nil, nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return nil, nil, fmt.Errorf("parse model response: %w", err)
	}

	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, nil, fmt.Errorf("decode model response: %w", err)
	}
	return &out, payload, nil
}

// stringList joins a payload field that may arrive as a string or a list.
func stringList(payload map[string]any, key string) string {
	value, ok := payload[key]
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}
