// Package jsonenvelope extracts and validates the JSON object an agent CLI
// is expected to print as its final line of output. Agent output is rarely
// pure JSON: models wrap it in markdown fences, prefix it with a summary
// sentence, or occasionally backslash-escape the whole thing when relaying
// it through an intermediate shell. Sanitize recovers the JSON object from
// that noise before Parse validates it against a required-field schema.
package jsonenvelope

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result is the outcome of Parse: either Data is populated and Error is
// empty, or Data is nil and Error explains why.
type Result struct {
	Success bool
	Data    map[string]interface{}
	Error   string
}

// FieldKind names the Go-level kind a required field must hold, since the
// required-field schema is expressed without reflection on concrete types.
type FieldKind int

const (
	KindString FieldKind = iota
	KindBool
	KindNumber
	KindList
	KindObject
)

func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Sanitize strips markdown code fences and surrounding prose from raw agent
// output, returning the best candidate JSON substring it can find. A brace
// span that is not valid JSON is retried after unescaping backslash escapes.
// It never fails: if no JSON object can be located, the trimmed input is
// returned (unescaped, when it carried backslash escapes).
func Sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if fenced, ok := stripFence(trimmed); ok {
		trimmed = fenced
	}

	candidate, found := extractBraces(trimmed)
	if found && json.Valid([]byte(candidate)) {
		return candidate
	}

	if unescaped, ok := unescapeJSON(trimmed); ok {
		if c, ok := extractBraces(unescaped); ok {
			return c
		}
		return unescaped
	}

	if found {
		return candidate
	}
	return trimmed
}

// stripFence removes a leading/trailing ``` or ```json code fence, if the
// trimmed input is fully wrapped in one.
func stripFence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") {
		return s, false
	}
	end := strings.LastIndex(s, "```")
	if end <= 2 {
		return s, false
	}
	body := s[3:end]
	if nl := strings.IndexByte(body, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(body[:nl])
		if firstLine == "" || isLanguageTag(firstLine) {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body), true
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return s != ""
}

// extractBraces trims any prose before the first '{' and after the matching
// final '}', returning false if no balanced brace pair is present.
func extractBraces(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s, false
	}
	return s[start : end+1], true
}

// unescapeJSON reverses backslash-escaping applied when agent output was
// relayed through a shell or another JSON layer (\" -> ", \n -> newline).
func unescapeJSON(s string) (string, bool) {
	if !strings.Contains(s, `\"`) && !strings.Contains(s, `\n`) {
		return s, false
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '"':
				b.WriteByte('"')
				i++
				continue
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case 't':
				b.WriteByte('\t')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String(), true
}

// Parse sanitizes raw, decodes it as a JSON object, and validates it against
// required, a map of field name to expected FieldKind. stepName, if
// non-empty, is prefixed onto error messages as "[stepName] ...".
func Parse(raw string, required map[string]FieldKind, stepName string) Result {
	prefix := ""
	if stepName != "" {
		prefix = fmt.Sprintf("[%s] ", stepName)
	}

	if strings.TrimSpace(raw) == "" {
		return Result{Error: prefix + "empty output received"}
	}

	sanitized := Sanitize(raw)

	obj, err := decodeObject(sanitized)
	if err != nil {
		return Result{Error: fmt.Sprintf("%sinvalid JSON: %v", prefix, err)}
	}

	for field, kind := range required {
		value, present := obj[field]
		if !present {
			return Result{Error: fmt.Sprintf("%smissing required field: %q", prefix, field)}
		}
		if !matchesKind(value, kind) {
			return Result{Error: fmt.Sprintf("%sfield %q has wrong type: expected %s, got %s", prefix, field, kind, jsonKindOf(value))}
		}
	}

	return Result{Success: true, Data: obj}
}

// decodeObject unmarshals sanitized JSON text into a map, rejecting
// non-object top-level values. Shared by Parse and ParseStrict.
func decodeObject(sanitized string) (map[string]interface{}, error) {
	var decoded interface{}
	if err := json.Unmarshal([]byte(sanitized), &decoded); err != nil {
		return nil, err
	}
	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %s", jsonKindOf(decoded))
	}
	return obj, nil
}

func matchesKind(v interface{}, kind FieldKind) bool {
	switch kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindNumber:
		_, ok := v.(float64)
		return ok
	case KindList:
		_, ok := v.([]interface{})
		return ok
	case KindObject:
		_, ok := v.(map[string]interface{})
		return ok
	default:
		return false
	}
}

func jsonKindOf(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case float64:
		return "number"
	case []interface{}:
		return "list"
	case map[string]interface{}:
		return "object"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}
