package jsonenvelope

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// AcceptanceSchemaJSON is the strict JSON schema an acceptance /
// patch-acceptance step's structured output must satisfy: not just "these
// fields exist", but "status is one of a closed set,
// unmet_blocking_requirements is an array of strings". Parse's FieldKind
// checks can't express that; gojsonschema can. It is kept as a raw string so
// it can also be forwarded as an agent.Request's json_schema provider
// option, not just used locally by ParseStrict.
const AcceptanceSchemaJSON = `{
	"type": "object",
	"required": ["status", "requirements", "unmet_blocking_requirements"],
	"properties": {
		"status": {
			"type": "string",
			"enum": ["pass", "fail", "partial"]
		},
		"requirements": {
			"type": "array",
			"items": {"type": "string"}
		},
		"unmet_blocking_requirements": {
			"type": "array",
			"items": {"type": "string"}
		},
		"summary": {"type": "string"}
	}
}`

// AcceptanceSchema is AcceptanceSchemaJSON pre-loaded for gojsonschema.Validate.
var AcceptanceSchema = gojsonschema.NewStringLoader(AcceptanceSchemaJSON)

// ParseStrict sanitizes raw the same way Parse does, then validates the
// decoded object against schema instead of a required-field map. Used where
// a step's output shape has closed enums or nested structure that FieldKind
// can't express, e.g. the acceptance steps' status/requirements contract.
func ParseStrict(raw string, schema gojsonschema.JSONLoader, stepName string) Result {
	prefix := ""
	if stepName != "" {
		prefix = fmt.Sprintf("[%s] ", stepName)
	}

	if strings.TrimSpace(raw) == "" {
		return Result{Error: prefix + "empty output received"}
	}

	sanitized := Sanitize(raw)

	documentLoader := gojsonschema.NewStringLoader(sanitized)
	validation, err := gojsonschema.Validate(schema, documentLoader)
	if err != nil {
		return Result{Error: fmt.Sprintf("%sinvalid JSON: %v", prefix, err)}
	}

	if !validation.Valid() {
		var problems []string
		for _, issue := range validation.Errors() {
			problems = append(problems, issue.String())
		}
		return Result{Error: fmt.Sprintf("%sschema validation failed: %s", prefix, strings.Join(problems, "; "))}
	}

	data, err := decodeObject(sanitized)
	if err != nil {
		return Result{Error: fmt.Sprintf("%sinvalid JSON: %v", prefix, err)}
	}

	return Result{Success: true, Data: data}
}
