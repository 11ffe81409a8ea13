package jsonenvelope

import "testing"

func TestSanitizePlainJSON(t *testing.T) {
	in := `{"type": "feature", "level": "simple"}`
	if got := Sanitize(in); got != in {
		t.Fatalf("got %q, want unchanged", got)
	}
}

func TestSanitizeStripsMarkdownJSONFence(t *testing.T) {
	in := "```json\n{\"type\": \"feature\", \"level\": \"simple\"}\n```"
	want := `{"type": "feature", "level": "simple"}`
	if got := Sanitize(in); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSanitizeStripsPlainFence(t *testing.T) {
	in := "```\n{\"type\": \"feature\"}\n```"
	want := `{"type": "feature"}`
	if got := Sanitize(in); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSanitizeTrimsSurroundingProse(t *testing.T) {
	in := "Based on my analysis, here is the result:\n" +
		`{"status": "completed", "summary": "Done"}` + "\n" +
		"Let me know if you need anything else."
	want := `{"status": "completed", "summary": "Done"}`
	if got := Sanitize(in); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSanitizeHandlesEmptyString(t *testing.T) {
	if got := Sanitize(""); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
	if got := Sanitize("   \n\n  "); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestSanitizeNoJSONObjectReturnsInput(t *testing.T) {
	in := "Just some plain text"
	if got := Sanitize(in); got != in {
		t.Fatalf("got %q, want unchanged", got)
	}
}

func TestSanitizeEscapedSequences(t *testing.T) {
	in := `prose text\n\n{\"key\":\"value\"}`
	want := `{"key":"value"}`
	if got := Sanitize(in); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseValidJSON(t *testing.T) {
	result := Parse(`{"type": "feature", "level": "simple"}`, map[string]FieldKind{
		"type": KindString, "level": KindString,
	}, "")
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Data["type"] != "feature" {
		t.Fatalf("unexpected data: %v", result.Data)
	}
}

func TestParseJSONWithMarkdownFences(t *testing.T) {
	result := Parse("```json\n{\"type\": \"bug\", \"level\": \"complex\"}\n```", map[string]FieldKind{
		"type": KindString, "level": KindString,
	}, "")
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
}

func TestParseMissingRequiredField(t *testing.T) {
	result := Parse(`{"type": "feature"}`, map[string]FieldKind{
		"type": KindString, "level": KindString,
	}, "")
	if result.Success {
		t.Fatalf("expected failure")
	}
	if want := `missing required field: "level"`; result.Error != want {
		t.Fatalf("got error %q, want %q", result.Error, want)
	}
}

func TestParseWrongFieldType(t *testing.T) {
	result := Parse(`{"items": "not-a-list", "count": 5}`, map[string]FieldKind{
		"items": KindList, "count": KindNumber,
	}, "")
	if result.Success {
		t.Fatalf("expected failure")
	}
}

func TestParseMalformedJSON(t *testing.T) {
	result := Parse(`{"type": "feature", level: simple}`, map[string]FieldKind{"type": KindString}, "")
	if result.Success {
		t.Fatalf("expected failure")
	}
}

func TestParseEmptyOutput(t *testing.T) {
	result := Parse("", map[string]FieldKind{"type": KindString}, "")
	if result.Success {
		t.Fatalf("expected failure")
	}
	if want := "empty output received"; result.Error != want {
		t.Fatalf("got error %q, want %q", result.Error, want)
	}
}

func TestParseJSONArrayInsteadOfObject(t *testing.T) {
	result := Parse(`["item1", "item2"]`, map[string]FieldKind{"items": KindList}, "")
	if result.Success {
		t.Fatalf("expected failure")
	}
}

func TestParseIncludesStepNameInError(t *testing.T) {
	result := Parse(`{"wrong": "data"}`, map[string]FieldKind{"type": KindString}, "classify")
	if result.Success {
		t.Fatalf("expected failure")
	}
	if want := `[classify] missing required field: "type"`; result.Error != want {
		t.Fatalf("got error %q, want %q", result.Error, want)
	}
}

func TestParseExtraFieldsAllowed(t *testing.T) {
	result := Parse(`{"type": "feature", "level": "simple", "extra": "ignored"}`, map[string]FieldKind{
		"type": KindString, "level": KindString,
	}, "")
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Data["extra"] != "ignored" {
		t.Fatalf("expected extra field preserved")
	}
}

func TestParseEmptyRequiredFields(t *testing.T) {
	result := Parse(`{"anything": "goes"}`, map[string]FieldKind{}, "")
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
}
