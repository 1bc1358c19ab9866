package voting

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		parsed bool
		value  any
	}{
		{
			name:   "plain JSON object",
			raw:    `{"action": "move", "target": "A"}`,
			parsed: true,
			value:  map[string]any{"action": "move", "target": "A"},
		},
		{
			name:   "markdown wrapped with json tag",
			raw:    "```json\n{\"action\": \"move\"}\n```",
			parsed: true,
			value:  map[string]any{"action": "move"},
		},
		{
			name:   "markdown wrapped without tag",
			raw:    "```\n{\"action\": \"move\"}\n```",
			parsed: true,
			value:  map[string]any{"action": "move"},
		},
		{
			name:   "JSON with surrounding text",
			raw:    "Here is the answer:\n{\"action\": \"move\"}\nDone.",
			parsed: true,
			value:  map[string]any{"action": "move"},
		},
		{
			name:   "nested object with surrounding text",
			raw:    `answer: {"outer": {"inner": 1}} trailing`,
			parsed: true,
			value:  map[string]any{"outer": map[string]any{"inner": 1.0}},
		},
		{
			name:   "braces inside string literals",
			raw:    `result {"note": "use {curly} braces"} end`,
			parsed: true,
			value:  map[string]any{"note": "use {curly} braces"},
		},
		{
			name:   "plain text fallback",
			raw:    "Move disk 1 from peg A to peg C",
			parsed: false,
		},
		{
			name:   "unbalanced braces fall back to raw",
			raw:    "broken { json",
			parsed: false,
		},
		{
			name:   "empty string",
			raw:    "",
			parsed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAction(tt.raw)
			if got.Parsed != tt.parsed {
				t.Fatalf("Parsed = %v, want %v", got.Parsed, tt.parsed)
			}
			if got.Raw != tt.raw {
				t.Errorf("Raw = %q, want original input", got.Raw)
			}
			if tt.parsed && !reflect.DeepEqual(got.Value, tt.value) {
				t.Errorf("Value = %#v, want %#v", got.Value, tt.value)
			}
		})
	}
}

func TestValidatorRedFlags(t *testing.T) {
	v := NewValidator(10, []string{"ERROR", "I don't know"})

	tests := []struct {
		name    string
		raw     string
		flagged bool
	}{
		{"clean JSON", `{"action": "move"}`, false},
		{"indicator present", "ERROR: something went wrong", true},
		{"indicator case-insensitive", "i don't know how to proceed", true},
		{"over word budget", strings.Repeat("word ", 11), true},
		{"exactly at budget", strings.Repeat("word ", 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, verdict := v.Validate(tt.raw)
			if verdict.Flagged != tt.flagged {
				t.Errorf("Flagged = %v (%q), want %v", verdict.Flagged, verdict.Reason, tt.flagged)
			}
			if tt.flagged && verdict.Reason == "" {
				t.Error("flagged verdict should carry a reason")
			}
		})
	}
}

func TestValidatorFlagAndParseAreIndependent(t *testing.T) {
	v := NewValidator(0, []string{"error"})

	// Parses fine AND flags: the gate does not care about parse success.
	action, verdict := v.Validate(`{"status": "error"}`)
	if !action.Parsed {
		t.Error("expected response to parse")
	}
	if !verdict.Flagged {
		t.Error("expected response to flag despite parsing")
	}

	// Flags without parsing.
	action, verdict = v.Validate("error: no structured content here")
	if action.Parsed {
		t.Error("expected raw-text action")
	}
	if !verdict.Flagged {
		t.Error("expected flag")
	}
}

func TestValidatorNoIndicators(t *testing.T) {
	v := NewValidator(0, nil)
	_, verdict := v.Validate("anything goes, at any length " + strings.Repeat("x ", 5000))
	if verdict.Flagged {
		t.Errorf("nothing configured, nothing flagged: %q", verdict.Reason)
	}
}

func TestValidatorIdempotent(t *testing.T) {
	v := NewValidator(5, []string{"nope"})
	inputs := []string{
		`{"move": 2}`,
		"plain text answer",
		"nope, cannot do that",
		strings.Repeat("long ", 20),
	}
	for _, in := range inputs {
		a1, v1 := v.Validate(in)
		a2, v2 := v.Validate(in)
		if a1.Key() != a2.Key() || v1 != v2 {
			t.Errorf("Validate(%q) not idempotent: (%v,%v) vs (%v,%v)", in, a1.Key(), v1, a2.Key(), v2)
		}
	}
}
