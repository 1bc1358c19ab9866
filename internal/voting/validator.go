package voting

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bigdegenenergy/maker-framework/internal/types"
)

// Verdict is the red-flag classification of a single sampled response.
type Verdict struct {
	Flagged bool
	Reason  string
}

// Validator turns raw oracle text into an Action and a red-flag verdict for
// one step type. It is a pure function of its input and configuration:
// validating the same text twice yields identical results.
type Validator struct {
	maxWords   int
	indicators []string // lowercased
}

// NewValidator builds a validator with the given word budget (0 disables the
// length check) and disqualifying indicator substrings (matched
// case-insensitively).
func NewValidator(maxWords int, indicators []string) *Validator {
	lowered := make([]string, 0, len(indicators))
	for _, ind := range indicators {
		if ind == "" {
			continue
		}
		lowered = append(lowered, strings.ToLower(ind))
	}
	return &Validator{maxWords: maxWords, indicators: lowered}
}

// Validate parses raw text into an Action and evaluates the red-flag gate.
// The two are independent: a response can parse and still be flagged, and a
// flagged response may carry a perfectly parseable action. Flagged responses
// must never be tallied, whatever their parse outcome.
func (v *Validator) Validate(raw string) (types.Action, Verdict) {
	return ParseAction(raw), v.check(raw)
}

func (v *Validator) check(raw string) Verdict {
	if v.maxWords > 0 {
		// Word count stands in for token count; close enough for a gate.
		if n := len(strings.Fields(raw)); n > v.maxWords {
			return Verdict{Flagged: true, Reason: fmt.Sprintf("response length %d words exceeds budget %d", n, v.maxWords)}
		}
	}
	lower := strings.ToLower(raw)
	for _, ind := range v.indicators {
		if strings.Contains(lower, ind) {
			return Verdict{Flagged: true, Reason: fmt.Sprintf("response contains indicator %q", ind)}
		}
	}
	return Verdict{}
}

// fencedRe captures the content of the first markdown code fence, with or
// without a json language tag.
var fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?\\s*```")

// ParseAction extracts a structured action from raw oracle text. Attempts,
// in order: content of a fenced code block, the whole trimmed text, the
// first balanced {...} substring found anywhere. If none decode as JSON the
// raw text itself becomes the action. Parse failure is not an error, just a
// candidate that will struggle to accumulate votes.
func ParseAction(raw string) types.Action {
	text := strings.TrimSpace(raw)
	if text == "" {
		return types.RawAction(raw)
	}

	if m := fencedRe.FindStringSubmatch(text); m != nil {
		if value, ok := decode(strings.TrimSpace(m[1])); ok {
			return types.ParsedAction(raw, value)
		}
	}

	if value, ok := decode(text); ok {
		return types.ParsedAction(raw, value)
	}

	if obj, found := firstBalancedObject(text); found {
		if value, ok := decode(obj); ok {
			return types.ParsedAction(raw, value)
		}
	}

	return types.RawAction(raw)
}

func decode(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	var value any
	if err := json.Unmarshal([]byte(s), &value); err != nil {
		return nil, false
	}
	return value, true
}

// firstBalancedObject returns the first brace-balanced substring of text.
// Braces inside JSON string literals are accounted for so that embedded
// format examples do not truncate the match.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
