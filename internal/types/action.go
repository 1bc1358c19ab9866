// Package types holds shared data structures used across packages.
package types

import (
	"encoding/json"
	"strings"
)

// Action is the structured result of one resolved step. Value holds the
// decoded JSON when the response parsed; otherwise the action is just its
// raw text. Actions are immutable once produced.
type Action struct {
	Raw    string `json:"raw"`
	Value  any    `json:"value,omitempty"`
	Parsed bool   `json:"parsed"`
}

// RawAction wraps text that did not parse as structured data.
func RawAction(text string) Action {
	return Action{Raw: text}
}

// ParsedAction wraps a decoded value together with the text it came from.
func ParsedAction(raw string, value any) Action {
	return Action{Raw: raw, Value: value, Parsed: true}
}

// Key returns a canonical comparable form of the action, used to count
// equivalent answers within a voting round. json.Marshal writes object keys
// in sorted order, so equivalent parses yield equal keys. The prefix keeps
// raw text from colliding with JSON that happens to look the same.
func (a Action) Key() string {
	if !a.Parsed {
		return "raw:" + a.Raw
	}
	data, err := json.Marshal(a.Value)
	if err != nil {
		return "raw:" + a.Raw
	}
	return "json:" + string(data)
}

// String renders parsed actions as canonical JSON and falls back to the raw
// text otherwise.
func (a Action) String() string {
	if a.Parsed {
		if data, err := json.Marshal(a.Value); err == nil {
			return string(data)
		}
	}
	return a.Raw
}

// Preview returns the action collapsed onto one line and truncated to at
// most n runes, for progress output.
func (a Action) Preview(n int) string {
	s := strings.Join(strings.Fields(a.String()), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
