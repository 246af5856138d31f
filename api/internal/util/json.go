package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoJSONFound: the text has no {...} or [...] span at all.
	ErrNoJSONFound = errors.New("no JSON found in model output")
	// ErrJSONParse: a candidate span was found but is not valid JSON.
	ErrJSONParse = errors.New("invalid JSON in model output")
)

// greedy: from the first opening bracket to the last matching closer
var jsonSpanRe = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)

// fields whose literal "\n" sequences are turned into real newlines
var prettyFields = []string{"feedback", "answer"}

// ExtractJSON recovers one JSON value from free-form model text. Code fences are
// stripped first; the widest bracketed span is then parsed strictly.
func ExtractJSON(raw string) (any, error) {
	text := StripCodeFences(raw)
	span := jsonSpanRe.FindString(text)
	if span == "" {
		return nil, ErrNoJSONFound
	}
	var v any
	if err := json.Unmarshal([]byte(span), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSONParse, err)
	}
	if obj, ok := v.(map[string]any); ok {
		for _, k := range prettyFields {
			if s, ok := obj[k].(string); ok {
				obj[k] = strings.ReplaceAll(s, `\n`, "\n")
			}
		}
	}
	return v, nil
}

// Interpretation is the outcome of reading a model reply. Either Value holds the
// recovered JSON, or Fallback is set and Raw is all there is.
type Interpretation struct {
	Value    any
	Raw      string
	Fallback bool
	Cause    error
}

// Object returns the value as a JSON object, if it is one.
func (in Interpretation) Object() (map[string]any, bool) {
	if in.Fallback {
		return nil, false
	}
	m, ok := in.Value.(map[string]any)
	return m, ok
}

// Interpret never fails: extraction problems turn into a fallback carrying the raw text.
func Interpret(raw string) Interpretation {
	v, err := ExtractJSON(raw)
	if err != nil {
		return Interpretation{Raw: raw, Fallback: true, Cause: err}
	}
	return Interpretation{Value: v, Raw: raw}
}
