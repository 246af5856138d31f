package question

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one untyped object recovered from model output.
type Record map[string]any

// Shape is the concrete form a type tag resolves to.
type Shape struct {
	Type       QuestionType
	HasChoices bool
	build      func(Record) (Question, error)
}

// Known reports whether the shape can build a question. The base shape cannot.
func (s Shape) Known() bool { return s.build != nil }

func (s Shape) Build(r Record) (Question, error) {
	if !s.Known() {
		return nil, ErrUnrecognizedShape
	}
	return s.build(r)
}

var baseShape = Shape{}

var shapes = map[QuestionType]Shape{
	MultipleChoice: {Type: MultipleChoice, HasChoices: true, build: buildMultipleChoice},
	ShortAnswer:    {Type: ShortAnswer, build: buildShortAnswer},
	Description:    {Type: Description, build: buildDescription},
}

// ResolveShape maps a type tag to its shape. Unknown tags, "random" and the empty
// tag all resolve to the base shape; the lookup itself never fails.
func ResolveShape(tag string) Shape {
	if s, ok := shapes[QuestionType(strings.TrimSpace(tag))]; ok {
		return s
	}
	return baseShape
}

func buildMultipleChoice(r Record) (Question, error) {
	text, err := r.str("question")
	if err != nil {
		return nil, err
	}
	choices, err := r.strs("choices")
	if err != nil {
		return nil, err
	}
	answer, err := r.str("correct_answer")
	if err != nil {
		return nil, err
	}
	q := MultipleChoiceQuestion{Question: text, Choices: choices, CorrectAnswer: answer}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func buildShortAnswer(r Record) (Question, error) {
	text, err := r.str("question")
	if err != nil {
		return nil, err
	}
	q := ShortAnswerQuestion{Question: text}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func buildDescription(r Record) (Question, error) {
	text, err := r.str("question")
	if err != nil {
		return nil, err
	}
	q := DescriptionQuestion{Question: text}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// str reads a string field; absent or null yields "".
func (r Record) str(key string) (string, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := scalar(v)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrValidation, key)
	}
	return s, nil
}

// strs reads a list of strings; absent or null yields an empty list.
func (r Record) strs(key string) ([]string, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return []string{}, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list", ErrValidation, key)
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		s, ok := scalar(it)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] must be a string", ErrValidation, key, i)
		}
		out = append(out, s)
	}
	return out, nil
}

// scalar accepts strings and the number/bool literals models sometimes emit for choices.
func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}
