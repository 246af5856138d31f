package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput marks caller mistakes: bad parameters, unsupported operations.
	ErrInvalidInput = errors.New("invalid input")
	// ErrValidation marks a recognized record that violates a question invariant.
	ErrValidation = errors.New("validation failed")
	// ErrUnrecognizedShape marks a record whose type tag has no concrete shape.
	ErrUnrecognizedShape = errors.New("unrecognized record shape")
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	ShortAnswer    QuestionType = "short_answer"
	Description    QuestionType = "description"
	// Random lets the model pick the type of every question.
	Random QuestionType = "random"
)

var allTypes = []QuestionType{MultipleChoice, ShortAnswer, Description, Random}

func (t QuestionType) String() string { return string(t) }

func (t QuestionType) Valid() bool {
	for _, v := range allTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ParseQuestionType accepts only the four known values (case-insensitive, trimmed).
func ParseQuestionType(s string) (QuestionType, error) {
	t := QuestionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown question_type %q", ErrInvalidInput, s)
	}
	return t, nil
}

func (t *QuestionType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: question_type must be a string", ErrInvalidInput)
	}
	v, err := ParseQuestionType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
