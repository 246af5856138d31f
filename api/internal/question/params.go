package question

import (
	"encoding/json"
	"errors"
	"fmt"
)

// GenerateParams describes what to generate from a textbook page.
type GenerateParams struct {
	Subject           string       `json:"subject" validate:"required,min=1"`
	Difficulty        string       `json:"difficulty" validate:"required"`
	NumberOfQuestions int          `json:"number_of_questions" validate:"gt=0"`
	QuestionType      QuestionType `json:"question_type" validate:"required,question_type"`
}

func (p GenerateParams) Validate() error { return check(p, ErrInvalidInput) }

var generateFields = []string{"subject", "difficulty", "number_of_questions", "question_type"}

// ParseGenerateParams decodes the JSON document sent alongside a textbook image.
// Absent keys are reported by name before type checks run.
func ParseGenerateParams(raw []byte) (GenerateParams, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return GenerateParams{}, fmt.Errorf("%w: invalid JSON format", ErrInvalidInput)
	}
	for _, k := range generateFields {
		if _, ok := keys[k]; !ok {
			return GenerateParams{}, fmt.Errorf("%w: missing required field: %s", ErrInvalidInput, k)
		}
	}
	var p GenerateParams
	if err := json.Unmarshal(raw, &p); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return GenerateParams{}, err
		}
		return GenerateParams{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := p.Validate(); err != nil {
		return GenerateParams{}, err
	}
	return p, nil
}
