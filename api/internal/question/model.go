package question

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Question is one generated exam question. The set of implementations is closed:
// MultipleChoiceQuestion, ShortAnswerQuestion and DescriptionQuestion.
type Question interface {
	Type() QuestionType
	Text() string
	isQuestion()
}

type MultipleChoiceQuestion struct {
	Question      string   `json:"question" validate:"required"`
	Choices       []string `json:"choices" validate:"min=2"`
	CorrectAnswer string   `json:"correct_answer"`
}

type ShortAnswerQuestion struct {
	Question string `json:"question" validate:"required"`
}

type DescriptionQuestion struct {
	Question string `json:"question" validate:"required"`
}

func (MultipleChoiceQuestion) Type() QuestionType { return MultipleChoice }
func (ShortAnswerQuestion) Type() QuestionType    { return ShortAnswer }
func (DescriptionQuestion) Type() QuestionType    { return Description }

func (q MultipleChoiceQuestion) Text() string { return q.Question }
func (q ShortAnswerQuestion) Text() string    { return q.Question }
func (q DescriptionQuestion) Text() string    { return q.Question }

func (MultipleChoiceQuestion) isQuestion() {}
func (ShortAnswerQuestion) isQuestion()    {}
func (DescriptionQuestion) isQuestion()    {}

func (q MultipleChoiceQuestion) Validate() error { return check(q, ErrValidation) }
func (q ShortAnswerQuestion) Validate() error    { return check(q, ErrValidation) }
func (q DescriptionQuestion) Validate() error    { return check(q, ErrValidation) }

func (q MultipleChoiceQuestion) MarshalJSON() ([]byte, error) {
	choices := q.Choices
	if choices == nil {
		choices = []string{}
	}
	return json.Marshal(struct {
		Question      string       `json:"question"`
		Type          QuestionType `json:"type"`
		Choices       []string     `json:"choices"`
		CorrectAnswer string       `json:"correct_answer"`
	}{q.Question, MultipleChoice, choices, q.CorrectAnswer})
}

func (q ShortAnswerQuestion) MarshalJSON() ([]byte, error) {
	return marshalPlain(q.Question, ShortAnswer)
}

func (q DescriptionQuestion) MarshalJSON() ([]byte, error) {
	return marshalPlain(q.Question, Description)
}

func marshalPlain(text string, t QuestionType) ([]byte, error) {
	return json.Marshal(struct {
		Question string       `json:"question"`
		Type     QuestionType `json:"type"`
	}{text, t})
}

// DecodeQuestion is the strict inverse of MarshalJSON: unknown fields are rejected
// and the "type" field picks the concrete shape.
func DecodeQuestion(b []byte) (Question, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, err
	}
	shape := ResolveShape(head.Type)
	if !shape.Known() {
		return nil, fmt.Errorf("%w: type %q", ErrUnrecognizedShape, head.Type)
	}

	var wire struct {
		Question      string    `json:"question"`
		Type          string    `json:"type"`
		Choices       *[]string `json:"choices"`
		CorrectAnswer *string   `json:"correct_answer"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return nil, err
	}
	if !shape.HasChoices && (wire.Choices != nil || wire.CorrectAnswer != nil) {
		return nil, fmt.Errorf("%w: %s does not take choices", ErrValidation, shape.Type)
	}
	rec := Record{"question": wire.Question, "type": wire.Type}
	if wire.Choices != nil {
		rec["choices"] = toAnySlice(*wire.Choices)
	}
	if wire.CorrectAnswer != nil {
		rec["correct_answer"] = *wire.CorrectAnswer
	}
	return shape.Build(rec)
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// AnswerVerificationResult is the grading outcome for a free-text answer.
type AnswerVerificationResult struct {
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback"`
}

// FreeQuestion is an open question about a subject, not tied to a generated batch.
type FreeQuestion struct {
	Subject  string `json:"subject" validate:"required"`
	Question string `json:"question" validate:"required"`
}

func (f FreeQuestion) Validate() error { return check(f, ErrInvalidInput) }

type FreeAnswer struct {
	Answer string `json:"answer"`
}

// VerifyRequest carries a question and the student's answer to it.
type VerifyRequest struct {
	Question     string       `json:"question" validate:"required"`
	Answer       string       `json:"answer"`
	QuestionType QuestionType `json:"question_type" validate:"required,question_type"`
}

func (v VerifyRequest) Validate() error { return check(v, ErrInvalidInput) }
