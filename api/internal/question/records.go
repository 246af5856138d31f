package question

import "fmt"

// Batch is the outcome of mapping model output into questions.
type Batch struct {
	Questions []Question
	// Skipped counts records that were not objects or had an unknown type tag.
	Skipped int
}

// FromRecords turns a decoded JSON array into questions, keeping record order.
// Records with an unrecognized shape are skipped; a recognized record that fails
// validation fails the whole batch.
func FromRecords(value any) (Batch, error) {
	items, ok := value.([]any)
	if !ok {
		return Batch{}, fmt.Errorf("%w: expected a JSON array of questions, got %s", ErrValidation, kindOf(value))
	}
	out := Batch{Questions: make([]Question, 0, len(items))}
	for i, it := range items {
		rec, ok := it.(map[string]any)
		if !ok {
			out.Skipped++
			continue
		}
		tag, _ := rec["type"].(string)
		shape := ResolveShape(tag)
		if !shape.Known() {
			out.Skipped++
			continue
		}
		q, err := shape.Build(Record(rec))
		if err != nil {
			return Batch{}, fmt.Errorf("object %d (%s): %w", i, shape.Type, err)
		}
		out.Questions = append(out.Questions, q)
	}
	return out, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}
