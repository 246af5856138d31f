// Package prompt renders the instructions sent to the generative backend.
// Every builder is a pure function of its arguments.
package prompt

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"quiz-gen/api/internal/question"
)

// escapeRule is shared by every template so the model sees one convention.
const escapeRule = `- Inside JSON string values every backslash must be written doubled. ` +
	`Write LaTeX commands as \\frac{1}{2}, \\sqrt{x}, \\dots, never with a single backslash.`

const mathRule = `- If the subject is mathematics, write formulas in LaTeX and wrap each formula in $ signs.`

// Generation builds the prompt asking for count questions grounded on the page
// image and the retrieved reference snippets.
func Generation(subject, difficulty string, count int, qtype question.QuestionType, snippets []string) string {
	var b strings.Builder
	b.WriteString("Below is material from a textbook page (attached image) and reference passages.\n")
	b.WriteString("Using this material, create exam questions that satisfy the conditions below and return them as a JSON array.\n\n")

	fmt.Fprintf(&b, "- Subject: %s\n", subject)
	fmt.Fprintf(&b, "- Difficulty: %s\n", difficulty)
	fmt.Fprintf(&b, "- Number of questions: %d\n", count)
	fmt.Fprintf(&b, "- Question type: %s\n", qtype)
	if qtype == question.Random {
		b.WriteString("  (pick a suitable type for each question from multiple_choice, short_answer, description)\n")
	}

	b.WriteString("- Reference passages:\n")
	refs := lo.Filter(snippets, func(s string, _ int) bool { return strings.TrimSpace(s) != "" })
	if len(refs) == 0 {
		b.WriteString("  (none)\n")
	}
	for i, s := range refs {
		fmt.Fprintf(&b, "  [%d] %s\n", i+1, s)
	}

	b.WriteString(`
Output rules. Output ONLY the JSON array, with no other text before or after it.
- Do not use decorative markup (no bold, italics, headings or bullet symbols) inside the text.
- Write the questions in the same language as the textbook material.
`)
	b.WriteString(mathRule + "\n")
	b.WriteString(escapeRule + "\n")
	b.WriteString(`- Include "choices" and "correct_answer" ONLY when "type" is "multiple_choice".
- For "short_answer" and "description" do not write "choices" or "correct_answer".

Example format:
[
  {
    "type": "multiple_choice" | "short_answer" | "description",
    "question": "question text",
    "choices": ["choice 1", "choice 2", "choice 3", "choice 4"],
    "correct_answer": "the correct choice, copied exactly from choices"
  }
]
`)
	return b.String()
}

// Verification builds the grading prompt. Multiple-choice questions are graded
// locally and are rejected here.
func Verification(q, answer string, qtype question.QuestionType) (string, error) {
	if qtype == question.MultipleChoice {
		return "", fmt.Errorf("%w: multiple_choice answers cannot be verified by the model", question.ErrInvalidInput)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Question type: %s\n", qtype)
	fmt.Fprintf(&b, "Question: %s\n", q)
	fmt.Fprintf(&b, "Student answer: %s\n\n", answer)
	b.WriteString("Decide whether the student answer is correct and explain why in the feedback.\n")
	b.WriteString("- If the subject is mathematics, write the feedback in LaTeX and wrap each formula in $ signs.\n")
	b.WriteString(escapeRule + "\n")
	b.WriteString(`Respond ONLY with JSON in this form:
{
  "correct": true or false,
  "feedback": "explanation"
}
`)
	return b.String(), nil
}

// FreeQuestion builds the prompt for an open question about a subject.
func FreeQuestion(subject, q string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	fmt.Fprintf(&b, "Question: %s\n\n", q)
	b.WriteString("Answer the question above in detail, the way a subject expert would.\n")
	b.WriteString(mathRule + "\n")
	b.WriteString(escapeRule + "\n")
	b.WriteString(`Respond ONLY with JSON in this form:
{
  "answer": "the answer text"
}
`)
	return b.String()
}
