package prompt

import (
	"errors"
	"strings"
	"testing"

	"quiz-gen/api/internal/question"
)

func TestGeneration(t *testing.T) {
	t.Parallel()
	p := Generation("math", "easy", 2, question.Random, []string{"Pythagoras: a^2+b^2=c^2", "  ", "Area of a circle"})

	for _, want := range []string{
		"- Subject: math\n",
		"- Difficulty: easy\n",
		"- Number of questions: 2\n",
		"- Question type: random\n",
		"[1] Pythagoras: a^2+b^2=c^2\n",
		"[2] Area of a circle\n",
		"ONLY the JSON array",
		`ONLY when "type" is "multiple_choice"`,
		"wrap each formula in $ signs",
		`\\frac{1}{2}`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(p, "[3]") {
		t.Error("blank snippet must not be numbered")
	}
}

func TestGenerationStable(t *testing.T) {
	t.Parallel()
	a := Generation("science", "hard", 3, question.ShortAnswer, nil)
	b := Generation("science", "hard", 3, question.ShortAnswer, nil)
	if a != b {
		t.Fatal("same inputs must render the same prompt")
	}
	if !strings.Contains(a, "(none)") {
		t.Error("empty snippet list should be marked")
	}
	if strings.Contains(a, "pick a suitable type") {
		t.Error("type hint is only for random")
	}
}

func TestVerification(t *testing.T) {
	t.Parallel()
	p, err := Verification("What is 2+2?", "4", question.ShortAnswer)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Question type: short_answer", "Question: What is 2+2?", "Student answer: 4", `"correct"`, `"feedback"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestVerificationRejectsMultipleChoice(t *testing.T) {
	t.Parallel()
	p, err := Verification("q", "a", question.MultipleChoice)
	if !errors.Is(err, question.ErrInvalidInput) {
		t.Fatalf("err=%v want ErrInvalidInput", err)
	}
	if p != "" {
		t.Errorf("prompt=%q want empty", p)
	}
}

func TestEscapingConventionShared(t *testing.T) {
	t.Parallel()
	v, _ := Verification("q", "a", question.Description)
	for name, p := range map[string]string{
		"generation":   Generation("math", "easy", 1, question.Description, nil),
		"verification": v,
		"free":         FreeQuestion("math", "why?"),
	} {
		if !strings.Contains(p, escapeRule) {
			t.Errorf("%s prompt lacks the escaping rule", name)
		}
	}
}

func TestFreeQuestion(t *testing.T) {
	t.Parallel()
	p := FreeQuestion("history", "Who built the pyramids?")
	if !strings.Contains(p, "Subject: history\n") || !strings.Contains(p, "Question: Who built the pyramids?\n") {
		t.Errorf("prompt=%q", p)
	}
	if !strings.Contains(p, `"answer"`) {
		t.Error("missing answer contract")
	}
}
