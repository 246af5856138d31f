package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-gen/api/internal/question"
	"quiz-gen/api/internal/util"
)

func formatQuestion(n int, q question.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. [%s] %s", n, q.Type(), q.Text())
	if mc, ok := q.(question.MultipleChoiceQuestion); ok {
		for i, c := range mc.Choices {
			fmt.Fprintf(&b, "\n   %d) %s", i+1, c)
		}
	}
	return b.String()
}

// choiceKeyboard has one button per choice; callback data is "mc:<question>:<choice>".
func choiceKeyboard(n int, mc question.MultipleChoiceQuestion) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(mc.Choices))
	for i, c := range mc.Choices {
		label := fmt.Sprintf("%d) %s", i+1, util.Truncate(c, 40))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("mc:%d:%d", n, i+1)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func parseChoiceData(data string) (qn, choice int, ok bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != "mc" {
		return 0, 0, false
	}
	qn, err1 := strconv.Atoi(parts[1])
	choice, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return qn, choice, true
}

func choiceVerdict(mc question.MultipleChoiceQuestion, answer string) string {
	if question.CheckChoice(mc, answer) {
		return "✅ Correct!"
	}
	return "❌ Wrong. Correct answer: " + mc.CorrectAnswer
}
