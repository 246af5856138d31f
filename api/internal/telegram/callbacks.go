package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-gen/api/internal/question"
)

// handleCallback grades a tapped multiple-choice button locally.
func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	ack := func(text string) {
		if _, err := r.Bot.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
			r.logger().Warn("callback answer failed", "chat_id", chatID, "error", err)
		}
	}

	qn, choice, ok := parseChoiceData(cb.Data)
	if !ok {
		ack("")
		return
	}
	q, ok := r.state(chatID).question(qn)
	mc, isMC := q.(question.MultipleChoiceQuestion)
	if !ok || !isMC {
		ack("This question is no longer active.")
		return
	}
	if choice < 1 || choice > len(mc.Choices) {
		ack("Unknown choice.")
		return
	}
	verdict := choiceVerdict(mc, mc.Choices[choice-1])
	ack(verdict)
	r.send(chatID, strconv.Itoa(qn)+". "+verdict)
}
