// Package telegram is a chat front-end over the question service: photos become
// question batches, and answers to them are graded in the chat.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-gen/api/internal/logger"
	"quiz-gen/api/internal/ocr"
	"quiz-gen/api/internal/question"
	"quiz-gen/api/internal/service"
	"quiz-gen/api/internal/util"
)

// BotAPI is the part of *tgbotapi.BotAPI the router needs.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot BotAPI
	Svc *service.QuestionService
	OCR ocr.Recognizer
	Log *logger.Logger

	// Defaults seed the settings of every new chat.
	Defaults question.GenerateParams
	// Timeout bounds one backend-bound action (generation, grading).
	Timeout time.Duration
}

var DefaultParams = question.GenerateParams{
	Subject:           "general",
	Difficulty:        "medium",
	NumberOfQuestions: 5,
	QuestionType:      question.Random,
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	switch {
	case msg.IsCommand():
		r.handleCommand(msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(*msg)
	case strings.TrimSpace(msg.Text) != "":
		r.send(msg.Chat.ID, "Send a textbook photo, or use /help.")
	}
}

func (r *Router) ctx() (context.Context, context.CancelFunc) {
	d := r.Timeout
	if d <= 0 {
		d = 180 * time.Second
	}
	return context.WithTimeout(context.Background(), d)
}

func (r *Router) logger() *logger.Logger {
	if r.Log == nil {
		return logger.Nop()
	}
	return r.Log
}

func (r *Router) service(chatID int64) (*service.QuestionService, error) {
	_, name := r.state(chatID).snapshot()
	return r.Svc.Using(name)
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, util.Truncate(text, 3900))
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().Warn("telegram send failed", "chat_id", chatID, "error", err)
	}
}

func (r *Router) sendError(chatID int64, what string, err error) {
	r.logger().Error(what+" failed", "chat_id", chatID, "error", err)
	r.send(chatID, fmt.Sprintf("⚠️ %s failed: %v", what, err))
}
