package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-gen/api/internal/question"
)

const helpText = `Send a photo of a textbook page and I will write exam questions about it.
An album of several photos is glued into one page.

Photo caption (optional): subject difficulty count type
  e.g. "math easy 3 multiple_choice"

/settings [subject difficulty count type] - show or change defaults
/engine [name] - show or switch the model backend
/answer N text - answer question N of the last batch
/ask subject | question - ask anything about a subject`

// Commands is the menu registered with BotFather-style clients.
var Commands = []tgbotapi.BotCommand{
	{Command: "help", Description: "How to use the bot"},
	{Command: "settings", Description: "Show or change generation settings"},
	{Command: "engine", Description: "Show or switch the model backend"},
	{Command: "answer", Description: "Answer a question: /answer N text"},
	{Command: "ask", Description: "Ask a question: /ask subject | question"},
}

func (r *Router) handleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "settings":
		r.handleSettings(cid, args)
	case "engine":
		r.handleEngine(cid, args)
	case "answer":
		r.handleAnswer(cid, args)
	case "ask":
		r.handleAsk(cid, args)
	default:
		r.send(cid, "Unknown command. See /help.")
	}
}

func (r *Router) handleSettings(chatID int64, args string) {
	st := r.state(chatID)
	if args == "" {
		p, _ := st.snapshot()
		r.send(chatID, "Current settings: "+describeParams(p))
		return
	}
	p, err := parseSettings(args)
	if err != nil {
		r.send(chatID, "❌ "+err.Error()+"\nUsage: /settings subject difficulty count type")
		return
	}
	st.mu.Lock()
	st.params = p
	st.mu.Unlock()
	r.send(chatID, "✅ Settings: "+describeParams(p))
}

// handleEngine switches the backend for this chat.
func (r *Router) handleEngine(chatID int64, args string) {
	st := r.state(chatID)
	if args == "" {
		svc, err := r.service(chatID)
		if err != nil {
			r.sendError(chatID, "engine lookup", err)
			return
		}
		eng := svc.Engine()
		r.send(chatID, fmt.Sprintf("Current engine: %s (%s)\nUsage: /engine {gemini|openai|anthropic}", eng.Name(), eng.GetModel()))
		return
	}
	name := strings.ToLower(strings.Fields(args)[0])
	svc, err := r.Svc.Using(name)
	if err != nil {
		r.send(chatID, "❌ "+err.Error())
		return
	}
	st.mu.Lock()
	st.llmName = name
	st.mu.Unlock()
	r.send(chatID, fmt.Sprintf("✅ Engine: %s (%s)", svc.Engine().Name(), svc.Engine().GetModel()))
}

func (r *Router) handleAnswer(chatID int64, args string) {
	num, text, _ := strings.Cut(args, " ")
	n, err := strconv.Atoi(num)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		r.send(chatID, "Usage: /answer N text")
		return
	}
	q, ok := r.state(chatID).question(n)
	if !ok {
		r.send(chatID, fmt.Sprintf("There is no question %d in the last batch.", n))
		return
	}
	if mc, ok := q.(question.MultipleChoiceQuestion); ok {
		r.send(chatID, choiceVerdict(mc, text))
		return
	}

	svc, err := r.service(chatID)
	if err != nil {
		r.sendError(chatID, "engine lookup", err)
		return
	}
	ctx, cancel := r.ctx()
	defer cancel()
	res, err := svc.Verify(ctx, question.VerifyRequest{Question: q.Text(), Answer: text, QuestionType: q.Type()})
	if err != nil {
		r.sendError(chatID, "grading", err)
		return
	}
	mark := "❌ Not quite."
	if res.Correct {
		mark = "✅ Correct!"
	}
	r.send(chatID, strings.TrimSpace(mark+"\n\n"+res.Feedback))
}

func (r *Router) handleAsk(chatID int64, args string) {
	subject, q, ok := strings.Cut(args, "|")
	subject, q = strings.TrimSpace(subject), strings.TrimSpace(q)
	if !ok || subject == "" || q == "" {
		r.send(chatID, "Usage: /ask subject | question")
		return
	}
	svc, err := r.service(chatID)
	if err != nil {
		r.sendError(chatID, "engine lookup", err)
		return
	}
	ctx, cancel := r.ctx()
	defer cancel()
	ans, err := svc.AnswerFreeQuestion(ctx, question.FreeQuestion{Subject: subject, Question: q})
	if err != nil {
		r.sendError(chatID, "answering", err)
		return
	}
	r.send(chatID, ans.Answer)
}

// parseSettings reads "subject difficulty count type". The subject may contain
// spaces; the last three fields are fixed.
func parseSettings(s string) (question.GenerateParams, error) {
	f := strings.Fields(s)
	if len(f) < 4 {
		return question.GenerateParams{}, fmt.Errorf("expected 4 values, got %d", len(f))
	}
	n := len(f)
	count, err := strconv.Atoi(f[n-2])
	if err != nil {
		return question.GenerateParams{}, fmt.Errorf("count must be a number, got %q", f[n-2])
	}
	qt, err := question.ParseQuestionType(f[n-1])
	if err != nil {
		return question.GenerateParams{}, err
	}
	p := question.GenerateParams{
		Subject:           strings.Join(f[:n-3], " "),
		Difficulty:        f[n-3],
		NumberOfQuestions: count,
		QuestionType:      qt,
	}
	if err := p.Validate(); err != nil {
		return question.GenerateParams{}, err
	}
	return p, nil
}

func describeParams(p question.GenerateParams) string {
	return fmt.Sprintf("%s, %s, %d × %s", p.Subject, p.Difficulty, p.NumberOfQuestions, p.QuestionType)
}
