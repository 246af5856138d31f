package telegram

import (
	"sync"
	"time"

	"quiz-gen/api/internal/question"
)

const (
	debounce  = 1200 * time.Millisecond
	maxPixels = 18_000_000
)

// chatState is what the bot remembers about one chat between updates.
type chatState struct {
	mu        sync.Mutex
	params    question.GenerateParams
	llmName   string
	questions []question.Question
}

type photoBatch struct {
	ChatID  int64
	Key     string // "grp:<mediaGroupID>" | "chat:<chatID>"
	Caption string

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
}

var (
	chats   sync.Map // chatID -> *chatState
	batches sync.Map // key -> *photoBatch
)

func (r *Router) state(chatID int64) *chatState {
	v, _ := chats.LoadOrStore(chatID, &chatState{params: r.Defaults})
	return v.(*chatState)
}

func (s *chatState) snapshot() (question.GenerateParams, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params, s.llmName
}

func (s *chatState) setQuestions(qs []question.Question) {
	s.mu.Lock()
	s.questions = qs
	s.mu.Unlock()
}

// question returns the n-th (1-based) question of the last batch.
func (s *chatState) question(n int) (question.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 || n > len(s.questions) {
		return nil, false
	}
	return s.questions[n-1], true
}
