package app

import (
	"math/rand"
	"sync"
	"time"

	"quizmaster-service/internal/domain"
)

// Shuffler produces a fresh presentation order for every call.
// It never memoizes by question, so two renders of the same quiz are independent.
type Shuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewShuffler() *Shuffler {
	return NewShufflerWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewShufflerWithSource is test-only for reproducible orders.
func NewShufflerWithSource(src rand.Source) *Shuffler {
	return &Shuffler{rnd: rand.New(src)}
}

// Shuffle permutes the four options of a question and records where the correct one landed.
func (s *Shuffler) Shuffle(q domain.Question) (domain.ShuffleMapping, error) {
	if err := q.Validate(); err != nil {
		return domain.ShuffleMapping{}, err
	}

	options := make([]domain.ShuffledOption, len(q.Options))
	for i, text := range q.Options {
		options[i] = domain.ShuffledOption{Text: text, OriginalIndex: i + 1}
	}

	s.mu.Lock()
	s.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	s.mu.Unlock()

	mapping := domain.ShuffleMapping{Options: options}
	for i, opt := range options {
		if opt.OriginalIndex == q.CorrectOption {
			mapping.CorrectPosition = i + 1
			break
		}
	}
	return mapping, nil
}

// ShuffleQuestions returns the questions in a random presentation order without touching the input.
func (s *Shuffler) ShuffleQuestions(questions []domain.Question) []domain.Question {
	out := append([]domain.Question(nil), questions...)
	s.mu.Lock()
	s.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	s.mu.Unlock()
	return out
}
