package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"quizmaster-service/internal/domain"
)

// Ledger keeps scores, answers and certificates in process memory.
// It implements app.Ledger and app.CertificateRepository.
type Ledger struct {
	mu           sync.RWMutex
	nextScore    int64
	nextAnswer   int64
	nextCert     int64
	scores       []domain.Score
	answers      map[int64][]domain.Answer
	certificates []domain.Certificate
}

func NewLedger() *Ledger {
	return &Ledger{answers: make(map[int64][]domain.Answer)}
}

// Commit validates the whole submission before making any of it visible.
func (l *Ledger) Commit(_ context.Context, score *domain.Score, answers []domain.Answer) error {
	if score == nil {
		return errors.New("nil score")
	}
	seen := make(map[int64]struct{}, len(answers))
	for _, a := range answers {
		if _, dup := seen[a.QuestionID]; dup {
			return errors.New("duplicate answer for question")
		}
		seen[a.QuestionID] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextScore++
	score.ID = l.nextScore
	stored := make([]domain.Answer, len(answers))
	for i := range answers {
		l.nextAnswer++
		answers[i].ID = l.nextAnswer
		answers[i].ScoreID = score.ID
		stored[i] = answers[i]
	}
	l.scores = append(l.scores, *score)
	l.answers[score.ID] = stored
	return nil
}

func (l *Ledger) LatestScore(_ context.Context, userID string, quizID int64) (domain.Score, []domain.Answer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.scores) - 1; i >= 0; i-- {
		sc := l.scores[i]
		if sc.UserID == userID && sc.QuizID == quizID {
			return sc, append([]domain.Answer(nil), l.answers[sc.ID]...), nil
		}
	}
	return domain.Score{}, nil, domain.ErrScoreNotFound
}

// ListScores returns a user's scores, newest first.
func (l *Ledger) ListScores(_ context.Context, userID string) ([]domain.Score, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Score, 0)
	for _, sc := range l.scores {
		if sc.UserID == userID {
			out = append(out, sc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (l *Ledger) SaveCertificate(_ context.Context, cert *domain.Certificate) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextCert++
	cert.ID = l.nextCert
	l.certificates = append(l.certificates, *cert)
	return nil
}

func (l *Ledger) LatestCertificate(_ context.Context, userID string, quizID int64) (*domain.Certificate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.certificates) - 1; i >= 0; i-- {
		c := l.certificates[i]
		if c.UserID == userID && c.QuizID == quizID {
			return &c, nil
		}
	}
	return nil, nil
}

// Certificates returns every certificate held by a user.
func (l *Ledger) Certificates(userID string) []domain.Certificate {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.Certificate
	for _, c := range l.certificates {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}
