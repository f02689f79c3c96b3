package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/metrics"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// invalidator is implemented by caching repositories.
type invalidator interface {
	Invalidate(ctx context.Context, quizID int64) error
}

// AttemptStore holds the shuffle mapping between the render and the submit of one attempt.
// Take is destructive: a second Take for the same pair returns domain.ErrAttemptNotFound.
type AttemptStore interface {
	Put(ctx context.Context, userID string, quizID int64, mapping domain.AttemptMapping) error
	Take(ctx context.Context, userID string, quizID int64) (domain.AttemptMapping, error)
}

// Ledger is the durable record of completed attempts.
type Ledger interface {
	// Commit stores the score, then every answer referencing it, all or nothing.
	// On success score.ID and each answer's ID and ScoreID are populated.
	Commit(ctx context.Context, score *domain.Score, answers []domain.Answer) error
	LatestScore(ctx context.Context, userID string, quizID int64) (domain.Score, []domain.Answer, error)
	ListScores(ctx context.Context, userID string) ([]domain.Score, error)
}

// AttemptService contains the quiz attempt use cases.
type AttemptService struct {
	quizzes      QuizRepository
	attempts     AttemptStore
	ledger       Ledger
	certificates *CertificateTrigger
	shuffler     *Shuffler
	logger       *zap.Logger
	now          func() time.Time
}

// NewAttemptService wires the attempt flow. certificates may be nil to disable issuance.
func NewAttemptService(quizzes QuizRepository, attempts AttemptStore, ledger Ledger, certificates *CertificateTrigger, logger *zap.Logger) *AttemptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttemptService{
		quizzes:      quizzes,
		attempts:     attempts,
		ledger:       ledger,
		certificates: certificates,
		shuffler:     NewShuffler(),
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *AttemptService) WithClock(now func() time.Time) *AttemptService {
	s.now = now
	return s
}

// WithShuffler replaces the random source of presentation orders.
func (s *AttemptService) WithShuffler(shuffler *Shuffler) *AttemptService {
	s.shuffler = shuffler
	return s
}

// evict drops a cached quiz that failed validation so a corrected copy is picked up on the next render.
func (s *AttemptService) evict(ctx context.Context, quizID int64) {
	inv, ok := s.quizzes.(invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, quizID); err != nil {
		s.logger.Warn("quiz cache invalidation failed", zap.Int64("quiz_id", quizID), zap.Error(err))
	}
}

// Render shuffles every question of a quiz and stores the mapping for the upcoming submission.
// A new render for the same (user, quiz) replaces any previous mapping.
func (s *AttemptService) Render(ctx context.Context, user domain.User, quizID int64) (domain.RenderedQuiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.RenderedQuiz{}, err
	}

	ordered := s.shuffler.ShuffleQuestions(quiz.Questions)
	mapping := make(domain.AttemptMapping, len(ordered))
	rendered := domain.RenderedQuiz{
		QuizID:      quizID,
		Name:        quiz.Name,
		ChapterName: quiz.ChapterName,
		SubjectName: quiz.SubjectName,
		Questions:   make([]domain.RenderedQuestion, 0, len(ordered)),
	}
	for _, question := range ordered {
		shuffle, err := s.shuffler.Shuffle(question)
		if err != nil {
			s.evict(ctx, quizID)
			return domain.RenderedQuiz{}, err
		}
		mapping[question.ID] = shuffle
		rendered.Questions = append(rendered.Questions, renderQuestion(question, shuffle))
	}

	if err := s.attempts.Put(ctx, user.ID, quizID, mapping); err != nil {
		return domain.RenderedQuiz{}, fmt.Errorf("store attempt mapping: %w", err)
	}
	metrics.AttemptsRendered.Inc()
	s.logger.Debug("quiz rendered",
		zap.String("user_id", user.ID),
		zap.Int64("quiz_id", quizID),
		zap.Int("questions", len(rendered.Questions)))
	return rendered, nil
}

// Submit grades a submission with the mapping stored at render time and records it.
// A missing mapping grades every question as unanswered instead of failing.
func (s *AttemptService) Submit(ctx context.Context, user domain.User, quizID int64, selections domain.Selections) (domain.Outcome, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Outcome{}, err
	}

	degraded := false
	mapping, err := s.attempts.Take(ctx, user.ID, quizID)
	if err != nil {
		degraded = true
		mapping = nil
		if errors.Is(err, domain.ErrAttemptNotFound) {
			s.logger.Warn("no attempt mapping, grading without credit",
				zap.String("user_id", user.ID),
				zap.Int64("quiz_id", quizID))
		} else {
			s.logger.Error("attempt store take failed, grading without credit",
				zap.String("user_id", user.ID),
				zap.Int64("quiz_id", quizID),
				zap.Error(err))
		}
	}

	graded := Grade(quiz, user.ID, selections, mapping, s.now())
	if err := s.ledger.Commit(ctx, &graded.Score, graded.Answers); err != nil {
		metrics.Submissions.WithLabelValues("failed").Inc()
		s.logger.Error("score commit failed",
			zap.String("user_id", user.ID),
			zap.Int64("quiz_id", quizID),
			zap.Error(err))
		return domain.Outcome{}, fmt.Errorf("%w: %w", domain.ErrCommitFailed, err)
	}

	if degraded {
		metrics.Submissions.WithLabelValues("degraded").Inc()
	} else {
		metrics.Submissions.WithLabelValues("graded").Inc()
	}
	s.logger.Info("quiz submitted",
		zap.String("user_id", user.ID),
		zap.Int64("quiz_id", quizID),
		zap.Int64("score_id", graded.Score.ID),
		zap.Float64("awarded", graded.Score.TotalScored),
		zap.Float64("possible", graded.TotalPossible),
		zap.Float64("percent", graded.Percent),
		zap.Bool("degraded", degraded))

	outcome := domain.Outcome{GradedAttempt: graded, Degraded: degraded}
	if s.certificates == nil {
		return outcome, nil
	}
	cert, err := s.certificates.MaybeIssue(ctx, user, quiz, graded)
	switch {
	case err != nil:
		metrics.Certificates.WithLabelValues("failed").Inc()
		s.logger.Error("certificate generation failed",
			zap.String("user_id", user.ID),
			zap.Int64("quiz_id", quizID),
			zap.Int64("score_id", graded.Score.ID),
			zap.Error(err))
		outcome.CertificateWarning = "certificate generation failed, please contact an administrator"
	case cert != nil:
		metrics.Certificates.WithLabelValues("issued").Inc()
		outcome.Certificate = cert
	}
	return outcome, nil
}

// Results returns the latest attempt of a user on a quiz.
func (s *AttemptService) Results(ctx context.Context, userID string, quizID int64) (domain.Results, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Results{}, err
	}
	score, answers, err := s.ledger.LatestScore(ctx, userID, quizID)
	if err != nil {
		return domain.Results{}, err
	}

	points := make(map[int64]float64, len(quiz.Questions))
	for _, q := range quiz.Questions {
		points[q.ID] = q.Points
	}
	possible := 0.0
	for _, a := range answers {
		possible += points[a.QuestionID]
	}

	results := domain.Results{
		QuizName:      quiz.Name,
		Score:         score,
		Answers:       answers,
		TotalPossible: possible,
		Percent:       Percent(score.TotalScored, possible),
	}
	if s.certificates != nil {
		cert, err := s.certificates.Latest(ctx, userID, quizID)
		if err != nil {
			return domain.Results{}, err
		}
		results.Certificate = cert
	}
	return results, nil
}

// History lists every score of a user with the attempt count and average total.
func (s *AttemptService) History(ctx context.Context, userID string) (domain.History, error) {
	scores, err := s.ledger.ListScores(ctx, userID)
	if err != nil {
		return domain.History{}, err
	}
	history := domain.History{UserID: userID, Scores: scores, Attempts: len(scores)}
	if len(scores) > 0 {
		total := 0.0
		for _, sc := range scores {
			total += sc.TotalScored
		}
		history.AverageScore = total / float64(len(scores))
	}
	return history, nil
}

func renderQuestion(q domain.Question, shuffle domain.ShuffleMapping) domain.RenderedQuestion {
	options := make([]domain.RenderedOption, len(shuffle.Options))
	for i, opt := range shuffle.Options {
		options[i] = domain.RenderedOption{Position: i + 1, Text: opt.Text}
	}
	return domain.RenderedQuestion{
		ID:        q.ID,
		Statement: q.Statement,
		ImagePath: q.ImagePath,
		Points:    q.Points,
		FieldName: domain.SelectionField(q.ID),
		Options:   options,
	}
}
