package app

import (
	"context"
	"fmt"
	"time"

	"quizmaster-service/internal/domain"
)

// DefaultCertificateThreshold is the minimum percentage that earns a certificate.
const DefaultCertificateThreshold = 86.0

// CertificateRenderer produces a certificate artifact and returns its storage path.
type CertificateRenderer interface {
	Render(ctx context.Context, data domain.CertificateData) (string, error)
}

// CertificateRepository persists certificate records.
type CertificateRepository interface {
	SaveCertificate(ctx context.Context, cert *domain.Certificate) error
	// LatestCertificate returns nil without error when the user holds none for the quiz.
	LatestCertificate(ctx context.Context, userID string, quizID int64) (*domain.Certificate, error)
}

// CertificateTrigger decides from the final percentage whether to issue a certificate.
type CertificateTrigger struct {
	threshold float64
	renderer  CertificateRenderer
	repo      CertificateRepository
	now       func() time.Time
}

// NewCertificateTrigger uses DefaultCertificateThreshold when threshold is not positive.
func NewCertificateTrigger(renderer CertificateRenderer, repo CertificateRepository, threshold float64) *CertificateTrigger {
	if threshold <= 0 {
		threshold = DefaultCertificateThreshold
	}
	return &CertificateTrigger{
		threshold: threshold,
		renderer:  renderer,
		repo:      repo,
		now:       time.Now,
	}
}

func (t *CertificateTrigger) Threshold() float64 {
	return t.threshold
}

// ShouldIssue reports whether percent reaches the threshold.
func (t *CertificateTrigger) ShouldIssue(percent float64) bool {
	return percent >= t.threshold
}

// MaybeIssue renders and records a certificate when the graded attempt qualifies.
// It returns (nil, nil) below the threshold. Errors wrap domain.ErrRenderFailed and never
// touch the already committed score.
func (t *CertificateTrigger) MaybeIssue(ctx context.Context, user domain.User, quiz domain.Quiz, graded domain.GradedAttempt) (*domain.Certificate, error) {
	if !t.ShouldIssue(graded.Percent) {
		return nil, nil
	}

	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	path, err := t.renderer.Render(ctx, domain.CertificateData{
		UserID:      user.ID,
		UserName:    name,
		QuizID:      quiz.ID,
		QuizName:    quiz.Name,
		SubjectName: orGeneral(quiz.SubjectName),
		ChapterName: orGeneral(quiz.ChapterName),
		Awarded:     graded.Score.TotalScored,
		Possible:    graded.TotalPossible,
		Percent:     graded.Percent,
		Timestamp:   graded.Score.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRenderFailed, err)
	}

	cert := &domain.Certificate{
		UserID:    user.ID,
		QuizID:    quiz.ID,
		FilePath:  path,
		CreatedAt: t.now(),
	}
	if err := t.repo.SaveCertificate(ctx, cert); err != nil {
		return nil, fmt.Errorf("%w: save certificate: %w", domain.ErrRenderFailed, err)
	}
	return cert, nil
}

// Latest returns the most recent certificate of a user for a quiz, or nil.
func (t *CertificateTrigger) Latest(ctx context.Context, userID string, quizID int64) (*domain.Certificate, error) {
	return t.repo.LatestCertificate(ctx, userID, quizID)
}

func orGeneral(name string) string {
	if name == "" {
		return "General"
	}
	return name
}
