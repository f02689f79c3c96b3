package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"quizmaster-service/internal/domain"
)

// Ledger persists scores, answers and certificates with bun.
// It implements app.Ledger and app.CertificateRepository.
type Ledger struct {
	db *bun.DB
}

func NewLedger(db *bun.DB) *Ledger {
	return &Ledger{db: db}
}

// Commit inserts the score first to obtain its ID, then every answer referencing it,
// inside one transaction. IDs are copied back only after the transaction commits.
func (l *Ledger) Commit(ctx context.Context, score *domain.Score, answers []domain.Answer) error {
	row := scoreModel{
		UserID:      score.UserID,
		QuizID:      score.QuizID,
		TotalScored: score.TotalScored,
		Timestamp:   score.Timestamp,
	}
	rows := make([]answerModel, len(answers))

	err := l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
		for i, a := range answers {
			rows[i] = answerModel{
				ScoreID:        row.ID,
				QuestionID:     a.QuestionID,
				SelectedOption: a.SelectedOption,
				IsCorrect:      a.IsCorrect,
				PointsAwarded:  a.PointsAwarded,
			}
			if _, err := tx.NewInsert().Model(&rows[i]).Exec(ctx); err != nil {
				return fmt.Errorf("insert answer for question %d: %w", a.QuestionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	score.ID = row.ID
	for i := range answers {
		answers[i].ID = rows[i].ID
		answers[i].ScoreID = row.ID
	}
	return nil
}

// LatestScore returns the most recently recorded score of a user on a quiz and its answers.
func (l *Ledger) LatestScore(ctx context.Context, userID string, quizID int64) (domain.Score, []domain.Answer, error) {
	var row scoreModel
	err := l.db.NewSelect().
		Model(&row).
		Where("user_id = ?", userID).
		Where("quiz_id = ?", quizID).
		OrderExpr("id DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Score{}, nil, domain.ErrScoreNotFound
	}
	if err != nil {
		return domain.Score{}, nil, fmt.Errorf("select latest score: %w", err)
	}

	var rows []answerModel
	if err := l.db.NewSelect().Model(&rows).Where("score_id = ?", row.ID).OrderExpr("id ASC").Scan(ctx); err != nil {
		return domain.Score{}, nil, fmt.Errorf("select answers: %w", err)
	}
	answers := make([]domain.Answer, len(rows))
	for i := range rows {
		answers[i] = rows[i].toDomain()
	}
	return row.toDomain(), answers, nil
}

// ListScores returns a user's scores, newest first.
func (l *Ledger) ListScores(ctx context.Context, userID string) ([]domain.Score, error) {
	var rows []scoreModel
	err := l.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("timestamp DESC", "id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select scores: %w", err)
	}
	scores := make([]domain.Score, len(rows))
	for i := range rows {
		scores[i] = rows[i].toDomain()
	}
	return scores, nil
}

func (l *Ledger) SaveCertificate(ctx context.Context, cert *domain.Certificate) error {
	row := certificateModel{
		UserID:    cert.UserID,
		QuizID:    cert.QuizID,
		FilePath:  cert.FilePath,
		CreatedAt: cert.CreatedAt,
	}
	if _, err := l.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	cert.ID = row.ID
	return nil
}

func (l *Ledger) LatestCertificate(ctx context.Context, userID string, quizID int64) (*domain.Certificate, error) {
	var row certificateModel
	err := l.db.NewSelect().
		Model(&row).
		Where("user_id = ?", userID).
		Where("quiz_id = ?", quizID).
		OrderExpr("id DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select latest certificate: %w", err)
	}
	return row.toDomain(), nil
}

// ListCertificates returns every certificate of a user, newest first.
func (l *Ledger) ListCertificates(ctx context.Context, userID string) ([]domain.Certificate, error) {
	var rows []certificateModel
	if err := l.db.NewSelect().Model(&rows).Where("user_id = ?", userID).OrderExpr("id DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select certificates: %w", err)
	}
	out := make([]domain.Certificate, len(rows))
	for i := range rows {
		out[i] = *rows[i].toDomain()
	}
	return out, nil
}
