package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"quizmaster-service/internal/domain"
)

// Catalog reads and authors quiz content.
// It implements memory.QuizLoader and redis.QuizLoader.
type Catalog struct {
	db *bun.DB
}

func NewCatalog(db *bun.DB) *Catalog {
	return &Catalog{db: db}
}

// LoadQuiz loads a quiz with its chapter, subject and questions.
func (c *Catalog) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var row quizModel
	err := c.db.NewSelect().
		Model(&row).
		Relation("Chapter").
		Relation("Chapter.Subject").
		Relation("Questions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("id ASC")
		}).
		Where("q.id = ?", quizID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return row.toDomain(), nil
}

// EnsureQuiz finds or creates the subject, chapter and quiz with the given names
// and returns the quiz ID.
func (c *Catalog) EnsureQuiz(ctx context.Context, subject, chapter, quiz string) (int64, error) {
	var quizID int64
	err := c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		s := subjectModel{Name: subject}
		if err := findOrCreate(ctx, tx, &s, "name = ?", subject); err != nil {
			return fmt.Errorf("subject: %w", err)
		}
		ch := chapterModel{SubjectID: s.ID, Name: chapter}
		if err := findOrCreate(ctx, tx, &ch, "subject_id = ? AND name = ?", s.ID, chapter); err != nil {
			return fmt.Errorf("chapter: %w", err)
		}
		q := quizModel{ChapterID: ch.ID, Name: quiz}
		if err := findOrCreate(ctx, tx, &q, "chapter_id = ? AND name = ?", ch.ID, quiz); err != nil {
			return fmt.Errorf("quiz: %w", err)
		}
		quizID = q.ID
		return nil
	})
	return quizID, err
}

// AddQuestions validates and inserts questions into an existing quiz.
// Nothing is inserted when any question is invalid.
func (c *Catalog) AddQuestions(ctx context.Context, quizID int64, questions []domain.Question) ([]int64, error) {
	for i := range questions {
		questions[i].QuizID = quizID
		if err := questions[i].Validate(); err != nil {
			return nil, err
		}
	}

	ids := make([]int64, 0, len(questions))
	err := c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*quizModel)(nil)).Where("id = ?", quizID).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrQuizNotFound
		}
		for _, q := range questions {
			row := questionFromDomain(q)
			row.ID = 0
			if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
				return fmt.Errorf("insert question: %w", err)
			}
			ids = append(ids, row.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func findOrCreate(ctx context.Context, tx bun.Tx, model interface{}, where string, args ...interface{}) error {
	err := tx.NewSelect().Model(model).Where(where, args...).Limit(1).Scan(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = tx.NewInsert().Model(model).Exec(ctx)
	return err
}
