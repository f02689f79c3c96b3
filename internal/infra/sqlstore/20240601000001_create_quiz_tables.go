package sqlstore

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds the schema history of the quiz store.
var Migrations = migrate.NewMigrations()

// questionTable creates the questions table with a column default for points.
// Writes go through questionModel, which carries no default so an explicit 0 is stored as 0.
type questionTable struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID            int64   `bun:"id,pk,autoincrement"`
	QuizID        int64   `bun:"quiz_id,notnull"`
	Statement     string  `bun:"question_statement,notnull"`
	Option1       string  `bun:"option1,notnull"`
	Option2       string  `bun:"option2,notnull"`
	Option3       string  `bun:"option3,notnull"`
	Option4       string  `bun:"option4,notnull"`
	CorrectOption int     `bun:"correct_option,notnull"`
	Points        float64 `bun:"points,notnull,default:1"`
	ImagePath     string  `bun:"image_path,nullzero"`
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			tables := []struct {
				model interface{}
				fks   []string
			}{
				{model: (*subjectModel)(nil)},
				{model: (*chapterModel)(nil), fks: []string{`("subject_id") REFERENCES "subjects" ("id") ON DELETE CASCADE`}},
				{model: (*quizModel)(nil), fks: []string{`("chapter_id") REFERENCES "chapters" ("id") ON DELETE CASCADE`}},
				{model: (*questionTable)(nil), fks: []string{`("quiz_id") REFERENCES "quizzes" ("id") ON DELETE CASCADE`}},
				{model: (*scoreModel)(nil), fks: []string{`("quiz_id") REFERENCES "quizzes" ("id") ON DELETE CASCADE`}},
				{model: (*answerModel)(nil), fks: []string{
					`("score_id") REFERENCES "scores" ("id") ON DELETE CASCADE`,
					`("question_id") REFERENCES "questions" ("id") ON DELETE CASCADE`,
				}},
				{model: (*certificateModel)(nil), fks: []string{`("quiz_id") REFERENCES "quizzes" ("id") ON DELETE CASCADE`}},
			}
			for _, t := range tables {
				q := db.NewCreateTable().Model(t.model).IfNotExists()
				for _, fk := range t.fks {
					q = q.ForeignKey(fk)
				}
				if _, err := q.Exec(ctx); err != nil {
					return err
				}
			}

			indexes := []struct {
				model   interface{}
				name    string
				columns []string
			}{
				{(*questionModel)(nil), "questions_quiz_id_idx", []string{"quiz_id"}},
				{(*scoreModel)(nil), "scores_user_quiz_idx", []string{"user_id", "quiz_id"}},
				{(*certificateModel)(nil), "certificates_user_quiz_idx", []string{"user_id", "quiz_id"}},
			}
			for _, idx := range indexes {
				if _, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists().Exec(ctx); err != nil {
					return err
				}
			}
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			for _, model := range []interface{}{
				(*certificateModel)(nil),
				(*answerModel)(nil),
				(*scoreModel)(nil),
				(*questionModel)(nil),
				(*quizModel)(nil),
				(*chapterModel)(nil),
				(*subjectModel)(nil),
			} {
				if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
