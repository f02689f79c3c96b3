package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"quizmaster-service/internal/domain"
)

type subjectModel struct {
	bun.BaseModel `bun:"table:subjects,alias:s"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

type chapterModel struct {
	bun.BaseModel `bun:"table:chapters,alias:c"`

	ID        int64  `bun:"id,pk,autoincrement"`
	SubjectID int64  `bun:"subject_id,notnull,unique:chapter_subject_name"`
	Name      string `bun:"name,notnull,unique:chapter_subject_name"`

	Subject *subjectModel `bun:"rel:belongs-to,join:subject_id=id"`
}

type quizModel struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID        int64  `bun:"id,pk,autoincrement"`
	ChapterID int64  `bun:"chapter_id,notnull,unique:quiz_chapter_name"`
	Name      string `bun:"name,notnull,unique:quiz_chapter_name"`

	Chapter   *chapterModel    `bun:"rel:belongs-to,join:chapter_id=id"`
	Questions []*questionModel `bun:"rel:has-many,join:id=quiz_id"`
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID            int64   `bun:"id,pk,autoincrement"`
	QuizID        int64   `bun:"quiz_id,notnull"`
	Statement     string  `bun:"question_statement,notnull"`
	Option1       string  `bun:"option1,notnull"`
	Option2       string  `bun:"option2,notnull"`
	Option3       string  `bun:"option3,notnull"`
	Option4       string  `bun:"option4,notnull"`
	CorrectOption int     `bun:"correct_option,notnull"`
	Points        float64 `bun:"points,notnull"`
	ImagePath     string  `bun:"image_path,nullzero"`
}

type scoreModel struct {
	bun.BaseModel `bun:"table:scores,alias:sc"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      string    `bun:"user_id,notnull"`
	QuizID      int64     `bun:"quiz_id,notnull"`
	TotalScored float64   `bun:"total_scored,notnull"`
	Timestamp   time.Time `bun:"timestamp,notnull"`
}

type answerModel struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID             int64   `bun:"id,pk,autoincrement"`
	ScoreID        int64   `bun:"score_id,notnull,unique:answer_score_question"`
	QuestionID     int64   `bun:"question_id,notnull,unique:answer_score_question"`
	SelectedOption *int    `bun:"selected_option"`
	IsCorrect      bool    `bun:"is_correct,notnull"`
	PointsAwarded  float64 `bun:"points_awarded,notnull"`
}

type certificateModel struct {
	bun.BaseModel `bun:"table:certificates,alias:ct"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	QuizID    int64     `bun:"quiz_id,notnull"`
	FilePath  string    `bun:"file_path,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (m *questionModel) toDomain() domain.Question {
	return domain.Question{
		ID:            m.ID,
		QuizID:        m.QuizID,
		Statement:     m.Statement,
		Options:       [domain.OptionCount]string{m.Option1, m.Option2, m.Option3, m.Option4},
		CorrectOption: m.CorrectOption,
		Points:        m.Points,
		ImagePath:     m.ImagePath,
	}
}

func questionFromDomain(q domain.Question) questionModel {
	return questionModel{
		ID:            q.ID,
		QuizID:        q.QuizID,
		Statement:     q.Statement,
		Option1:       q.Options[0],
		Option2:       q.Options[1],
		Option3:       q.Options[2],
		Option4:       q.Options[3],
		CorrectOption: q.CorrectOption,
		Points:        q.Points,
		ImagePath:     q.ImagePath,
	}
}

func (m *quizModel) toDomain() domain.Quiz {
	quiz := domain.Quiz{
		ID:        m.ID,
		Name:      m.Name,
		Questions: make([]domain.Question, 0, len(m.Questions)),
	}
	if m.Chapter != nil {
		quiz.ChapterName = m.Chapter.Name
		if m.Chapter.Subject != nil {
			quiz.SubjectName = m.Chapter.Subject.Name
		}
	}
	for _, q := range m.Questions {
		quiz.Questions = append(quiz.Questions, q.toDomain())
	}
	return quiz
}

func (m *scoreModel) toDomain() domain.Score {
	return domain.Score{
		ID:          m.ID,
		UserID:      m.UserID,
		QuizID:      m.QuizID,
		TotalScored: m.TotalScored,
		Timestamp:   m.Timestamp,
	}
}

func (m *answerModel) toDomain() domain.Answer {
	return domain.Answer{
		ID:             m.ID,
		ScoreID:        m.ScoreID,
		QuestionID:     m.QuestionID,
		SelectedOption: m.SelectedOption,
		IsCorrect:      m.IsCorrect,
		PointsAwarded:  m.PointsAwarded,
	}
}

func (m *certificateModel) toDomain() *domain.Certificate {
	return &domain.Certificate{
		ID:        m.ID,
		UserID:    m.UserID,
		QuizID:    m.QuizID,
		FilePath:  m.FilePath,
		CreatedAt: m.CreatedAt,
	}
}
