package domain

import (
	"fmt"
	"strings"
	"time"
)

// OptionCount is the number of options every question carries.
const OptionCount = 4

// User is the identity supplied by the authentication context.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Question models an MCQ question with four options and one correct option (1-4).
type Question struct {
	ID            int64               `json:"id"`
	QuizID        int64               `json:"quizId"`
	Statement     string              `json:"statement"`
	Options       [OptionCount]string `json:"options"`
	CorrectOption int                 `json:"correctOption"`
	Points        float64             `json:"points"`
	ImagePath     string              `json:"imagePath,omitempty"`
}

// NewQuestion builds a question and validates it.
func NewQuestion(id, quizID int64, statement string, options [OptionCount]string, correct int, points float64) (Question, error) {
	q := Question{
		ID:            id,
		QuizID:        quizID,
		Statement:     statement,
		Options:       options,
		CorrectOption: correct,
		Points:        points,
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks that all options are present, the correct option is in range
// and points are non-negative.
func (q Question) Validate() error {
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return &ValidationError{QuestionID: q.ID, Reason: fmt.Sprintf("option %d is empty", i+1)}
		}
	}
	if q.CorrectOption < 1 || q.CorrectOption > OptionCount {
		return &ValidationError{QuestionID: q.ID, Reason: fmt.Sprintf("correct option %d outside 1-%d", q.CorrectOption, OptionCount)}
	}
	if q.Points < 0 {
		return &ValidationError{QuestionID: q.ID, Reason: "points must be non-negative"}
	}
	return nil
}

// Quiz is a collection of questions. Chapter and subject are descriptive only.
type Quiz struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	ChapterName string     `json:"chapterName,omitempty"`
	SubjectName string     `json:"subjectName,omitempty"`
	Questions   []Question `json:"questions"`
}

// TotalPoints sums the points of every question.
func (q Quiz) TotalPoints() float64 {
	total := 0.0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// ShuffledOption is an option in presentation order, remembering its canonical index.
type ShuffledOption struct {
	Text          string `json:"text"`
	OriginalIndex int    `json:"originalIndex"`
}

// ShuffleMapping is the presentation order of one question for one attempt.
// Options[CorrectPosition-1].OriginalIndex equals the question's correct option.
type ShuffleMapping struct {
	Options         []ShuffledOption `json:"options"`
	CorrectPosition int              `json:"correctPosition"`
}

// Canonical translates a shuffled position (1-4) into the canonical option index.
func (m ShuffleMapping) Canonical(position int) (int, bool) {
	if position < 1 || position > len(m.Options) {
		return 0, false
	}
	return m.Options[position-1].OriginalIndex, true
}

// AttemptMapping holds the shuffle mapping of every question of one render, keyed by question ID.
type AttemptMapping map[int64]ShuffleMapping

// Selections are the raw submitted shuffled positions keyed by question ID.
// Missing or non-numeric values mean unanswered.
type Selections map[int64]string

// Score is the total of one graded submission.
type Score struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"userId"`
	QuizID      int64     `json:"quizId"`
	TotalScored float64   `json:"totalScored"`
	Timestamp   time.Time `json:"timestamp"`
}

// Answer is the graded outcome of one question within a Score.
// SelectedOption is the canonical index, nil when unanswered.
type Answer struct {
	ID             int64   `json:"id"`
	ScoreID        int64   `json:"scoreId"`
	QuestionID     int64   `json:"questionId"`
	SelectedOption *int    `json:"selectedOption"`
	IsCorrect      bool    `json:"isCorrect"`
	PointsAwarded  float64 `json:"pointsAwarded"`
}

// Certificate records a rendered certificate artifact.
type Certificate struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	QuizID    int64     `json:"quizId"`
	FilePath  string    `json:"filePath"`
	CreatedAt time.Time `json:"createdAt"`
}

// GradedAttempt is the output of grading a submission, before it is committed.
type GradedAttempt struct {
	Score         Score    `json:"score"`
	Answers       []Answer `json:"answers"`
	TotalPossible float64  `json:"totalPossible"`
	Percent       float64  `json:"percent"`
}

// CertificateData is what a certificate renderer needs to produce an artifact.
type CertificateData struct {
	UserID      string
	UserName    string
	QuizID      int64
	QuizName    string
	SubjectName string
	ChapterName string
	Awarded     float64
	Possible    float64
	Percent     float64
	Timestamp   time.Time
}

// RenderedOption is an option as shown to the user.
type RenderedOption struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
}

// RenderedQuestion is a question paired with its freshly shuffled options.
type RenderedQuestion struct {
	ID        int64            `json:"id"`
	Statement string           `json:"statement"`
	ImagePath string           `json:"imagePath,omitempty"`
	Points    float64          `json:"points"`
	FieldName string           `json:"fieldName"`
	Options   []RenderedOption `json:"options"`
}

// RenderedQuiz is the render output: questions in presentation order.
type RenderedQuiz struct {
	QuizID      int64              `json:"quizId"`
	Name        string             `json:"name"`
	ChapterName string             `json:"chapterName,omitempty"`
	SubjectName string             `json:"subjectName,omitempty"`
	Questions   []RenderedQuestion `json:"questions"`
}

// Outcome is the result of a quiz submission.
type Outcome struct {
	GradedAttempt
	Degraded           bool         `json:"degraded"`
	Certificate        *Certificate `json:"certificate,omitempty"`
	CertificateWarning string       `json:"certificateWarning,omitempty"`
}

// Results is the view of a user's latest attempt on a quiz.
type Results struct {
	QuizName      string       `json:"quizName"`
	Score         Score        `json:"score"`
	Answers       []Answer     `json:"answers"`
	TotalPossible float64      `json:"totalPossible"`
	Percent       float64      `json:"percent"`
	Certificate   *Certificate `json:"certificate,omitempty"`
}

// History summarizes all attempts of a user.
type History struct {
	UserID       string  `json:"userId"`
	Scores       []Score `json:"scores"`
	Attempts     int     `json:"attempts"`
	AverageScore float64 `json:"averageScore"`
}

// SelectionFieldPrefix prefixes the form field carrying a question's selected position.
const SelectionFieldPrefix = "question_"

// SelectionField returns the form field name for a question.
func SelectionField(questionID int64) string {
	return fmt.Sprintf("%s%d", SelectionFieldPrefix, questionID)
}
