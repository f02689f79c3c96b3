package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/infra/memory"
)

type stubRenderer struct {
	err error
}

func (r stubRenderer) Render(_ context.Context, data domain.CertificateData) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return fmt.Sprintf("certificates/certificate_%s_%d.pdf", data.UserID, data.QuizID), nil
}

type testEnv struct {
	server *httptest.Server
	auth   *auth.Service
	ledger *memory.Ledger
}

func newTestEnv(t *testing.T, renderer app.CertificateRenderer) *testEnv {
	t.Helper()
	ledger := memory.NewLedger()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	trigger := app.NewCertificateTrigger(renderer, ledger, 0)
	service := app.NewAttemptService(quizzes, memory.NewAttemptStore(time.Hour), ledger, trigger, nil)

	authSvc := auth.NewService("test-secret", time.Hour)
	server := httptest.NewServer(NewRouter(NewAPI(service, nil), NewWSHandler(service, nil), authSvc))
	t.Cleanup(server.Close)
	return &testEnv{server: server, auth: authSvc, ledger: ledger}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.auth.IssueToken(domain.User{ID: userID, DisplayName: "User " + userID})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, form url.Values) *http.Response {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func sampleQuizzes() map[int64]domain.Quiz {
	return map[int64]domain.Quiz{
		1: {
			ID:          1,
			Name:        "Sums",
			ChapterName: "Arithmetic",
			SubjectName: "Math",
			Questions: []domain.Question{
				{ID: 11, QuizID: 1, Statement: "1+1?", Options: [4]string{"one", "two", "three", "four"}, CorrectOption: 2, Points: 3},
				{ID: 12, QuizID: 1, Statement: "Sky?", Options: [4]string{"red", "green", "blue", "black"}, CorrectOption: 3, Points: 7},
			},
		},
	}
}

var correctText = map[int64]string{11: "two", 12: "blue"}

// positionOf finds the shuffled position at which text was rendered.
func positionOf(t *testing.T, q domain.RenderedQuestion, text string) int {
	t.Helper()
	for _, opt := range q.Options {
		if opt.Text == text {
			return opt.Position
		}
	}
	t.Fatalf("option %q not rendered for question %d", text, q.ID)
	return 0
}

func TestRenderAndSubmitFlow(t *testing.T) {
	env := newTestEnv(t, stubRenderer{})
	tok := env.token(t, "u1")

	resp := env.do(t, http.MethodGet, "/api/quizzes/1/attempt", tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("render status %d", resp.StatusCode)
	}
	rendered := decode[domain.RenderedQuiz](t, resp)
	if len(rendered.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(rendered.Questions))
	}

	form := url.Values{}
	for _, q := range rendered.Questions {
		form.Set(q.FieldName, fmt.Sprint(positionOf(t, q, correctText[q.ID])))
	}
	resp = env.do(t, http.MethodPost, "/api/quizzes/1/attempt", tok, form)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/api/quizzes/1/results" {
		t.Fatalf("unexpected location %q", loc)
	}
	outcome := decode[domain.Outcome](t, resp)
	if outcome.Score.TotalScored != 10 || outcome.Percent != 100 || outcome.Degraded {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Certificate == nil {
		t.Fatalf("expected certificate at 100%%")
	}

	resp = env.do(t, http.MethodGet, "/api/quizzes/1/results", tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("results status %d", resp.StatusCode)
	}
	results := decode[domain.Results](t, resp)
	if results.TotalPossible != 10 || results.Percent != 100 || len(results.Answers) != 2 || results.Certificate == nil {
		t.Fatalf("unexpected results %+v", results)
	}
	for _, a := range results.Answers {
		want := sampleQuizzes()[1]
		for _, q := range want.Questions {
			if q.ID == a.QuestionID && (a.SelectedOption == nil || *a.SelectedOption != q.CorrectOption) {
				t.Fatalf("expected canonical selection %d for question %d, got %v", q.CorrectOption, q.ID, a.SelectedOption)
			}
		}
	}

	resp = env.do(t, http.MethodGet, "/api/me/scores", tok, nil)
	history := decode[domain.History](t, resp)
	if history.Attempts != 1 || history.AverageScore != 10 {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestDuplicateSubmitDegrades(t *testing.T) {
	env := newTestEnv(t, stubRenderer{})
	tok := env.token(t, "u1")

	rendered := decode[domain.RenderedQuiz](t, env.do(t, http.MethodGet, "/api/quizzes/1/attempt", tok, nil))
	form := url.Values{}
	for _, q := range rendered.Questions {
		form.Set(q.FieldName, fmt.Sprint(positionOf(t, q, correctText[q.ID])))
	}
	first := decode[domain.Outcome](t, env.do(t, http.MethodPost, "/api/quizzes/1/attempt", tok, form))
	if first.Degraded {
		t.Fatalf("first submit must be graded")
	}

	resp := env.do(t, http.MethodPost, "/api/quizzes/1/attempt", tok, form)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("duplicate submit must still produce a result, got %d", resp.StatusCode)
	}
	second := decode[domain.Outcome](t, resp)
	if !second.Degraded || second.Score.TotalScored != 0 {
		t.Fatalf("expected degraded zero score, got %+v", second)
	}
	for _, a := range second.Answers {
		if a.IsCorrect || a.SelectedOption != nil {
			t.Fatalf("degraded answers must be unselected: %+v", a)
		}
	}
}

func TestCertificateFailureIsSoft(t *testing.T) {
	env := newTestEnv(t, stubRenderer{err: errors.New("no fonts")})
	tok := env.token(t, "u1")

	rendered := decode[domain.RenderedQuiz](t, env.do(t, http.MethodGet, "/api/quizzes/1/attempt", tok, nil))
	form := url.Values{}
	for _, q := range rendered.Questions {
		form.Set(q.FieldName, fmt.Sprint(positionOf(t, q, correctText[q.ID])))
	}
	resp := env.do(t, http.MethodPost, "/api/quizzes/1/attempt", tok, form)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected result despite certificate failure, got %d", resp.StatusCode)
	}
	outcome := decode[domain.Outcome](t, resp)
	if outcome.Certificate != nil || outcome.CertificateWarning == "" {
		t.Fatalf("expected certificate warning, got %+v", outcome)
	}
	if _, _, err := env.ledger.LatestScore(context.Background(), "u1", 1); err != nil {
		t.Fatalf("score must stay committed: %v", err)
	}
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t, stubRenderer{})
	tok := env.token(t, "u1")

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"missing token", http.MethodGet, "/api/quizzes/1/attempt", "", http.StatusUnauthorized},
		{"unknown quiz", http.MethodGet, "/api/quizzes/99/attempt", tok, http.StatusNotFound},
		{"bad quiz id", http.MethodGet, "/api/quizzes/abc/attempt", tok, http.StatusBadRequest},
		{"no results yet", http.MethodGet, "/api/quizzes/1/results", tok, http.StatusNotFound},
		{"submit unknown quiz", http.MethodPost, "/api/quizzes/99/attempt", tok, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var form url.Values
			if tc.method == http.MethodPost {
				form = url.Values{}
			}
			resp := env.do(t, tc.method, tc.path, tc.token, form)
			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrQuizNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", domain.ErrScoreNotFound), http.StatusNotFound},
		{&domain.ValidationError{QuestionID: 1, Reason: "option 2 is empty"}, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %w", domain.ErrCommitFailed, errors.New("db down")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
	if _, msg := statusFor(fmt.Errorf("%w: %w", domain.ErrCommitFailed, errors.New("db password wrong"))); strings.Contains(msg, "password") {
		t.Fatalf("commit failures must not leak details: %q", msg)
	}
}

func TestParseSelections(t *testing.T) {
	form := url.Values{"question_11": {"2"}, "question_x": {"1"}, "csrf": {"t"}, "question_12": {"abc"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	selections, err := parseSelections(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(selections) != 2 || selections[11] != "2" || selections[12] != "abc" {
		t.Fatalf("unexpected selections %+v", selections)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"selections":{"11":"3","question_12":"1"}}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	selections, err = parseSelections(req)
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if selections[11] != "3" || selections[12] != "1" {
		t.Fatalf("unexpected json selections %+v", selections)
	}
}
