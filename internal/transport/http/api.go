package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/domain"
)

// API exposes the attempt use cases over REST.
type API struct {
	service *app.AttemptService
	logger  *zap.Logger
}

func NewAPI(service *app.AttemptService, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{service: service, logger: logger}
}

// submitRequest is the JSON form of a submission, keyed by question ID.
type submitRequest struct {
	Selections map[string]string `json:"selections"`
}

// RenderAttempt handles GET /api/quizzes/{quizID}/attempt.
func (a *API) RenderAttempt(w http.ResponseWriter, r *http.Request) {
	user, quizID, ok := a.attemptParams(w, r)
	if !ok {
		return
	}
	rendered, err := a.service.Render(r.Context(), user, quizID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rendered)
}

// SubmitAttempt handles POST /api/quizzes/{quizID}/attempt with question_<id>=<position> fields.
func (a *API) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	user, quizID, ok := a.attemptParams(w, r)
	if !ok {
		return
	}
	selections, err := parseSelections(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	outcome, err := a.service.Submit(r.Context(), user, quizID, selections)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/quizzes/%d/results", quizID))
	writeJSON(w, http.StatusCreated, outcome)
}

// Results handles GET /api/quizzes/{quizID}/results.
func (a *API) Results(w http.ResponseWriter, r *http.Request) {
	user, quizID, ok := a.attemptParams(w, r)
	if !ok {
		return
	}
	results, err := a.service.Results(r.Context(), user.ID, quizID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// History handles GET /api/me/scores.
func (a *API) History(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	history, err := a.service.History(r.Context(), user.ID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (a *API) attemptParams(w http.ResponseWriter, r *http.Request) (domain.User, int64, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return domain.User{}, 0, false
	}
	quizID, err := strconv.ParseInt(chi.URLParam(r, "quizID"), 10, 64)
	if err != nil || quizID <= 0 {
		http.Error(w, "invalid quiz id", http.StatusBadRequest)
		return domain.User{}, 0, false
	}
	return user, quizID, true
}

// parseSelections reads question_<id> form fields, or a JSON body keyed by question ID.
// Fields that do not name a question are ignored.
func parseSelections(r *http.Request) (domain.Selections, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errors.New("invalid json body")
		}
		return selectionsFromMap(req.Selections), nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, errors.New("invalid form body")
	}
	selections := make(domain.Selections)
	for field, values := range r.PostForm {
		if !strings.HasPrefix(field, domain.SelectionFieldPrefix) || len(values) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(field, domain.SelectionFieldPrefix), 10, 64)
		if err != nil {
			continue
		}
		selections[id] = values[0]
	}
	return selections, nil
}

func selectionsFromMap(raw map[string]string) domain.Selections {
	selections := make(domain.Selections, len(raw))
	for key, value := range raw {
		id, err := strconv.ParseInt(strings.TrimPrefix(key, domain.SelectionFieldPrefix), 10, 64)
		if err != nil {
			continue
		}
		selections[id] = value
	}
	return selections
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) (int, string) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrScoreNotFound):
		return http.StatusNotFound, err.Error()
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, verr.Error()
	case errors.Is(err, domain.ErrCommitFailed):
		return http.StatusInternalServerError, "your submission could not be recorded, please try again"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
