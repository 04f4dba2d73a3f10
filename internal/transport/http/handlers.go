// Package http exposes the player, presentation, and host surfaces as a
// JSON API plus a per-event websocket push channel.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"hardword-service/internal/app"
	"hardword-service/internal/domain"
	"github.com/julienschmidt/httprouter"
)

const sessionCookie = "admin_session"

// AdminAuth is the shared-secret session used by the host control surface.
type AdminAuth struct {
	Username      string
	Password      string
	SessionSecret string
}

// API wires the use-case services into routes.
type API struct {
	events       *app.EventService
	answers      *app.AnswerService
	participants *app.ParticipantService
	ws           *WSHandler
	auth         AdminAuth
}

func NewAPI(events *app.EventService, answers *app.AnswerService, participants *app.ParticipantService, ws *WSHandler, auth AdminAuth) *API {
	return &API{
		events:       events,
		answers:      answers,
		participants: participants,
		ws:           ws,
		auth:         auth,
	}
}

// Router builds the route table.
func (a *API) Router() *httprouter.Router {
	router := httprouter.New()

	router.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Write([]byte("ok"))
	})
	router.GET("/ws", a.ws.ServeWS)

	router.POST("/api/join", a.handleJoin)
	router.POST("/api/answer", a.handleSubmitAnswer)
	router.GET("/api/game/:eventId/current", a.handleCurrentQuestion)
	router.GET("/api/game/:eventId/leaderboard", a.handleLeaderboard)

	router.POST("/api/admin/login", a.handleLogin)
	router.DELETE("/api/admin/login", a.handleLogout)
	router.GET("/api/admin/events", a.requireAdmin(a.handleListEvents))
	router.POST("/api/admin/events", a.requireAdmin(a.handleCreateEvent))
	router.GET("/api/admin/events/:id", a.requireAdmin(a.handleEventDetail))
	router.PATCH("/api/admin/events/:id", a.requireAdmin(a.handleRenameEvent))
	router.DELETE("/api/admin/events/:id", a.requireAdmin(a.handleDeleteEvent))
	router.POST("/api/admin/events/:id/questions", a.requireAdmin(a.handleAddQuestion))
	router.DELETE("/api/admin/events/:id/questions", a.requireAdmin(a.handleDeleteQuestion))
	router.POST("/api/admin/events/:id/control", a.requireAdmin(a.handleControl))

	return router
}

// --- player surface ---

func (a *API) handleJoin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		EventCode string `json:"event_code"`
		Name      string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := a.participants.Join(r.Context(), req.EventCode, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleSubmitAnswer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		QuestionID    string `json:"question_id"`
		ParticipantID string `json:"participant_id"`
		Answer        string `json:"answer"`
		TimeTakenMS   int64  `json:"time_taken_ms"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := a.answers.Submit(r.Context(), req.QuestionID, req.ParticipantID, req.Answer, req.TimeTakenMS)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleCurrentQuestion(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	snapshot, err := a.participants.CurrentQuestion(r.Context(), p.ByName("eventId"))
	if err != nil {
		writeError(w, err)
		return
	}
	// Polling clients must always see fresh state.
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	writeJSON(w, http.StatusOK, snapshot)
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	entries, err := a.participants.Leaderboard(r.Context(), p.ByName("eventId"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

// --- host surface ---

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username != a.auth.Username || req.Password != a.auth.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    a.auth.SessionSecret,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   60 * 60 * 24,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleLogout(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) requireAdmin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value != a.auth.SessionSecret {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next(w, r, p)
	}
}

func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	events, err := a.events.ListEvents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (a *API) handleCreateEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	ev, err := a.events.CreateEvent(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": ev})
}

func (a *API) handleEventDetail(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	detail, err := a.events.EventDetail(r.Context(), p.ByName("id"), r.URL.Query().Get("answers_for"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) handleRenameEvent(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := a.events.RenameEvent(r.Context(), p.ByName("id"), req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleDeleteEvent(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := a.events.DeleteEvent(r.Context(), p.ByName("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleAddQuestion(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req struct {
		QuestionText string `json:"question_text"`
		Answer       string `json:"answer"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	q, err := a.events.AddQuestion(r.Context(), p.ByName("id"), req.QuestionText, req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"question": q})
}

func (a *API) handleDeleteQuestion(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req struct {
		QuestionID string `json:"question_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := a.events.DeleteQuestion(r.Context(), p.ByName("id"), req.QuestionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleControl(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req struct {
		Action string `json:"action"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	ev, err := a.events.Control(r.Context(), p.ByName("id"), domain.Action(req.Action))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":                true,
		"status":                 ev.Status,
		"current_question_index": ev.CurrentQuestionIndex,
	})
}

// --- helpers ---

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
}

// statusFor maps the domain error taxonomy onto HTTP. Inactive and stale
// transitions are normal rejected outcomes, reported like bad input rather
// than server faults.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrQuestionInactive),
		errors.Is(err, domain.ErrEventCompleted),
		errors.Is(err, domain.ErrAttemptsExhausted):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrAnswerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
