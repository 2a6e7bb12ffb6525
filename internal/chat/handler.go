package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"garagist/internal/ai"
)

type Handler struct {
	svc *Service
	log *zap.SugaredLogger
}

func NewHandler(svc *Service, log *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

type sessionResponse struct {
	ID          int64      `json:"id"`
	PublicID    string     `json:"session_id"`
	ComplaintID int64      `json:"complaint_id"`
	Title       string     `json:"title"`
	Active      bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

type turnResponse struct {
	ID        int64     `json:"id"`
	Role      ai.Role   `json:"role"`
	Text      string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func toSessionResponse(s *Session) sessionResponse {
	return sessionResponse{
		ID:          s.ID,
		PublicID:    s.PublicID.String(),
		ComplaintID: s.ComplaintID,
		Title:       s.Title,
		Active:      s.Active,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		ClosedAt:    s.ClosedAt,
	}
}

func toTurnResponses(turns []Turn) []turnResponse {
	out := make([]turnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, turnResponse{ID: t.ID, Role: t.Role, Text: t.Text, CreatedAt: t.CreatedAt})
	}
	return out
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ComplaintID int64  `json:"complaint_id"`
		Title       string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if payload.ComplaintID == 0 {
		http.Error(w, "complaint_id is required", http.StatusBadRequest)
		return
	}

	sess, greeting, err := h.svc.CreateSession(r.Context(), payload.ComplaintID, payload.Title)
	if err != nil {
		h.log.Errorw("create chat session", "complaint_id", payload.ComplaintID, "err", err)
		http.Error(w, "could not create chat session", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, struct {
		Session  sessionResponse `json:"session"`
		Greeting turnResponse    `json:"greeting"`
	}{
		Session:  toSessionResponse(sess),
		Greeting: turnResponse{ID: greeting.ID, Role: greeting.Role, Text: greeting.Text, CreatedAt: greeting.CreatedAt},
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	sess, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "chat session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Errorw("get chat session", "id", id, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f SessionFilter
	if v := q.Get("complaint_id"); v != "" {
		f.ComplaintID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("customer_id"); v != "" {
		f.CustomerID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := strings.ToLower(q.Get("is_active")); v != "" {
		active := v == "true" || v == "1" || v == "yes"
		f.Active = &active
	}

	list, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.log.Errorw("list chat sessions", "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	out := make([]sessionResponse, 0, len(list))
	for i := range list {
		out = append(out, toSessionResponse(&list[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

// SendMessage streams the assistant reply as plain text chunks. With
// ?stream=false the full reply comes back as one JSON object instead.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	if strings.ToLower(r.URL.Query().Get("stream")) == "false" {
		h.sendOnce(w, r, id, payload.Message)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.sendOnce(w, r, id, payload.Message)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	headerSent := false
	sink := func(chunk string) error {
		if !headerSent {
			w.WriteHeader(http.StatusOK)
			headerSent = true
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	reply, err := h.svc.SendMessage(r.Context(), id, payload.Message, sink)
	if err != nil {
		if headerSent {
			// stream already underway; nothing more to send
			h.log.Warnw("chat stream aborted", "session_id", id, "err", err)
			return
		}
		h.writeSendError(w, id, err)
		return
	}
	if reply.Outcome == OutcomeFailed {
		h.log.Errorw("chat reply degraded", "session_id", id, "err", reply.Err)
	}
}

func (h *Handler) sendOnce(w http.ResponseWriter, r *http.Request, id int64, message string) {
	reply, err := h.svc.SendMessageOnce(r.Context(), id, message)
	if err != nil {
		h.writeSendError(w, id, err)
		return
	}

	respondJSON(w, http.StatusOK, struct {
		Message   string `json:"message"`
		Succeeded bool   `json:"succeeded"`
	}{Message: reply.Text, Succeeded: reply.Outcome == OutcomeSucceeded})
}

func (h *Handler) writeSendError(w http.ResponseWriter, id int64, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "chat session not found", http.StatusNotFound)
	case errors.Is(err, ErrSessionClosed):
		http.Error(w, "This chat session is closed", http.StatusBadRequest)
	default:
		h.log.Errorw("send chat message", "session_id", id, "err", err)
		http.Error(w, "could not process message", http.StatusInternalServerError)
	}
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var sess *Session
	if active {
		sess, err = h.svc.Reopen(r.Context(), id)
	} else {
		sess, err = h.svc.Close(r.Context(), id)
	}
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "chat session not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrSessionClosed):
		http.Error(w, "This chat session is closed", http.StatusBadRequest)
		return
	case errors.Is(err, ErrSessionActive):
		http.Error(w, "chat session is already active", http.StatusBadRequest)
		return
	case err != nil:
		h.log.Errorw("set chat session state", "id", id, "active", active, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	sess, turns, err := h.svc.History(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "chat session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Errorw("chat history", "id", id, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, struct {
		Session sessionResponse `json:"session"`
		Turns   []turnResponse  `json:"messages"`
	}{Session: toSessionResponse(sess), Turns: toTurnResponses(turns)})
}

// VehicleHistory returns the plain-text complaint history for a car, the
// same rendering the prompt composer consumes.
func (h *Handler) VehicleHistory(w http.ResponseWriter, r *http.Request) {
	carID, err := strconv.ParseInt(chi.URLParam(r, "carID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid car id", http.StatusBadRequest)
		return
	}

	text, err := h.svc.VehicleHistoryText(r.Context(), carID)
	if err != nil {
		h.log.Errorw("vehicle history", "car_id", carID, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
