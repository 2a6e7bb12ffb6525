package complaints

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	svc  *Service
	repo Repo
	log  *zap.SugaredLogger
}

func NewHandler(svc *Service, repo Repo, log *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, repo: repo, log: log}
}

type complaintResponse struct {
	ID              int64     `json:"id"`
	CarID           int64     `json:"car_id"`
	Text            string    `json:"complaint_text"`
	Category        Category  `json:"predicted_category"`
	CategoryDisplay string    `json:"category_display"`
	Confidence      float64   `json:"confidence"`
	Crash           bool      `json:"crash"`
	Fire            bool      `json:"fire"`
	Critical        bool      `json:"is_critical"`
	Status          Status    `json:"status"`
	StatusDisplay   string    `json:"status_display"`
	ResolutionNotes string    `json:"resolution_notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toResponse(c *Complaint) complaintResponse {
	return complaintResponse{
		ID:              c.ID,
		CarID:           c.CarID,
		Text:            c.Text,
		Category:        c.Category,
		CategoryDisplay: c.Category.Display(),
		Confidence:      c.Confidence,
		Crash:           c.Crash,
		Fire:            c.Fire,
		Critical:        c.Critical(),
		Status:          c.Status,
		StatusDisplay:   c.Status.Display(),
		ResolutionNotes: c.ResolutionNotes,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CarID int64  `json:"car_id"`
		Text  string `json:"complaint_text"`
		Crash bool   `json:"crash"`
		Fire  bool   `json:"fire"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if payload.CarID == 0 {
		http.Error(w, "car_id is required", http.StatusBadRequest)
		return
	}

	c, err := h.svc.Submit(r.Context(), payload.CarID, payload.Text, payload.Crash, payload.Fire)
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Errorw("create complaint", "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) QuickSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CustomerName  string `json:"customer_name"`
		CustomerEmail string `json:"customer_email"`
		CustomerPhone string `json:"customer_phone"`
		LicensePlate  string `json:"license_plate"`
		CarMake       string `json:"car_make"`
		CarModel      string `json:"car_model"`
		CarYear       *int   `json:"car_year"`
		CarMileage    int    `json:"car_mileage"`
		Text          string `json:"complaint_text"`
		Crash         bool   `json:"crash"`
		Fire          bool   `json:"fire"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	c, err := h.svc.SubmitQuick(r.Context(), QuickSubmit{
		CustomerName:  payload.CustomerName,
		CustomerEmail: payload.CustomerEmail,
		CustomerPhone: payload.CustomerPhone,
		LicensePlate:  payload.LicensePlate,
		CarMake:       payload.CarMake,
		CarModel:      payload.CarModel,
		CarYear:       payload.CarYear,
		CarMileage:    payload.CarMileage,
		Text:          payload.Text,
		Crash:         payload.Crash,
		Fire:          payload.Fire,
	})
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Errorw("quick submit", "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	c, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "complaint not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Errorw("get complaint", "id", id, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		Category: Category(q.Get("category")),
	}
	if v := q.Get("car_id"); v != "" {
		f.CarID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("customer_id"); v != "" {
		f.CustomerID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := strings.ToLower(q.Get("critical")); v == "true" || v == "1" || v == "yes" {
		f.Critical = true
	}
	if f.Category != "" && !f.Category.Valid() {
		http.Error(w, "unknown category", http.StatusBadRequest)
		return
	}

	list, err := h.repo.List(r.Context(), f)
	if err != nil {
		h.log.Errorw("list complaints", "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	out := make([]complaintResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var payload struct {
		Status          Status `json:"status"`
		ResolutionNotes string `json:"resolution_notes"`
		Crash           *bool  `json:"crash"`
		Fire            *bool  `json:"fire"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	c, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "complaint not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Errorw("get complaint for update", "id", id, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	if payload.Status != "" {
		if !payload.Status.Valid() {
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}
		c.Status = payload.Status
	}
	if payload.ResolutionNotes != "" {
		c.ResolutionNotes = payload.ResolutionNotes
	}
	if payload.Crash != nil {
		c.Crash = *payload.Crash
	}
	if payload.Fire != nil {
		c.Fire = *payload.Fire
	}

	if err := h.repo.Update(r.Context(), c); err != nil {
		h.log.Errorw("update complaint", "id", id, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "complaint not found", http.StatusNotFound)
			return
		}
		h.log.Errorw("delete complaint", "id", id, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Statistics(r.Context())
	if err != nil {
		h.log.Errorw("complaint statistics", "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) Categories(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	out := make([]entry, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, entry{Value: string(c), Label: c.Display()})
	}
	respondJSON(w, http.StatusOK, out)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
