package cars

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	repo Repo
	log  *zap.SugaredLogger
}

func NewHandler(repo Repo, log *zap.SugaredLogger) *Handler {
	return &Handler{repo: repo, log: log}
}

type carPayload struct {
	CustomerID   int64   `json:"customer_id"`
	LicensePlate string  `json:"license_plate"`
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	Year         *int    `json:"year"`
	VIN          *string `json:"vin"`
	Color        *string `json:"color"`
	Mileage      int     `json:"mileage"`
}

type carResponse struct {
	ID           int64     `json:"id"`
	CustomerID   int64     `json:"customer_id"`
	LicensePlate string    `json:"license_plate"`
	DisplayName  string    `json:"display_name"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         *int      `json:"year"`
	VIN          *string   `json:"vin"`
	Color        *string   `json:"color"`
	Mileage      int       `json:"mileage"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toResponse(c *Car) carResponse {
	return carResponse{
		ID:           c.ID,
		CustomerID:   c.CustomerID,
		LicensePlate: c.LicensePlate,
		DisplayName:  c.DisplayName(),
		Make:         c.Make,
		Model:        c.Model,
		Year:         c.Year,
		VIN:          c.VIN,
		Color:        c.Color,
		Mileage:      c.Mileage,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload carPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if payload.CustomerID == 0 {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}

	c := &Car{
		CustomerID:   payload.CustomerID,
		LicensePlate: NormalizePlate(payload.LicensePlate),
		Make:         payload.Make,
		Model:        payload.Model,
		Year:         payload.Year,
		VIN:          payload.VIN,
		Color:        payload.Color,
		Mileage:      payload.Mileage,
	}
	if err := c.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Create(r.Context(), c); err != nil {
		h.log.Errorw("create car", "err", err)
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
		http.Error(w, "car not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Errorw("get car", "id", id, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var customerID int64
	if v := r.URL.Query().Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid customer_id", http.StatusBadRequest)
			return
		}
		customerID = id
	}

	list, err := h.repo.List(r.Context(), customerID)
	if err != nil {
		h.log.Errorw("list cars", "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	out := make([]carResponse, 0, len(list))
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

	var payload carPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	c := &Car{
		ID:           id,
		CustomerID:   payload.CustomerID,
		LicensePlate: NormalizePlate(payload.LicensePlate),
		Make:         payload.Make,
		Model:        payload.Model,
		Year:         payload.Year,
		VIN:          payload.VIN,
		Color:        payload.Color,
		Mileage:      payload.Mileage,
	}
	if err := c.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Update(r.Context(), c); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "car not found", http.StatusNotFound)
			return
		}
		h.log.Errorw("update car", "id", id, "err", err)
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
			http.Error(w, "car not found", http.StatusNotFound)
			return
		}
		h.log.Errorw("delete car", "id", id, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
