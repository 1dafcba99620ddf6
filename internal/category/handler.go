package category

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"shop-api/internal/auth"
	"shop-api/internal/event"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	repo *Repository
	bus  *event.Bus
}

func NewHandler(repo *Repository, bus *event.Bus) *Handler {
	return &Handler{repo: repo, bus: bus}
}

type categoryInput struct {
	Name string `json:"name"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.List(r.Context())
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	name, ok := parseName(w, r)
	if !ok {
		return
	}

	c, err := h.repo.Create(r.Context(), name)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	// Published only after the write committed, so subscribers never see a
	// category that was rolled back.
	h.publish(r.Context(), "category-created", c)
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	name, ok := parseName(w, r)
	if !ok {
		return
	}

	c, err := h.repo.Update(r.Context(), id, name)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to update category")
		return
	}

	h.publish(r.Context(), "category-updated", c)
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}

	h.publish(r.Context(), "category-deleted", map[string]string{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publish(ctx context.Context, key string, payload any) {
	h.bus.Publish(ctx, event.Event{Topic: event.TopicCategories, Key: key, Payload: payload})
}

func parseName(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input categoryInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return "", false
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || !utf8.ValidString(input.Name) || len(input.Name) > 150 {
		writeError(w, http.StatusBadRequest, "name is invalid")
		return "", false
	}

	return input.Name, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
