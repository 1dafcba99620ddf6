package product

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"shop-api/internal/auth"
	"shop-api/internal/event"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	repo  *Repository
	cache *ListingCache
	bus   *event.Bus
}

func NewHandler(repo *Repository, cache *ListingCache, bus *event.Bus) *Handler {
	return &Handler{repo: repo, cache: cache, bus: bus}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := ListQuery{
		Keyword:    strings.TrimSpace(r.URL.Query().Get("keyword")),
		CategoryID: strings.TrimSpace(r.URL.Query().Get("category_id")),
		Page:       intQuery(r, "page", 1),
		Limit:      intQuery(r, "limit", 20),
	}

	if products, ok := h.cache.Get(query); ok {
		writeJSON(w, http.StatusOK, products)
		return
	}

	products, err := h.repo.List(r.Context(), query)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	h.cache.Set(query, products)
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	p, err := h.repo.Create(r.Context(), input)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.publish(r.Context(), "product-created", p)
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	p, err := h.repo.Update(r.Context(), id, input)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	h.publish(r.Context(), "product-updated", p)
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	h.publish(r.Context(), "product-deleted", map[string]string{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publish(ctx context.Context, key string, payload any) {
	h.bus.Publish(ctx, event.Event{Topic: event.TopicProducts, Key: key, Payload: payload})
}

func parseInput(w http.ResponseWriter, r *http.Request) (ProductInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input ProductInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return ProductInput{}, false
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.Thumbnail = strings.TrimSpace(input.Thumbnail)
	input.CategoryID = strings.TrimSpace(input.CategoryID)

	if input.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return ProductInput{}, false
	}
	if !utf8.ValidString(input.Name) || len(input.Name) > 350 {
		writeError(w, http.StatusBadRequest, "name is invalid")
		return ProductInput{}, false
	}
	if !utf8.ValidString(input.Description) || len(input.Description) > 5000 {
		writeError(w, http.StatusBadRequest, "description is invalid")
		return ProductInput{}, false
	}
	if input.Price < 0 {
		writeError(w, http.StatusBadRequest, "price must be >= 0")
		return ProductInput{}, false
	}
	if input.CategoryID != "" {
		if _, err := uuid.Parse(input.CategoryID); err != nil {
			writeError(w, http.StatusBadRequest, "category_id is invalid")
			return ProductInput{}, false
		}
	}

	return input, true
}

func intQuery(r *http.Request, name string, fallback int) int {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
