package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"shop-api/internal/auth"
)

const maxJSONBodyBytes = 1 << 20

// Store is the persistence surface the handlers need.
type Store interface {
	Create(ctx context.Context, userID string, input CreateInput, shippingDate time.Time) (Order, error)
	GetByID(ctx context.Context, id string) (Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id, status string) (Order, error)
	SoftDelete(ctx context.Context, id string) error
}

type Handler struct {
	store Store
	now   func() time.Time
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store, now: time.Now}
}

// Create places an order for the authenticated user; the cart is priced
// server-side from current product prices.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	var input CreateInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	input.Email = strings.TrimSpace(input.Email)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	if input.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if len(input.PhoneNumber) < 10 {
		writeError(w, http.StatusBadRequest, "phone number must be at least 10 characters")
		return
	}
	if len(input.CartItems) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}
	for _, item := range input.CartItems {
		if _, err := uuid.Parse(item.ProductID); err != nil || item.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, "cart item is invalid")
			return
		}
	}

	shippingDate, err := resolveShippingDate(strings.TrimSpace(input.ShippingDate), h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.store.Create(r.Context(), principal.ID, input, shippingDate)
	if err != nil {
		if errors.Is(err, ErrProductUnknown) {
			writeError(w, http.StatusBadRequest, "cart references an unknown product")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to place order")
		return
	}

	writeJSON(w, http.StatusCreated, o)
}

// ListMine returns the authenticated user's own orders.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.store.ListByUser(r.Context(), principal.ID)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// Get returns one order; only its owner or an admin may read it.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}

	if o.UserID != principal.ID && !strings.EqualFold(principal.Role, "admin") {
		// Hidden, not forbidden: a foreign order id reveals nothing.
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, o)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	var body statusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if !ValidStatus(body.Status) {
		writeError(w, http.StatusBadRequest, "status is invalid")
		return
	}

	o, err := h.store.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to update order")
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.store.SoftDelete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to delete order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
