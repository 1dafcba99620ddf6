package comment

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
)

const (
	maxJSONBodyBytes = 1 << 20
	maxContentLength = 2000
)

type Store interface {
	ListByProduct(ctx context.Context, productID, userID string) ([]Comment, error)
	Create(ctx context.Context, productID, userID, content string) (Comment, error)
	GetByID(ctx context.Context, id string) (Comment, error)
	UpdateContent(ctx context.Context, id, content string) (Comment, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(r.URL.Query().Get("product_id"))
	if _, err := uuid.Parse(productID); err != nil {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID != "" {
		if _, err := uuid.Parse(userID); err != nil {
			writeError(w, http.StatusBadRequest, "user_id is invalid")
			return
		}
	}

	comments, err := h.store.ListByProduct(r.Context(), productID, userID)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list comments")
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

type commentRequest struct {
	ProductID string `json:"product_id"`
	Content   string `json:"content"`
}

// Create posts a comment as the authenticated user; there is no way to
// comment under another user's identity.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, ok := parseComment(w, r)
	if !ok {
		return
	}
	if _, err := uuid.Parse(body.ProductID); err != nil {
		writeError(w, http.StatusBadRequest, "product_id is invalid")
		return
	}

	c, err := h.store.Create(r.Context(), body.ProductID, principal.ID, body.Content)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "product not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create comment")
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// Update edits a comment's content; only the author may edit.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	body, ok := parseComment(w, r)
	if !ok {
		return
	}

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "comment not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to load comment")
		return
	}
	if existing.UserID != principal.ID {
		writeError(w, http.StatusBadRequest, "you cannot update another user's comment")
		return
	}

	c, err := h.store.UpdateContent(r.Context(), id, body.Content)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to update comment")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// Delete removes a comment; the author or an admin may delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "comment not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to load comment")
		return
	}
	if existing.UserID != principal.ID && !strings.EqualFold(principal.Role, "admin") {
		writeError(w, http.StatusBadRequest, "you cannot delete another user's comment")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "comment not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to delete comment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseComment(w http.ResponseWriter, r *http.Request) (commentRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body commentRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return commentRequest{}, false
	}

	body.Content = strings.TrimSpace(body.Content)
	if body.Content == "" || !utf8.ValidString(body.Content) || len(body.Content) > maxContentLength {
		writeError(w, http.StatusBadRequest, "content is invalid")
		return commentRequest{}, false
	}

	return body, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
