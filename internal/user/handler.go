package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/getsentry/sentry-go"

	"shop-api/internal/auth"
)

var phoneNumberRegex = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input RegisterInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	input.FullName = strings.TrimSpace(input.FullName)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	input.Address = strings.TrimSpace(input.Address)

	if !phoneNumberRegex.MatchString(input.PhoneNumber) {
		writeError(w, http.StatusBadRequest, "phone number format is invalid")
		return
	}
	if input.RoleID == 0 {
		input.RoleID = 1
	}

	social := input.FacebookAccountID > 0 || input.GoogleAccountID > 0
	if !social {
		if len(input.Password) < 8 || len(input.Password) > 200 {
			writeError(w, http.StatusBadRequest, "password format is invalid")
			return
		}
		if input.Password != input.RetypePassword {
			writeError(w, http.StatusBadRequest, "passwords do not match")
			return
		}
	}

	u, err := h.repo.Create(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, ErrPhoneNumberTaken):
			writeError(w, http.StatusBadRequest, "phone number already exists")
		case errors.Is(err, ErrRoleNotFound):
			writeError(w, http.StatusBadRequest, "role not found")
		case errors.Is(err, ErrAdminSignup):
			writeError(w, http.StatusBadRequest, "cannot register an admin account")
		default:
			sentry.CaptureException(err)
			writeError(w, http.StatusInternalServerError, "failed to register user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

// Details returns the profile behind the request's bearer token. The gate
// has already authenticated the principal by the time this runs.
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.repo.FindByID(r.Context(), principal.ID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
