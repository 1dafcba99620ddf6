package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/getsentry/sentry-go"
)

var phoneNumberRegex = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

const maxJSONBodyBytes = 1 << 20

// Message keys mirrored into the login/refresh response bodies. Clients
// localize these on their side.
const (
	msgLoginSuccess  = "user.login.login_successfully"
	msgLoginFailed   = "user.login.login_failed"
	msgRefreshOK     = "token.refresh_token.success"
	msgRefreshFailed = "token.refresh_token.failed"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
	RoleID      int64  `json:"role_id"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse is the shape shared by the login and refresh endpoints.
type LoginResponse struct {
	Message      string   `json:"message"`
	Token        string   `json:"token,omitempty"`
	TokenType    string   `json:"token_type,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	PhoneNumber  string   `json:"phone_number,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	ID           string   `json:"id,omitempty"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body loginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	body.PhoneNumber = strings.TrimSpace(body.PhoneNumber)
	if !phoneNumberRegex.MatchString(body.PhoneNumber) {
		writeError(w, http.StatusBadRequest, "phone number format is invalid")
		return
	}
	if body.Password == "" || len(body.Password) > 200 {
		writeError(w, http.StatusBadRequest, "password format is invalid")
		return
	}
	if body.RoleID == 0 {
		body.RoleID = 1
	}

	record, principal, err := h.service.Login(r.Context(), body.PhoneNumber, body.Password, body.RoleID, isMobileDevice(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, LoginResponse{Message: msgLoginFailed})
		case errors.Is(err, ErrUserLocked):
			writeError(w, http.StatusUnauthorized, "user is locked")
		default:
			sentry.CaptureException(err)
			writeJSON(w, http.StatusInternalServerError, LoginResponse{Message: msgLoginFailed})
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponseFor(msgLoginSuccess, record, principal))
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body refreshRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	record, principal, err := h.service.RefreshSession(r.Context(), body.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			writeError(w, http.StatusUnauthorized, "refresh token is expired")
		case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrNotFound):
			writeJSON(w, http.StatusBadRequest, LoginResponse{Message: msgRefreshFailed})
		default:
			sentry.CaptureException(err)
			writeJSON(w, http.StatusInternalServerError, LoginResponse{Message: msgRefreshFailed})
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponseFor(msgRefreshOK, record, principal))
}

func loginResponseFor(message string, record TokenRecord, principal Principal) LoginResponse {
	return LoginResponse{
		Message:      message,
		Token:        record.Token,
		TokenType:    record.TokenType,
		RefreshToken: record.RefreshToken,
		PhoneNumber:  principal.PhoneNumber,
		Roles:        []string{principal.Role},
		ID:           principal.ID,
	}
}

func isMobileDevice(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("User-Agent")), "mobile")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
