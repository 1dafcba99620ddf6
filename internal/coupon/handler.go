package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"

	"shop-api/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type calculationResponse struct {
	Result float64 `json:"result"`
}

func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("coupon_code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "coupon_code is required")
		return
	}

	totalAmount, err := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("total_amount")), 64)
	if err != nil || totalAmount < 0 {
		writeError(w, http.StatusBadRequest, "total_amount is invalid")
		return
	}

	result, err := h.service.Calculate(r.Context(), code, totalAmount)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "coupon not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to calculate coupon")
		return
	}

	writeJSON(w, http.StatusOK, calculationResponse{Result: result})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
