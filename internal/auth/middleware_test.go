package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(t *testing.T) (*Gate, *Codec, Account) {
	t.Helper()

	account := testAccount()
	directory := &fakeDirectory{byPhone: map[string]Account{account.PhoneNumber: account}}
	codec := testCodec()

	return NewGate(codec, directory, DefaultBypassRules("/api/v1")), codec, account
}

func okHandler(hit *bool, principal *Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		if p, ok := PrincipalFromContext(r.Context()); ok && principal != nil {
			*principal = p
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGate_BypassRules(t *testing.T) {
	t.Parallel()

	gate, _, _ := newTestGate(t)

	tests := []struct {
		name   string
		method string
		path   string
		bypass bool
	}{
		{name: "product listing is public", method: http.MethodGet, path: "/api/v1/products", bypass: true},
		{name: "product detail is public", method: http.MethodGet, path: "/api/v1/products/42", bypass: true},
		{name: "product create is protected", method: http.MethodPost, path: "/api/v1/products", bypass: false},
		{name: "login is public", method: http.MethodPost, path: "/api/v1/users/login", bypass: true},
		{name: "register is public", method: http.MethodPost, path: "/api/v1/users/register", bypass: true},
		{name: "refresh is public", method: http.MethodPost, path: "/api/v1/users/refreshToken", bypass: true},
		{name: "user details is protected", method: http.MethodPost, path: "/api/v1/users/details", bypass: false},
		{name: "health check is public", method: http.MethodGet, path: "/api/v1/health-check", bypass: true},
		{name: "coupon wildcard matches sub-path", method: http.MethodGet, path: "/api/v1/coupons/calculate", bypass: true},
		{name: "coupon wildcard matches base", method: http.MethodGet, path: "/api/v1/coupons", bypass: true},
		{name: "coupon write is protected", method: http.MethodPost, path: "/api/v1/coupons", bypass: false},
		{name: "category listing is public", method: http.MethodGet, path: "/api/v1/categories", bypass: true},
		{name: "category write is protected", method: http.MethodPost, path: "/api/v1/categories", bypass: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit := false
			handler := gate.Middleware(okHandler(&hit, nil))

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(tt.method, tt.path, nil))

			if tt.bypass {
				assert.True(t, hit, "request should bypass the gate")
				assert.Equal(t, http.StatusOK, recorder.Code)
			} else {
				assert.False(t, hit, "request should be stopped by the gate")
				assert.Equal(t, http.StatusUnauthorized, recorder.Code)
			}
		})
	}
}

func TestGate_ValidTokenSetsPrincipal(t *testing.T) {
	t.Parallel()

	gate, codec, account := newTestGate(t)

	token, err := codec.IssueAccess(account)
	require.NoError(t, err)

	hit := false
	var principal Principal
	handler := gate.Middleware(okHandler(&hit, &principal))

	request := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	request.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	require.True(t, hit)
	assert.Equal(t, account.ID, principal.ID)
	assert.Equal(t, account.PhoneNumber, principal.PhoneNumber)
	assert.Equal(t, account.Role, principal.Role)
}

func TestGate_RejectsBadAuthorization(t *testing.T) {
	t.Parallel()

	gate, codec, account := newTestGate(t)

	token, err := codec.IssueAccess(account)
	require.NoError(t, err)
	refresh, err := codec.IssueRefresh(account)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic " + token},
		{name: "no token", header: "Bearer "},
		{name: "tampered token", header: "Bearer " + token + "x"},
		{name: "refresh token is not an access token", header: "Bearer " + refresh},
		{name: "garbage", header: "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit := false
			handler := gate.Middleware(okHandler(&hit, nil))

			request := httptest.NewRequest(http.MethodDelete, "/api/v1/products/1", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.False(t, hit)
			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		})
	}
}

func TestGate_ExpiredTokenRejectedDistinctly(t *testing.T) {
	t.Parallel()

	gate, codec, account := newTestGate(t)

	token, err := codec.IssueAccess(account)
	require.NoError(t, err)

	codec.now = func() time.Time { return time.Now().Add(time.Hour) }

	hit := false
	handler := gate.Middleware(okHandler(&hit, nil))

	request := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	request.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.False(t, hit)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "expired")
}

func TestGate_UnknownSubjectRejected(t *testing.T) {
	t.Parallel()

	gate, codec, _ := newTestGate(t)

	stranger := Account{ID: "x", PhoneNumber: "+84999999999", Active: true}
	token, err := codec.IssueAccess(stranger)
	require.NoError(t, err)

	hit := false
	handler := gate.Middleware(okHandler(&hit, nil))

	request := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	request.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.False(t, hit)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	hit := false
	handler := RequireRole("admin", okHandler(&hit, nil))

	t.Run("matching role passes", func(t *testing.T) {
		hit = false
		request := httptest.NewRequest(http.MethodPost, "/api/v1/categories", nil)
		request = request.WithContext(WithPrincipal(request.Context(), Principal{Role: "ADMIN", Active: true}))

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.True(t, hit)
	})

	t.Run("wrong role rejected", func(t *testing.T) {
		hit = false
		request := httptest.NewRequest(http.MethodPost, "/api/v1/categories", nil)
		request = request.WithContext(WithPrincipal(request.Context(), Principal{Role: "user", Active: true}))

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.False(t, hit)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("no principal rejected", func(t *testing.T) {
		hit = false
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/categories", nil))

		assert.False(t, hit)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}
