package comment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-api/internal/auth"
)

const (
	testProductID = "0198f3a2-0000-7000-8000-0000000000b1"
	testCommentID = "0198f3a2-0000-7000-8000-0000000000c2"
)

type fakeStore struct {
	byID         map[string]Comment
	knownProduct string
}

func (s *fakeStore) ListByProduct(ctx context.Context, productID, userID string) ([]Comment, error) {
	out := []Comment{}
	for _, c := range s.byID {
		if c.ProductID == productID && (userID == "" || c.UserID == userID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) Create(ctx context.Context, productID, userID, content string) (Comment, error) {
	if productID != s.knownProduct {
		return Comment{}, auth.ErrNotFound
	}
	c := Comment{ID: testCommentID, ProductID: productID, UserID: userID, Content: content}
	s.byID[c.ID] = c
	return c, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (Comment, error) {
	c, ok := s.byID[id]
	if !ok {
		return Comment{}, auth.ErrNotFound
	}
	return c, nil
}

func (s *fakeStore) UpdateContent(ctx context.Context, id, content string) (Comment, error) {
	c, ok := s.byID[id]
	if !ok {
		return Comment{}, auth.ErrNotFound
	}
	c.Content = content
	s.byID[id] = c
	return c, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func newTestHandler() (*Handler, *fakeStore) {
	store := &fakeStore{byID: map[string]Comment{}, knownProduct: testProductID}
	return NewHandler(store), store
}

func authedRequest(method, target, body string, principal auth.Principal) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return r.WithContext(auth.WithPrincipal(r.Context(), principal))
}

func TestCommentCreate_UsesPrincipalAsAuthor(t *testing.T) {
	t.Parallel()

	handler, store := newTestHandler()
	r := authedRequest(http.MethodPost, "/api/v1/comments",
		`{"product_id":"`+testProductID+`","content":"great tea"}`,
		auth.Principal{ID: "u1", Role: "user"})
	w := httptest.NewRecorder()
	handler.Create(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "u1", store.byID[testCommentID].UserID)
}

func TestCommentCreate_Rejections(t *testing.T) {
	t.Parallel()

	handler, _ := newTestHandler()
	principal := auth.Principal{ID: "u1", Role: "user"}

	cases := []struct {
		name string
		body string
		want int
	}{
		{"empty content", `{"product_id":"` + testProductID + `","content":"  "}`, http.StatusBadRequest},
		{"bad product id", `{"product_id":"not-a-uuid","content":"x"}`, http.StatusBadRequest},
		{"unknown product", `{"product_id":"` + testCommentID + `","content":"x"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := authedRequest(http.MethodPost, "/api/v1/comments", tc.body, principal)
			w := httptest.NewRecorder()
			handler.Create(w, r)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestCommentUpdate_OnlyAuthor(t *testing.T) {
	t.Parallel()

	handler, store := newTestHandler()
	store.byID[testCommentID] = Comment{ID: testCommentID, ProductID: testProductID, UserID: "author", Content: "old"}

	r := authedRequest(http.MethodPut, "/api/v1/comments/"+testCommentID,
		`{"content":"edited"}`, auth.Principal{ID: "intruder", Role: "user"})
	r.SetPathValue("id", testCommentID)
	w := httptest.NewRecorder()
	handler.Update(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "old", store.byID[testCommentID].Content)

	r = authedRequest(http.MethodPut, "/api/v1/comments/"+testCommentID,
		`{"content":"edited"}`, auth.Principal{ID: "author", Role: "user"})
	r.SetPathValue("id", testCommentID)
	w = httptest.NewRecorder()
	handler.Update(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "edited", store.byID[testCommentID].Content)
}

func TestCommentDelete_AuthorOrAdmin(t *testing.T) {
	t.Parallel()

	handler, store := newTestHandler()
	store.byID[testCommentID] = Comment{ID: testCommentID, ProductID: testProductID, UserID: "author"}

	r := authedRequest(http.MethodDelete, "/api/v1/comments/"+testCommentID, "",
		auth.Principal{ID: "intruder", Role: "user"})
	r.SetPathValue("id", testCommentID)
	w := httptest.NewRecorder()
	handler.Delete(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = authedRequest(http.MethodDelete, "/api/v1/comments/"+testCommentID, "",
		auth.Principal{ID: "admin-1", Role: "ADMIN"})
	r.SetPathValue("id", testCommentID)
	w = httptest.NewRecorder()
	handler.Delete(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, store.byID)
}
