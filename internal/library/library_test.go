package library

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/panels/backend-go/internal/auth"
	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/store"
)

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory())

	meta, err := s.Create(ctx, "Issue 1", "user_a", true)
	require.NoError(t, err)
	assert.Equal(t, "Issue 1", meta.Name)
	assert.Equal(t, 1, meta.Version)

	_, err = s.Get(ctx, meta.ID, "user_b")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.Get(ctx, "comic_missing", "user_a")
	assert.ErrorIs(t, err, ErrNotFound)

	doc, err := s.Document(ctx, meta.ID, "user_a")
	require.NoError(t, err)
	assert.Equal(t, "Issue 1", doc.Name)
	assert.NotEmpty(t, doc.Pages[0].Panels)

	doc.Name = "Renamed"
	blob, err := comic.Encode(doc)
	require.NoError(t, err)
	_, err = s.ReplaceDocument(ctx, meta.ID, "user_a", blob)
	require.NoError(t, err)

	meta, err = s.Get(ctx, meta.ID, "user_a")
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Version)

	other := comic.NewComic("Other")
	blob, err = comic.Encode(other)
	require.NoError(t, err)
	_, err = s.ReplaceDocument(ctx, meta.ID, "user_a", blob)
	assert.ErrorIs(t, err, ErrMismatch)

	_, err = s.ReplaceDocument(ctx, meta.ID, "user_a", []byte(`{"pages":[{"layers":[],"panels":[{"id":"p","layerId":"nope","points":[]}]}]}`))
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.ErrorIs(t, err, comic.ErrDanglingLayer)

	list, err := s.List(ctx, "user_a")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, s.Delete(ctx, meta.ID, "user_b"), ErrForbidden)
	require.NoError(t, s.Delete(ctx, meta.ID, "user_a"))
	_, err = s.Get(ctx, meta.ID, "user_a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandler_Routes(t *testing.T) {
	h := NewHandler(NewService(store.NewMemory()), slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := mux.NewRouter()
	r.HandleFunc("/api/comics", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/comics", h.List).Methods(http.MethodGet)
	r.HandleFunc("/api/comics/{comicId}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/comics/{comicId}/document", h.GetDocument).Methods(http.MethodGet)
	r.HandleFunc("/api/comics/{comicId}/document", h.PutDocument).Methods(http.MethodPut)

	do := func(method, path, user string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewReader(body))
		req = req.WithContext(auth.WithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/comics", "user_a", []byte(`{"name":"Issue 1"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	var meta store.Meta
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&meta))

	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/api/comics", "user_a", []byte(`{}`)).Code)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/comics/"+meta.ID, "user_a", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(http.MethodGet, "/api/comics/"+meta.ID, "user_b", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/api/comics/comic_x", "user_a", nil).Code)

	rec = do(http.MethodGet, "/api/comics/"+meta.ID+"/document", "user_a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc, err := comic.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, meta.ID, doc.ID)

	assert.Equal(t, http.StatusOK, do(http.MethodPut, "/api/comics/"+meta.ID+"/document", "user_a", rec.Body.Bytes()).Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPut, "/api/comics/"+meta.ID+"/document", "user_a", []byte(`{`)).Code)

	rec = do(http.MethodGet, "/api/comics", "user_a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []store.Meta
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 1)
}
