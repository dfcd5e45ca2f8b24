package asset

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/panels/backend-go/internal/engine"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := NewResolver(dir, discard)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, dir
}

func TestResolver_Resolve(t *testing.T) {
	r, dir := newResolver(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hero.png"), []byte("x"), 0o644))

	url, err := r.Resolve("hero.png")
	require.NoError(t, err)
	assert.Equal(t, "/assets/hero.png", url)

	url, err = r.Resolve("/assets/hero.png")
	require.NoError(t, err)
	assert.Equal(t, "/assets/hero.png", url)

	url, err = r.Resolve("https://cdn.example/cat.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/cat.png", url)

	for _, ref := range []string{"missing.png", "../secret", "a/b.png", ""} {
		_, err := r.Resolve(ref)
		var nf *engine.ResourceNotFoundError
		assert.ErrorAs(t, err, &nf, ref)
	}
}

func TestResolver_PicksUpNewFiles(t *testing.T) {
	r, dir := newResolver(t)

	_, err := r.Resolve("late.png")
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.png"), []byte("x"), 0o644))
	assert.Eventually(t, func() bool {
		_, err := r.Resolve("late.png")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "late.png")))
	assert.Eventually(t, func() bool {
		_, err := r.Resolve("late.png")
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_Upload(t *testing.T) {
	dir := t.TempDir()
	h := NewHandler(dir, discard)

	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.Black)
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="tiny.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(pngBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/assets/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Width)
	assert.Equal(t, 2, resp.Height)
	assert.Equal(t, "/assets/"+resp.Ref, resp.URL)
	assert.FileExists(t, filepath.Join(dir, resp.Ref))

	require.NoError(t, h.Delete(resp.Ref))
	assert.NoFileExists(t, filepath.Join(dir, resp.Ref))
	assert.Error(t, h.Delete("../x"))
}

func TestHandler_DeleteFile(t *testing.T) {
	dir := t.TempDir()
	h := NewHandler(dir, discard)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "asset_x.png"), []byte("png"), 0o644))

	r := mux.NewRouter()
	r.HandleFunc("/assets/{file}", h.DeleteFile).Methods(http.MethodDelete)

	tests := []struct {
		path string
		want int
	}{
		{"/assets/asset_x.png", http.StatusNoContent},
		{"/assets/asset_x.png", http.StatusNotFound},
		{"/assets/a%5Cb", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, tt.path, nil))
		assert.Equal(t, tt.want, rec.Code, tt.path)
	}
}
