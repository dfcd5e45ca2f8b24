package asset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/inamate/panels/backend-go/internal/typeid"
)

const (
	maxUploadSize = 10 << 20 // 10MB
	maxDimension  = 8192
)

// imageTypes maps sniffed content types to stored file extensions.
var imageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
}

// UploadResponse is returned from the upload endpoint. Ref is the value to
// store in a panel's image path.
type UploadResponse struct {
	ID     string `json:"id"`
	Ref    string `json:"ref"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

// Handler serves asset upload and retrieval endpoints.
type Handler struct {
	dir    string // directory to store asset files
	logger *slog.Logger
}

// NewHandler creates a new asset handler that stores files in dir.
func NewHandler(dir string, logger *slog.Logger) *Handler {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir, logger: logger}
}

// Upload handles POST /assets/upload (multipart form with "file" field).
// PNG and JPEG files are stored as uploaded under a fresh asset id.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 10MB)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read upload", http.StatusBadRequest)
		return
	}

	ext, ok := imageTypes[http.DetectContentType(data)]
	if !ok {
		http.Error(w, "only PNG and JPEG images are supported", http.StatusBadRequest)
		return
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		http.Error(w, "invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}
	if cfg.Width > maxDimension || cfg.Height > maxDimension {
		http.Error(w, fmt.Sprintf("image larger than %dx%d", maxDimension, maxDimension), http.StatusBadRequest)
		return
	}

	assetID := typeid.NewAssetID()
	filename := assetID + "." + ext
	if err := h.write(filename, data); err != nil {
		h.logger.Error("store asset", "error", err, "file", filename)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}
	h.logger.Info("asset uploaded", "file", filename, "bytes", len(data), "width", cfg.Width, "height", cfg.Height)

	resp := UploadResponse{
		ID:     assetID,
		Ref:    filename,
		URL:    URLPrefix + filename,
		Width:  cfg.Width,
		Height: cfg.Height,
		Type:   ext,
		Name:   header.Filename,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// write stores data under name through a temp file and rename, so watchers
// never observe a partial image.
func (h *Handler) write(name string, data []byte) error {
	tmp, err := os.CreateTemp(h.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(h.dir, name)); err != nil {
		return fmt.Errorf("rename asset: %w", err)
	}
	return nil
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix(URLPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// Delete removes an asset file from disk.
func (h *Handler) Delete(ref string) error {
	name, ok := cleanRef(ref)
	if !ok {
		return fmt.Errorf("invalid asset ref: %s", ref)
	}
	if err := os.Remove(filepath.Join(h.dir, name)); err != nil {
		return fmt.Errorf("remove asset %s: %w", name, err)
	}
	return nil
}

// DeleteFile handles DELETE /assets/{file}.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["file"]
	err := h.Delete(URLPrefix + name)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, os.ErrNotExist):
		http.Error(w, "asset not found", http.StatusNotFound)
	default:
		h.logger.Warn("delete asset", "file", name, "error", err)
		http.Error(w, "invalid asset", http.StatusBadRequest)
	}
}
