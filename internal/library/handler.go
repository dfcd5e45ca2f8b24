package library

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inamate/panels/backend-go/internal/auth"
)

const maxDocumentSize = 8 << 20

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type createRequest struct {
	Name   string `json:"name"`
	Sample bool   `json:"sample"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		auth.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	meta, err := h.service.Create(r.Context(), req.Name, userID, req.Sample)
	if err != nil {
		h.logger.Error("create comic failed", "error", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	auth.WriteJSON(w, http.StatusCreated, meta)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.Get(r.Context(), mux.Vars(r)["comicId"], auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, meta)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	metas, err := h.service.List(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, metas)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["comicId"], auth.UserIDFromContext(r.Context())); err != nil {
		h.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Document(r.Context(), mux.Vars(r)["comicId"], auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		auth.WriteError(w, http.StatusRequestEntityTooLarge, "document too large")
		return
	}

	doc, err := h.service.ReplaceDocument(r.Context(), mux.Vars(r)["comicId"], auth.UserIDFromContext(r.Context()), blob)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		auth.WriteError(w, http.StatusNotFound, "comic not found")
	case errors.Is(err, ErrForbidden):
		auth.WriteError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrMismatch), errors.Is(err, ErrInvalidDocument):
		auth.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("library request failed", "error", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
