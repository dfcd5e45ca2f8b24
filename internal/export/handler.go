package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inamate/panels/backend-go/internal/auth"
	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/engine"
	"github.com/inamate/panels/backend-go/internal/library"
)

// DocumentSource loads a comic on behalf of a user.
type DocumentSource interface {
	Document(ctx context.Context, comicID, userID string) (*comic.Comic, error)
}

type Handler struct {
	docs     DocumentSource
	resolver engine.ResourceResolver
	logger   *slog.Logger
}

func NewHandler(docs DocumentSource, resolver engine.ResourceResolver, logger *slog.Logger) *Handler {
	return &Handler{docs: docs, resolver: resolver, logger: logger}
}

// ExportSVG handles GET /api/comics/{comicId}/pages/{pageId}/export.svg.
func (h *Handler) ExportSVG(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	doc, err := h.docs.Document(r.Context(), vars["comicId"], auth.UserIDFromContext(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, library.ErrNotFound):
			auth.WriteError(w, http.StatusNotFound, "comic not found")
		case errors.Is(err, library.ErrForbidden):
			auth.WriteError(w, http.StatusForbidden, "forbidden")
		default:
			h.logger.Error("export load failed", "comic", vars["comicId"], "error", err)
			auth.WriteError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	page, err := doc.Page(vars["pageId"])
	if err != nil {
		auth.WriteError(w, http.StatusNotFound, "page not found")
		return
	}

	frame := engine.Render(page, engine.NewView(), engine.Overlay{}, h.resolver)
	svg := CompileSVG(frame)

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.svg"`, fileName(doc.Name, page.Name)))
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}

// fileName builds a safe download name from the comic and page names.
func fileName(parts ...string) string {
	name := strings.Join(parts, "-")
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
	if strings.Trim(name, "-") == "" {
		return "page"
	}
	return name
}
