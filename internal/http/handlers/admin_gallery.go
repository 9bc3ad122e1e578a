package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/sitecraft/internal/gallery"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

// GalleryHandler lists and manages example-site images.
type GalleryHandler struct {
	svc    *gallery.Service
	logger *logging.Logger
}

// GalleryResponse is returned by GET /api/gallery.
type GalleryResponse struct {
	Categories []gallery.Category `json:"categories"`
}

// NewGalleryHandler creates a gallery handler. A nil service serves an empty gallery.
func NewGalleryHandler(svc *gallery.Service, logger *logging.Logger) *GalleryHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &GalleryHandler{svc: svc, logger: logger}
}

// List returns examples grouped by category.
// GET /api/gallery
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeJSON(w, http.StatusOK, GalleryResponse{Categories: []gallery.Category{}})
		return
	}
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		h.logger.Error("failed to list gallery", "error", err)
		jsonError(w, msgUnavailable, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, GalleryResponse{Categories: cats})
}

// Upload stores a multipart image under its category.
// POST /api/admin/gallery (fields: category, file)
func (h *GalleryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		jsonError(w, "gallery disabled", http.StatusServiceUnavailable)
		return
	}
	limit := h.svc.MaxUpload()
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		jsonError(w, "upload too large or malformed", http.StatusRequestEntityTooLarge)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	item, err := h.svc.Upload(r.Context(), r.FormValue("category"), header.Filename,
		header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		switch {
		case errors.Is(err, gallery.ErrTooLarge):
			jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		case gallery.IsInvalid(err):
			jsonError(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("failed to upload gallery image", "error", err)
			jsonError(w, msgUnavailable, http.StatusServiceUnavailable)
		}
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Delete removes an example image.
// DELETE /api/admin/gallery/{category}/{name}
func (h *GalleryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		jsonError(w, "gallery disabled", http.StatusServiceUnavailable)
		return
	}
	err := h.svc.Remove(r.Context(), chi.URLParam(r, "category"), chi.URLParam(r, "name"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, gallery.ErrObjectNotFound):
		jsonError(w, "image not found", http.StatusNotFound)
	case gallery.IsInvalid(err):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("failed to delete gallery image", "error", err)
		jsonError(w, msgUnavailable, http.StatusServiceUnavailable)
	}
}
