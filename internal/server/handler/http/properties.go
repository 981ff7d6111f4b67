package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/ReinsDesk/internal/middleware"
	"github.com/atinyakov/ReinsDesk/internal/models"
	"github.com/atinyakov/ReinsDesk/internal/service"
)

const maxUploadMemory = 32 << 20

// PropertyService defines the listing operations required by the HTTP
// handlers.
type PropertyService interface {
	List(ctx context.Context, userID string, offset, limit int) (models.PropertyPage, error)
	Get(ctx context.Context, userID, id string) (models.Property, error)
	Delete(ctx context.Context, userID, id string) error
	Create(ctx context.Context, userID string, fields map[string]string, files []service.UploadedFile) (models.Property, error)
	File(ctx context.Context, rel string) ([]byte, error)
}

// PropertyHandler handles the listing endpoints and file downloads.
type PropertyHandler struct {
	Properties PropertyService
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil && n >= 0
}

// List handles GET /api/properties?offset=&limit=.
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, ok := queryInt(r, "limit", 20)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	page, err := h.Properties.List(r.Context(), middleware.GetUserIDFromContext(r.Context()), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/properties/{id}.
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Properties.Get(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.Property{"property": p})
}

// Delete handles DELETE /api/properties/{id}.
func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Properties.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Create handles the multipart POST /api/properties.
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	fields := make(map[string]string, len(r.MultipartForm.Value))
	for k, vs := range r.MultipartForm.Value {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}

	var files []service.UploadedFile
	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable file "+fh.Filename)
				return
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable file "+fh.Filename)
				return
			}
			files = append(files, service.UploadedFile{Field: field, Filename: fh.Filename, Data: data})
		}
	}

	p, err := h.Properties.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), fields, files)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save property")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// File handles GET /files/*.
func (h *PropertyHandler) File(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	data, err := h.Properties.File(r.Context(), rel)
	if err != nil {
		h.fail(w, err)
		return
	}
	ct := mime.TypeByExtension(path.Ext(rel))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (h *PropertyHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrPropertyNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}
