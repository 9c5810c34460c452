package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/playground-ai/chat-playground/internal/upload"
	"github.com/playground-ai/chat-playground/pkg/logger"
	"github.com/playground-ai/chat-playground/pkg/metrics"
)

// FileHandler handles file ingestion for message attachments.
type FileHandler struct {
	uploads *upload.Registry
	maxSize int64
	logger  *logger.Logger
}

// NewFileHandler creates a new file handler.
func NewFileHandler(uploads *upload.Registry, maxSize int64, log *logger.Logger) *FileHandler {
	return &FileHandler{
		uploads: uploads,
		maxSize: maxSize,
		logger:  log,
	}
}

// fileDescriptor is the ingestion response: everything a client needs to
// render the pending attachment and later claim it onto a message.
type fileDescriptor struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Size    int64  `json:"size"`
	URL     string `json:"url"`
	Preview string `json:"preview,omitempty"`
}

// Upload handles POST /api/v1/files
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds maximum size")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	f := h.uploads.Put(header.Filename, header.Header.Get("Content-Type"), data)
	metrics.UploadsTotal.WithLabelValues(string(f.Type)).Inc()

	writeJSON(w, http.StatusCreated, fileDescriptor{
		ID:      f.ID,
		Name:    f.Name,
		Type:    string(f.Type),
		Size:    f.Size,
		URL:     "/api/v1/files/" + f.ID,
		Preview: f.Preview,
	})
}

// Get handles GET /api/v1/files/:id — dereferences an attachment locator.
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, ok := h.uploads.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "file not found or expired")
		return
	}

	contentType := f.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+f.Name+`"`)
	w.Write(f.Data)
}

// Delete handles DELETE /api/v1/files/:id — discards a pending file before
// it is attached to a sent message.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.uploads.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
