package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	middleware "github.com/insightlabs-ai/docinsight/internal/api/middlewares"
	"github.com/insightlabs-ai/docinsight/internal/services"
)

type DocumentHandler struct {
	docs     *services.DocumentService
	ingestor *services.IngestService
}

func NewDocumentHandler(docs *services.DocumentService, ing *services.IngestService) *DocumentHandler {
	return &DocumentHandler{docs: docs, ingestor: ing}
}

// UploadDocuments accepts one or more files, stores them, and queues the
// whole set as a single ingestion batch.
func (h *DocumentHandler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, "no files provided", http.StatusBadRequest)
		return
	}

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var uploads []interface{}
	var batch []string
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			http.Error(w, "invalid file", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			http.Error(w, "read file", http.StatusBadRequest)
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		up, err := h.docs.UploadAndCreate(uploadCtx, userID, filepath.Base(header.Filename), contentType, data)
		if err != nil {
			log.Printf("upload failed for %s: %v", header.Filename, err)
			http.Error(w, fmt.Sprintf("upload failed: %v", err), http.StatusInternalServerError)
			return
		}
		uploads = append(uploads, up)
		batch = append(batch, up.ID)
	}

	h.ingestor.Enqueue(batch)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploads)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	uploads, err := h.docs.ListByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploads)
}

// GetPageImage renders one page of an upload as PNG for the citation view.
func (h *DocumentHandler) GetPageImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	uploadID := chi.URLParam(r, "id")
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 1 {
		http.Error(w, "invalid page number", http.StatusBadRequest)
		return
	}

	up, err := h.docs.Get(r.Context(), uploadID)
	if err != nil || up == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if up.UserID != userID {
		http.Error(w, "you are not authorized to access this document", http.StatusUnauthorized)
		return
	}

	img, err := h.docs.PageImage(r.Context(), uploadID, page)
	if err != nil {
		http.Error(w, fmt.Sprintf("render page: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(img)
}
