package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/imagepress/imagepress/internal/domain"
)

// uploadField is the multipart form field carrying the image.
const uploadField = "image"

// multipartOverhead allows for boundaries and part headers around the image.
const multipartOverhead = 1 << 20

type uploadResponse struct {
	Message string             `json:"message"`
	Image   domain.ImageRecord `json:"image"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			h.fail(w, r, domain.E(domain.KindValidation, "api.upload", domain.ErrTooLarge), "")
		default:
			writeError(w, http.StatusBadRequest, "No file uploaded")
		}
		return
	}
	defer file.Close()

	var src io.Reader = file
	if h.maxUploadBytes > 0 {
		// One byte past the limit is enough for ingestion to reject it.
		src = io.LimitReader(file, h.maxUploadBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	rec, err := h.ingester.Ingest(r.Context(), data, header.Filename)
	if err != nil {
		h.fail(w, r, err, "Error processing image")
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Message: "Image uploaded and compressed successfully",
		Image:   rec,
	})
}

func (h *Handler) handleListImages(w http.ResponseWriter, r *http.Request) {
	recs, err := h.images.ListImages(r.Context())
	if err != nil {
		h.fail(w, r, err, "Error fetching images")
		return
	}
	if recs == nil {
		recs = []domain.ImageRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	dl, err := h.images.GetDownload(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err, "Error downloading image")
		return
	}

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Bytes)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.Bytes)
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.GetAnalytics(r.Context())
	if err != nil {
		h.fail(w, r, err, "Error fetching analytics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
