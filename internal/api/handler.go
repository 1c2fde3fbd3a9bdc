// Package api implements the imagepress REST API: upload, listing, download
// and analytics over the core services.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/imagepress/imagepress/internal/domain"
	"github.com/imagepress/imagepress/internal/ingestion"
)

// Ingester accepts uploads.
type Ingester interface {
	Ingest(ctx context.Context, raw []byte, originalName string) (domain.ImageRecord, error)
}

// ImageReader lists records and serves compressed artifacts.
type ImageReader interface {
	ListImages(ctx context.Context) ([]domain.ImageRecord, error)
	GetDownload(ctx context.Context, id string) (domain.Download, error)
}

// AnalyticsReader reports aggregate statistics.
type AnalyticsReader interface {
	GetAnalytics(ctx context.Context) (domain.Analytics, error)
}

// Pinger reports backend reachability for the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler is the top-level API handler.
type Handler struct {
	ingester       Ingester
	images         ImageReader
	analytics      AnalyticsReader
	health         Pinger
	log            *zap.Logger
	maxUploadBytes int64
}

// NewHandler creates a new API handler. maxUploadBytes bounds the image part
// of an upload; zero disables the bound.
func NewHandler(ingester Ingester, images ImageReader, analytics AnalyticsReader, health Pinger, log *zap.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		ingester:       ingester,
		images:         images,
		analytics:      analytics,
		health:         health,
		log:            log,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/images", h.handleUpload)
	mux.HandleFunc("GET /api/images", h.handleListImages)
	mux.HandleFunc("GET /api/images/{id}/download", h.handleDownload)
	mux.HandleFunc("GET /api/analytics", h.handleAnalytics)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// fail maps err to a status code and a client-safe message. fallback is
// used for failures the client cannot act on.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, msg := http.StatusInternalServerError, fallback
	switch {
	case errors.Is(err, ingestion.ErrQueueTimeout), errors.Is(err, ingestion.ErrPoolClosed):
		status, msg = http.StatusServiceUnavailable, "Server is busy, please retry"
	case errors.Is(err, domain.ErrEmptyInput):
		status, msg = http.StatusBadRequest, "Uploaded file is empty"
	case errors.Is(err, domain.ErrTooLarge):
		status, msg = http.StatusBadRequest, "Uploaded file is too large"
	default:
		switch domain.KindOf(err) {
		case domain.KindValidation:
			status, msg = http.StatusBadRequest, "Invalid upload"
		case domain.KindNotFound:
			status, msg = http.StatusNotFound, "Image not found"
		}
	}

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", fields...)
	} else {
		h.log.Info("request rejected", fields...)
	}
	writeError(w, status, msg)
}
