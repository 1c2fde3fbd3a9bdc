// Package ingestion runs the upload pipeline: validate, store the original,
// compress it, store the result and commit the metadata record.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/imagepress/imagepress/internal/domain"
	"github.com/imagepress/imagepress/internal/records"
	"github.com/imagepress/imagepress/internal/storage"
	"github.com/imagepress/imagepress/pkg/compress"
)

// Upload lifecycle states.
const (
	StateReceived       = "RECEIVED"
	StateValidated      = "VALIDATED"
	StateOriginalStored = "ORIGINAL_STORED"
	StateCompressed     = "COMPRESSED"
	StateCommitted      = "COMMITTED"
	StateFailed         = "FAILED"
)

const originalContentType = "application/octet-stream"

// Compressor turns original bytes into compressed bytes. *Pool satisfies it.
type Compressor interface {
	Compress(ctx context.Context, src []byte) ([]byte, error)
}

// Notifier is told about every committed record. Failures are logged and
// otherwise ignored.
type Notifier interface {
	ImageCompressed(ctx context.Context, rec domain.ImageRecord) error
}

// Service orchestrates the ingestion pipeline.
type Service struct {
	store      storage.ArtifactStore
	compressor Compressor
	repo       records.Repository
	notifier   Notifier
	log        *zap.Logger
	maxBytes   int64
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier registers a notifier for committed records.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMaxUploadBytes rejects inputs larger than n bytes. Zero disables the
// limit.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) { s.maxBytes = n }
}

// WithClock overrides the clock used to date storage keys.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new ingestion Service.
func NewService(store storage.ArtifactStore, compressor Compressor, repo records.Repository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		compressor: compressor,
		repo:       repo,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest stores raw as an original artifact, compresses it, stores the
// compressed artifact and commits a record describing both.
//
// Once started an ingestion runs to completion even if ctx is canceled.
// Failures after the original is stored leave the stored artifacts in place.
func (s *Service) Ingest(ctx context.Context, raw []byte, originalName string) (domain.ImageRecord, error) {
	ctx = context.WithoutCancel(ctx)
	start := s.now()
	log := s.log.With(zap.String("original_name", originalName), zap.Int("size", len(raw)))
	state := StateReceived
	advance := func(next string) {
		log.Debug("upload state", zap.String("from", state), zap.String("to", next))
		state = next
	}
	fail := func(err error) (domain.ImageRecord, error) {
		fields := []zap.Field{zap.String("state", state), zap.Error(err)}
		switch domain.KindOf(err) {
		case domain.KindValidation:
			log.Warn("upload rejected", fields...)
		default:
			log.Error("upload failed", fields...)
		}
		advance(StateFailed)
		return domain.ImageRecord{}, err
	}

	if len(raw) == 0 {
		return fail(domain.E(domain.KindValidation, "ingest.validate", domain.ErrEmptyInput))
	}
	if s.maxBytes > 0 && int64(len(raw)) > s.maxBytes {
		return fail(domain.E(domain.KindValidation, "ingest.validate",
			fmt.Errorf("%w: %d > %d bytes", domain.ErrTooLarge, len(raw), s.maxBytes)))
	}
	advance(StateValidated)

	originalKey := storage.NewKey(storage.KindOriginal, s.now(), "")
	if err := s.store.Put(ctx, originalKey, raw, originalContentType); err != nil {
		return fail(domain.E(domain.KindStorage, "ingest.store_original", err))
	}
	log = log.With(zap.String("original_path", originalKey))
	advance(StateOriginalStored)

	compressed, err := s.compressor.Compress(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrQueueTimeout) || errors.Is(err, ErrPoolClosed) {
			return fail(fmt.Errorf("ingest.compress: %w", err))
		}
		return fail(domain.E(domain.KindCompression, "ingest.compress", err))
	}
	if len(compressed) == 0 {
		return fail(domain.E(domain.KindCompression, "ingest.compress", compress.ErrEmptyOutput))
	}

	compressedKey := storage.NewKey(storage.KindCompressed, s.now(), compress.Extension)
	if err := s.store.Put(ctx, compressedKey, compressed, compress.ContentType); err != nil {
		return fail(domain.E(domain.KindStorage, "ingest.store_compressed", err))
	}
	log = log.With(zap.String("compressed_path", compressedKey))
	advance(StateCompressed)

	originalSize := int64(len(raw))
	compressedSize := int64(len(compressed))
	rec, err := s.repo.Create(ctx, domain.ImageRecord{
		OriginalName:     originalName,
		OriginalSize:     originalSize,
		OriginalPath:     originalKey,
		CompressedSize:   compressedSize,
		CompressedPath:   compressedKey,
		CompressionRatio: domain.CompressionRatio(originalSize, compressedSize),
	})
	if err != nil {
		return fail(domain.E(domain.KindStorage, "ingest.persist", err))
	}
	advance(StateCommitted)

	log.Info("image uploaded and compressed",
		zap.String("id", rec.ID),
		zap.String("format", compress.DetectFormat(raw)),
		zap.Int64("compressed_size", rec.CompressedSize),
		zap.Float64("compression_ratio", rec.CompressionRatio),
		zap.Duration("elapsed", s.now().Sub(start)),
	)

	if s.notifier != nil {
		if err := s.notifier.ImageCompressed(ctx, rec); err != nil {
			log.Warn("publish image event", zap.String("id", rec.ID), zap.Error(err))
		}
	}
	return rec, nil
}
