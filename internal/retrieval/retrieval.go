// Package retrieval serves stored records and their compressed artifacts.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/imagepress/imagepress/internal/domain"
	"github.com/imagepress/imagepress/internal/records"
	"github.com/imagepress/imagepress/internal/storage"
	"github.com/imagepress/imagepress/pkg/compress"
)

// ErrEmptyArtifact reports a compressed artifact that exists but holds no
// bytes.
var ErrEmptyArtifact = errors.New("compressed artifact is empty")

// Service resolves records to downloadable artifacts.
type Service struct {
	repo  records.Repository
	store storage.ArtifactStore
	log   *zap.Logger
}

// NewService creates a retrieval Service.
func NewService(repo records.Repository, store storage.ArtifactStore, log *zap.Logger) *Service {
	return &Service{repo: repo, store: store, log: log}
}

// ListImages returns every record, newest first.
func (s *Service) ListImages(ctx context.Context) ([]domain.ImageRecord, error) {
	recs, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, domain.E(domain.KindStorage, "retrieval.list", err)
	}
	return recs, nil
}

// GetDownload returns the compressed artifact for the record with the given
// id. It never succeeds with empty content.
func (s *Service) GetDownload(ctx context.Context, id string) (domain.Download, error) {
	const op = "retrieval.download"

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return domain.Download{}, err
		}
		return domain.Download{}, domain.E(domain.KindStorage, op, err)
	}

	data, err := s.store.Get(ctx, rec.CompressedPath)
	switch {
	case errors.Is(err, storage.ErrNotExist):
		s.log.Warn("compressed artifact missing",
			zap.String("id", rec.ID), zap.String("compressed_path", rec.CompressedPath))
		return domain.Download{}, domain.E(domain.KindArtifactMissing, op, err)
	case err != nil:
		return domain.Download{}, domain.E(domain.KindStorage, op, err)
	case len(data) == 0:
		s.log.Warn("compressed artifact empty",
			zap.String("id", rec.ID), zap.String("compressed_path", rec.CompressedPath))
		return domain.Download{}, domain.E(domain.KindArtifactMissing, op,
			fmt.Errorf("%w: %s", ErrEmptyArtifact, rec.CompressedPath))
	}

	s.log.Info("image downloaded", zap.String("id", rec.ID), zap.Int("size", len(data)))
	return domain.Download{
		Bytes:       data,
		Filename:    "compressed-" + rec.OriginalName,
		ContentType: compress.ContentType,
	}, nil
}
