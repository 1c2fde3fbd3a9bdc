// Package analytics summarises the persisted image records.
package analytics

import (
	"context"

	"github.com/imagepress/imagepress/internal/domain"
)

// Aggregator computes totals over every record. records.Repository
// satisfies it.
type Aggregator interface {
	Aggregate(ctx context.Context) (domain.Aggregate, error)
}

// Service answers analytics queries straight from the repository.
type Service struct {
	agg Aggregator
}

// NewService creates an analytics Service.
func NewService(agg Aggregator) *Service {
	return &Service{agg: agg}
}

// GetAnalytics returns totals over all records. An empty store yields all
// zeros.
func (s *Service) GetAnalytics(ctx context.Context) (domain.Analytics, error) {
	a, err := s.agg.Aggregate(ctx)
	if err != nil {
		return domain.Analytics{}, domain.E(domain.KindStorage, "analytics.get", err)
	}
	return domain.Analytics{
		TotalImages:         a.Count,
		TotalOriginalSize:   a.SumOriginalSize,
		TotalCompressedSize: a.SumCompressedSize,
		AverageCompression:  a.AvgCompressionRatio,
	}, nil
}
