package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imagepress/imagepress/internal/domain"
)

// Memory is an in-process Repository. Records are lost on exit.
type Memory struct {
	mu      sync.RWMutex
	records []domain.ImageRecord
	byID    map[string]int
	closed  bool
	now     func() time.Time
}

// MemoryOption configures a Memory repository.
type MemoryOption func(*Memory)

// WithClock overrides the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory returns an empty in-memory repository.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		byID: make(map[string]int),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Create(ctx context.Context, rec domain.ImageRecord) (domain.ImageRecord, error) {
	const op = "records.Create"
	if err := ctx.Err(); err != nil {
		return domain.ImageRecord{}, domain.E(domain.KindStorage, op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ImageRecord{}, domain.E(domain.KindStorage, op, domain.ErrClosed)
	}

	rec.ID = uuid.NewString()
	rec.CreatedAt = m.now().UTC()
	m.byID[rec.ID] = len(m.records)
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *Memory) FindAll(ctx context.Context) ([]domain.ImageRecord, error) {
	const op = "records.FindAll"
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, domain.E(domain.KindStorage, op, domain.ErrClosed)
	}

	out := make([]domain.ImageRecord, len(m.records))
	copy(out, m.records)
	// Stable sort over insertion order keeps ties earliest-first.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) FindByID(ctx context.Context, id string) (domain.ImageRecord, error) {
	const op = "records.FindByID"
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return domain.ImageRecord{}, domain.E(domain.KindStorage, op, domain.ErrClosed)
	}

	i, ok := m.byID[id]
	if !ok {
		return domain.ImageRecord{}, domain.E(domain.KindNotFound, op, domain.ErrRecordNotFound)
	}
	return m.records[i], nil
}

func (m *Memory) Aggregate(ctx context.Context) (domain.Aggregate, error) {
	const op = "records.Aggregate"
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return domain.Aggregate{}, domain.E(domain.KindStorage, op, domain.ErrClosed)
	}

	var agg domain.Aggregate
	var ratios float64
	for _, r := range m.records {
		agg.Count++
		agg.SumOriginalSize += r.OriginalSize
		agg.SumCompressedSize += r.CompressedSize
		ratios += r.CompressionRatio
	}
	if agg.Count > 0 {
		agg.AvgCompressionRatio = ratios / float64(agg.Count)
	}
	return agg, nil
}

// Ping fails once the repository is closed.
func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return domain.ErrClosed
	}
	return nil
}

// Close marks the repository closed; later calls fail with a storage error.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

var _ Repository = (*Memory)(nil)
