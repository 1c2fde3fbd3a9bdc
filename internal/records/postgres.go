package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/imagepress/imagepress/internal/domain"
)

// Postgres is a Repository backed by the images table. The schema is
// created by platform.AutoMigrate.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle. Close closes the handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const selectColumns = `id, original_name, original_size, original_path,
	compressed_size, compressed_path, compression_ratio, created_at`

func (p *Postgres) Create(ctx context.Context, rec domain.ImageRecord) (domain.ImageRecord, error) {
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO images (original_name, original_size, original_path,
		                     compressed_size, compressed_path, compression_ratio)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		rec.OriginalName, rec.OriginalSize, rec.OriginalPath,
		rec.CompressedSize, rec.CompressedPath, rec.CompressionRatio,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return domain.ImageRecord{}, domain.E(domain.KindStorage, "records.Create", fmt.Errorf("insert image: %w", err))
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (p *Postgres) FindAll(ctx context.Context) ([]domain.ImageRecord, error) {
	const op = "records.FindAll"
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM images ORDER BY created_at DESC, seq ASC`)
	if err != nil {
		return nil, domain.E(domain.KindStorage, op, fmt.Errorf("query images: %w", err))
	}
	defer rows.Close()

	out := []domain.ImageRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, domain.E(domain.KindStorage, op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.E(domain.KindStorage, op, fmt.Errorf("iterate images: %w", err))
	}
	return out, nil
}

func (p *Postgres) FindByID(ctx context.Context, id string) (domain.ImageRecord, error) {
	const op = "records.FindByID"
	// The column is a uuid; anything that does not parse cannot match.
	if _, err := uuid.Parse(id); err != nil {
		return domain.ImageRecord{}, domain.E(domain.KindNotFound, op, domain.ErrRecordNotFound)
	}

	row := p.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM images WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ImageRecord{}, domain.E(domain.KindNotFound, op, domain.ErrRecordNotFound)
	}
	if err != nil {
		return domain.ImageRecord{}, domain.E(domain.KindStorage, op, err)
	}
	return rec, nil
}

func (p *Postgres) Aggregate(ctx context.Context) (domain.Aggregate, error) {
	var agg domain.Aggregate
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*)::BIGINT,
		        COALESCE(SUM(original_size), 0)::BIGINT,
		        COALESCE(SUM(compressed_size), 0)::BIGINT,
		        COALESCE(AVG(compression_ratio), 0)::DOUBLE PRECISION
		 FROM images`,
	).Scan(&agg.Count, &agg.SumOriginalSize, &agg.SumCompressedSize, &agg.AvgCompressionRatio)
	if err != nil {
		return domain.Aggregate{}, domain.E(domain.KindStorage, "records.Aggregate", fmt.Errorf("aggregate images: %w", err))
	}
	return agg, nil
}

// Ping reports whether the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.ImageRecord, error) {
	var rec domain.ImageRecord
	err := s.Scan(&rec.ID, &rec.OriginalName, &rec.OriginalSize, &rec.OriginalPath,
		&rec.CompressedSize, &rec.CompressedPath, &rec.CompressionRatio, &rec.CreatedAt)
	if err != nil {
		return domain.ImageRecord{}, fmt.Errorf("scan image: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

var _ Repository = (*Postgres)(nil)
