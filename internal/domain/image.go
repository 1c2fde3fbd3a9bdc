// Package domain holds the plain data types shared by the imagepress
// components and the error taxonomy they report.
package domain

import "time"

// ImageRecord is the metadata persisted for one successful upload.
// Records are immutable once created.
type ImageRecord struct {
	ID               string    `json:"id"`
	OriginalName     string    `json:"originalName"`
	OriginalSize     int64     `json:"originalSize"`
	OriginalPath     string    `json:"originalPath"`
	CompressedSize   int64     `json:"compressedSize"`
	CompressedPath   string    `json:"compressedPath"`
	CompressionRatio float64   `json:"compressionRatio"`
	CreatedAt        time.Time `json:"createdAt"`
}

// CompressionRatio returns the percentage of bytes saved going from
// originalSize to compressedSize. The result is negative when the
// compressed artifact is larger. An originalSize of zero yields 0.
func CompressionRatio(originalSize, compressedSize int64) float64 {
	if originalSize == 0 {
		return 0
	}
	return (float64(originalSize) - float64(compressedSize)) / float64(originalSize) * 100
}

// Aggregate is the raw summary a record repository computes over all records.
type Aggregate struct {
	Count               int64
	SumOriginalSize     int64
	SumCompressedSize   int64
	AvgCompressionRatio float64
}

// Analytics is the client-facing summary of all processed images.
type Analytics struct {
	TotalImages         int64   `json:"totalImages"`
	TotalOriginalSize   int64   `json:"totalOriginalSize"`
	TotalCompressedSize int64   `json:"totalCompressedSize"`
	AverageCompression  float64 `json:"averageCompression"`
}

// Download is a compressed artifact ready to be sent to a client.
type Download struct {
	Bytes       []byte
	Filename    string
	ContentType string
}
