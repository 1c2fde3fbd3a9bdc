// Package compress implements the single compression policy applied to every
// uploaded image: re-encode as JPEG at quality 80, progressive, with
// optimized Huffman tables where the codec supports it.
package compress

import (
	"context"
	"errors"
	"fmt"
)

// Fixed output policy.
const (
	Quality     = 80
	ContentType = "image/jpeg"
	Extension   = ".jpg"
)

// Engine names accepted by New.
const (
	EngineStd  = "std"
	EngineVips = "vips"
)

// DefaultMaxPixels bounds the decoded area of an input image, checked from
// the header before pixels are decoded.
const DefaultMaxPixels = 50_000_000

var (
	// ErrUndecodable is returned when the input is not an image the engine
	// can decode.
	ErrUndecodable = errors.New("undecodable image")
	// ErrTooManyPixels is returned, alongside ErrUndecodable, when an
	// image's width times height exceeds the configured maximum.
	ErrTooManyPixels = errors.New("image exceeds pixel limit")
	// ErrEmptyOutput is returned if an encoder produced no bytes.
	ErrEmptyOutput = errors.New("encoder produced no output")
	// ErrUnknownEngine is returned by New for unrecognized engine names.
	ErrUnknownEngine = errors.New("unknown compression engine")
	// ErrVipsUnavailable is returned by New when the binary was built
	// without the vips build tag.
	ErrVipsUnavailable = errors.New("vips engine not compiled in (build with -tags vips)")
)

// Engine turns original image bytes into compressed JPEG bytes.
// Implementations must be safe for concurrent use.
type Engine interface {
	Name() string
	Compress(ctx context.Context, src []byte) ([]byte, error)
}

type options struct {
	maxPixels int
}

// Option configures an engine.
type Option func(*options)

// WithMaxPixels sets the largest width*height an engine will decode.
// Non-positive values keep DefaultMaxPixels.
func WithMaxPixels(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPixels = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the engine registered under name. An empty name selects
// DefaultEngine, which is vips when built with -tags vips and std otherwise.
func New(name string, opts ...Option) (Engine, error) {
	if name == "" {
		name = DefaultEngine
	}
	switch name {
	case EngineStd:
		return NewStd(opts...), nil
	case EngineVips:
		return newVips(buildOptions(opts))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// FullPolicy reports whether e writes progressive JPEG with optimized
// Huffman tables. Only the vips engine does.
func FullPolicy(e Engine) bool {
	return e.Name() == EngineVips
}

func checkPixels(w, h, limit int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrUndecodable, w, h)
	}
	if int64(w)*int64(h) > int64(limit) {
		return fmt.Errorf("%w: %w: %dx%d is over %d pixels", ErrUndecodable, ErrTooManyPixels, w, h, limit)
	}
	return nil
}
