package compress

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Std is the pure-Go engine. It decodes JPEG, PNG, GIF, WebP, BMP and TIFF
// and writes baseline JPEG at the fixed quality. Transparent pixels are
// flattened onto white. image/jpeg has no
// progressive or optimized-Huffman mode; build with -tags vips for those.
type Std struct {
	maxPixels int
}

// NewStd returns the pure-Go engine.
func NewStd(opts ...Option) *Std {
	return &Std{maxPixels: buildOptions(opts).maxPixels}
}

func (s *Std) Name() string { return EngineStd }

// Compress decodes src and re-encodes it as JPEG.
func (s *Std) Compress(ctx context.Context, src []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if err := checkPixels(cfg.Width, cfg.Height, s.maxPixels); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if o, ok := img.(interface{ Opaque() bool }); !ok || !o.Opaque() {
		img = flatten(img)
	}

	var buf bytes.Buffer
	buf.Grow(len(src) / 2)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyOutput
	}
	return buf.Bytes(), nil
}

func flatten(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.White, image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst
}

var _ Engine = (*Std)(nil)
