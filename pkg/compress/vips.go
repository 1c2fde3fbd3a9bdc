//go:build vips

package compress

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	govips "github.com/davidbyttow/govips/v2/vips"
)

// DefaultEngine is the engine New picks for an empty name.
const DefaultEngine = EngineVips

var vipsStartup sync.Once

// Vips is the libvips-backed engine. It honours the full policy:
// quality 80, interlaced (progressive) output and optimized coding.
type Vips struct {
	maxPixels int
}

func newVips(o options) (Engine, error) {
	vipsStartup.Do(func() {
		govips.LoggingSettings(nil, govips.LogLevelWarning)
		govips.Startup(&govips.Config{
			ConcurrencyLevel: runtime.NumCPU(),
		})
	})
	return &Vips{maxPixels: o.maxPixels}, nil
}

func (v *Vips) Name() string { return EngineVips }

// Compress decodes src with libvips and exports it as progressive JPEG.
func (v *Vips) Compress(ctx context.Context, src []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref, err := govips.NewImageFromBuffer(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	defer ref.Close()

	// Loading is lazy, so the header is known before pixels are decoded.
	if err := checkPixels(ref.Width(), ref.Height(), v.maxPixels); err != nil {
		return nil, err
	}

	ep := govips.NewJpegExportParams()
	ep.Quality = Quality
	ep.Interlace = true
	ep.OptimizeCoding = true

	out, _, err := ref.ExportJpeg(ep)
	if err != nil {
		return nil, fmt.Errorf("vips export jpeg: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyOutput
	}
	return out, nil
}

// Shutdown releases libvips. Call once at process exit.
func Shutdown() {
	govips.Shutdown()
}

var _ Engine = (*Vips)(nil)
