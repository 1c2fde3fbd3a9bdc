//go:build !vips

package compress

// DefaultEngine is the engine New picks for an empty name.
const DefaultEngine = EngineStd

func newVips(options) (Engine, error) {
	return nil, ErrVipsUnavailable
}

// Shutdown is a no-op without libvips.
func Shutdown() {}
