package ports

import (
	"context"
	"time"
)

// FrameCapture reads raw link-layer frames matching a BPF filter.
type FrameCapture interface {
	// Collect returns every matching frame seen before timeout elapses or
	// ctx is done.
	Collect(ctx context.Context, filter string, timeout time.Duration) ([][]byte, error)
	// Listen calls onFrame for every matching frame until ctx is done, the
	// capture fails, or onFrame returns an error.
	Listen(ctx context.Context, filter string, onFrame func(frame []byte) error) error
}
