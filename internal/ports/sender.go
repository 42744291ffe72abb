package ports

// FrameSender injects complete link-layer frames. Implementations must be
// safe for concurrent use.
type FrameSender interface {
	Send(frame []byte) error
}
