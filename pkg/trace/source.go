package trace

// Source captures network events for one page-load measurement run and
// exposes them as response records. How capture is implemented is up to the
// source; the aggregator only drives these three operations.
type Source interface {
	// StartCapture begins capturing network events.
	StartCapture() error
	// StopCapture ends capture.
	StopCapture() error
	// Records returns the responses observed between StartCapture and
	// StopCapture, in capture order.
	Records() ([]*Record, error)
}
