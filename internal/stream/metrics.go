package stream

import "time"

// Metrics receives one observation per served stream once its body has been
// fully consumed or abandoned. Implementations are injected by the caller;
// this package keeps no counters of its own.
type Metrics interface {
	StreamServed(status int, bytesSent int64, elapsed time.Duration)
}

type NopMetrics struct{}

func (NopMetrics) StreamServed(int, int64, time.Duration) {}
