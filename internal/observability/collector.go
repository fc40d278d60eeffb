package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	streamsServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rainbow_streams_served_total",
			Help: "Total number of streaming responses by status code.",
		},
		[]string{"status"},
	)
	streamedBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rainbow_streamed_bytes_total",
			Help: "Total bytes delivered to streaming clients.",
		},
	)
	streamDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rainbow_stream_duration_seconds",
			Help:    "Wall-clock duration of streaming responses.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		},
	)
	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rainbow_uploads_total",
			Help: "Total media uploads by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	uploadedBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rainbow_uploaded_bytes_total",
			Help: "Total bytes accepted by the upload pipeline.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		streamsServedTotal,
		streamedBytesTotal,
		streamDurationSeconds,
		uploadsTotal,
		uploadedBytesTotal,
	)
}

// Collector is the prometheus-backed implementation of the metrics
// collaborators the stream and upload packages accept. Domain code never
// touches prometheus directly; it reports through the injected interface and
// tests substitute counting fakes.
type Collector struct{}

func (Collector) StreamServed(status int, bytesSent int64, elapsed time.Duration) {
	streamsServedTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	if bytesSent > 0 {
		streamedBytesTotal.Add(float64(bytesSent))
	}
	streamDurationSeconds.Observe(elapsed.Seconds())
}

func (Collector) UploadCompleted(kind string, bytesStored int64, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	uploadsTotal.WithLabelValues(kind, outcome).Inc()
	if bytesStored > 0 {
		uploadedBytesTotal.Add(float64(bytesStored))
	}
}
