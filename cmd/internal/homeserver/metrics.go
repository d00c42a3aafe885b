package homeserver

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var roundTripSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "crabba",
	Subsystem: "homeserver",
	Name:      "round_trip_seconds",
	Help:      "Duration of HTTP round trips to the Matrix homeserver.",
	Buckets:   prometheus.DefBuckets,
}, []string{"endpoint"})

// observeRoundTrip records one homeserver HTTP round trip. The path is
// reduced to a fixed endpoint label so per-user admin paths do not
// explode label cardinality.
func observeRoundTrip(path string, d time.Duration) {
	roundTripSeconds.WithLabelValues(endpointLabel(path)).Observe(d.Seconds())
}

func endpointLabel(path string) string {
	if i := strings.Index(path, "/users/"); i >= 0 {
		return path[:i+len("/users")]
	}
	return path
}
