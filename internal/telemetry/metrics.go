package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// NewHashDurationObserver returns a callback that records password hashing
// latency in milliseconds on an OTel histogram. bcrypt dominates auth request
// latency, so this is worth a dedicated instrument. Returns an error if the
// instrument cannot be created.
func NewHashDurationObserver(mp metric.MeterProvider) (func(time.Duration), error) {
	meter := mp.Meter("betmate.auth")
	hist, err := meter.Float64Histogram(
		"auth.password_hash.duration",
		metric.WithDescription("Duration of bcrypt hash and verify operations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return func(d time.Duration) {
		hist.Record(context.Background(), float64(d)/float64(time.Millisecond))
	}, nil
}
