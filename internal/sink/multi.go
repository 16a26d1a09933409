package sink

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/resilience"
)

// Multi writes to several sinks in order. Each write gets its own deadline
// and is retried with backoff; failures of one sink do not stop the others.
type Multi struct {
	sinks   []Sink
	retry   resilience.RetryConfig
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type MultiOption func(*Multi)

func WithRetry(cfg resilience.RetryConfig) MultiOption {
	return func(m *Multi) { m.retry = cfg }
}

// WithTimeout bounds every single write attempt.
func WithTimeout(d time.Duration) MultiOption {
	return func(m *Multi) { m.timeout = d }
}

func WithMetrics(mt *metrics.Metrics) MultiOption {
	return func(m *Multi) { m.metrics = mt }
}

func NewMulti(sinks []Sink, opts ...MultiOption) *Multi {
	m := &Multi{
		sinks:   sinks,
		timeout: 5 * time.Minute,
		logger:  slog.Default().With("component", "sinks"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Multi) Name() string { return "multi" }

// Write returns the joined errors of every sink that failed.
func (m *Multi) Write(ctx context.Context, results []categorizer.Result) error {
	var errs []error
	for _, s := range m.sinks {
		err := resilience.Retry(ctx, "sink "+s.Name(), m.retry, func(ctx context.Context) error {
			err := resilience.WithTimeout(ctx, m.timeout, s.Name(), func(ctx context.Context) error {
				return s.Write(ctx, results)
			})
			if errors.Is(err, apperrors.ErrInvalidInput) {
				return resilience.Permanent(err)
			}
			return err
		})
		status := "ok"
		if err != nil {
			status = "error"
			m.logger.Error("sink failed", "sink", s.Name(), "error", err)
			errs = append(errs, err)
		}
		if m.metrics != nil {
			m.metrics.SinkWritesTotal.WithLabelValues(s.Name(), status).Inc()
		}
	}
	return errors.Join(errs...)
}
