package push

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type dispatchMetrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	metricsInstance *dispatchMetrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func getMetrics() *dispatchMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &dispatchMetrics{
			total: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "treebites_push_dispatch_total",
				Help: "Push sends by provider and outcome",
			}, []string{"provider", "outcome"}),
			duration: promauto.With(defaultRegistry).NewHistogramVec(prometheus.HistogramOpts{
				Name:    "treebites_push_dispatch_duration_seconds",
				Help:    "Time taken by a single push send",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			}, []string{"provider"}),
		}
	})
	return metricsInstance
}

// resetMetricsForTesting swaps in a fresh registry and returns it.
func resetMetricsForTesting() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	defaultRegistry = reg
	metricsInstance = nil
	metricsOnce = sync.Once{}
	return reg
}

func outcomeLabel(res *Result, err error) string {
	if err == nil {
		return string(res.Outcome)
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return string(appErr.Type)
	}
	return "error"
}

func instrumented(ctx context.Context, p Provider, payload types.NotificationPayload) (*Result, error) {
	m := getMetrics()
	start := time.Now()
	res, err := p.Send(ctx, payload)
	m.duration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	m.total.WithLabelValues(p.Name(), outcomeLabel(res, err)).Inc()
	return res, err
}
