// Package metrics holds the Prometheus collectors for the comment engine.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/memoria-social/backend/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	commentMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "memoria",
		Name:      "comment_mutations_total",
		Help:      "Comment tree mutations by operation and result.",
	}, []string{"operation", "result"})

	postSaveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "memoria",
		Name:      "post_save_duration_seconds",
		Help:      "Time spent persisting a whole post document.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"driver"})
)

// Result labels
const (
	ResultOK         = "ok"
	ResultInvalid    = "invalid"
	ResultNotFound   = "not_found"
	ResultForbidden  = "forbidden"
	ResultConflict   = "conflict"
	ResultStoreError = "store_error"
)

// ResultOf classifies an operation error into a result label. isConflict
// lets the caller say which store errors are version conflicts.
func ResultOf(err error, isConflict func(error) bool) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, models.ErrValidation):
		return ResultInvalid
	case errors.Is(err, models.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, models.ErrForbidden):
		return ResultForbidden
	case isConflict != nil && isConflict(err):
		return ResultConflict
	default:
		return ResultStoreError
	}
}

// ObserveMutation counts one comment mutation.
func ObserveMutation(operation, result string) {
	commentMutations.WithLabelValues(operation, result).Inc()
}

// ObserveSave records how long a post save took since start.
func ObserveSave(driver string, start time.Time) {
	postSaveDuration.WithLabelValues(driver).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
