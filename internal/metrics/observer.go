package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aliskhannn/prok/internal/model"
)

// Upload outcomes used as the "outcome" label.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Observer exports media pipeline metrics to Prometheus.
type Observer struct {
	uploads        *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	thumbnailLost  prometheus.Counter
}

// NewObserver registers the upload metrics on reg. A nil reg uses the
// default registerer.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &Observer{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prok",
			Subsystem: "media",
			Name:      "uploads_total",
			Help:      "Uploads handled by the media pipeline.",
		}, []string{"subfolder", "outcome"}),
		uploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "prok",
			Subsystem: "media",
			Name:      "upload_duration_seconds",
			Help:      "Time spent validating, staging and transcoding an upload.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"subfolder"}),
		thumbnailLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prok",
			Subsystem: "media",
			Name:      "thumbnail_failures_total",
			Help:      "Accepted uploads whose thumbnail could not be written.",
		}),
	}

	var err error
	if o.uploads, err = register(reg, o.uploads); err != nil {
		return nil, err
	}
	if o.uploadDuration, err = register(reg, o.uploadDuration); err != nil {
		return nil, err
	}
	if o.thumbnailLost, err = register(reg, o.thumbnailLost); err != nil {
		return nil, err
	}

	return o, nil
}

// register adds c to reg, reusing the collector already registered under
// the same name.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register media metrics: %w", err)
	}

	return c, nil
}

// RecordUpload tracks one Accept call.
func (o *Observer) RecordUpload(subfolder string, duration time.Duration, res model.UploadResult, err error) {
	if o == nil {
		return
	}

	o.uploadDuration.WithLabelValues(subfolder).Observe(duration.Seconds())

	switch {
	case err == nil:
		o.uploads.WithLabelValues(subfolder, OutcomeAccepted).Inc()
		if !res.ThumbnailWritten {
			o.thumbnailLost.Inc()
		}
	case model.IsValidation(err):
		o.uploads.WithLabelValues(subfolder, OutcomeRejected).Inc()
	default:
		o.uploads.WithLabelValues(subfolder, OutcomeFailed).Inc()
	}
}
