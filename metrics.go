package messauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterDuplicate
	MetricRegisterCompensated
	MetricVerifySuccess
	MetricVerifyFailure
	MetricResendOTP
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginNotVerified
	MetricLoginDeactivated
	MetricPasswordRehash
	MetricPasswordResetRequest
	MetricPasswordResetConfirmSuccess
	MetricPasswordResetConfirmFailure
	MetricPasswordChangeSuccess
	MetricPasswordChangeInvalidOld
	MetricProfileUpdate
	MetricNotificationFailure
	MetricAuthorizeSuccess
	MetricAuthorizeUnauthorized
	MetricAuthorizeForbidden
	MetricRateLimitHit
	MetricAuthorizeLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricRegisterSuccess:             "register_success",
	MetricRegisterDuplicate:           "register_duplicate",
	MetricRegisterCompensated:         "register_compensated",
	MetricVerifySuccess:               "verify_success",
	MetricVerifyFailure:               "verify_failure",
	MetricResendOTP:                   "resend_otp",
	MetricLoginSuccess:                "login_success",
	MetricLoginFailure:                "login_failure",
	MetricLoginNotVerified:            "login_not_verified",
	MetricLoginDeactivated:            "login_deactivated",
	MetricPasswordRehash:              "password_rehash",
	MetricPasswordResetRequest:        "password_reset_request",
	MetricPasswordResetConfirmSuccess: "password_reset_confirm_success",
	MetricPasswordResetConfirmFailure: "password_reset_confirm_failure",
	MetricPasswordChangeSuccess:       "password_change_success",
	MetricPasswordChangeInvalidOld:    "password_change_invalid_old",
	MetricProfileUpdate:               "profile_update",
	MetricNotificationFailure:         "notification_failure",
	MetricAuthorizeSuccess:            "authorize_success",
	MetricAuthorizeUnauthorized:       "authorize_unauthorized",
	MetricAuthorizeForbidden:          "authorize_forbidden",
	MetricRateLimitHit:                "rate_limit_hit",
	MetricAuthorizeLatency:            "authorize_latency",
}

// String returns the snake_case name used by exporters.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// HistogramBounds are the upper bounds of the latency buckets. The last
// bucket is unbounded.
var HistogramBounds = []time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the authorize latency histogram.
// The zero value is disabled.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       [histBucketCount]uint64
}

// MetricsSnapshot is a point-in-time copy of every counter. Histogram
// buckets are per-bucket counts, not cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= MetricAuthorizeLatency {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d. Only MetricAuthorizeLatency carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricAuthorizeLatency {
		return
	}
	atomic.AddUint64(&m.latency[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}
	for id := MetricID(0); id < MetricAuthorizeLatency; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.latency[i])
		}
		s.Histograms[MetricAuthorizeLatency] = buckets
	}
	return s
}

// bucketIndex returns the first bucket whose bound is >= d, or the
// unbounded last bucket.
func bucketIndex(d time.Duration) int {
	for i, bound := range HistogramBounds {
		if d <= bound {
			return i
		}
	}
	return len(HistogramBounds)
}
