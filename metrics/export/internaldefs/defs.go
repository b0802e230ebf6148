package internaldefs

import (
	"github.com/messline/messauth"
)

const namespace = "messauth"

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   messauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   messauth.MetricID
	Name string
	Help string
}

var counterHelp = map[messauth.MetricID]string{
	messauth.MetricRegisterSuccess:             "Completed registrations.",
	messauth.MetricRegisterDuplicate:           "Registrations rejected for an existing email.",
	messauth.MetricRegisterCompensated:         "Registrations rolled back after a failed notification.",
	messauth.MetricVerifySuccess:               "Successful email verifications.",
	messauth.MetricVerifyFailure:               "Rejected verification codes.",
	messauth.MetricResendOTP:                   "Verification codes re-sent.",
	messauth.MetricLoginSuccess:                "Successful logins.",
	messauth.MetricLoginFailure:                "Logins rejected for bad credentials.",
	messauth.MetricLoginNotVerified:            "Logins rejected for unverified accounts.",
	messauth.MetricLoginDeactivated:            "Logins rejected for deactivated accounts.",
	messauth.MetricPasswordRehash:              "Password hashes upgraded at login.",
	messauth.MetricPasswordResetRequest:        "Password reset codes issued.",
	messauth.MetricPasswordResetConfirmSuccess: "Completed password resets.",
	messauth.MetricPasswordResetConfirmFailure: "Rejected password reset attempts.",
	messauth.MetricPasswordChangeSuccess:       "Completed password changes.",
	messauth.MetricPasswordChangeInvalidOld:    "Password changes rejected for a wrong current password.",
	messauth.MetricProfileUpdate:               "Profile updates.",
	messauth.MetricNotificationFailure:         "Failed notifier calls, including timeouts.",
	messauth.MetricAuthorizeSuccess:            "Requests admitted by the access guard.",
	messauth.MetricAuthorizeUnauthorized:       "Requests refused for a missing or invalid token.",
	messauth.MetricAuthorizeForbidden:          "Requests refused for account state or role.",
	messauth.MetricRateLimitHit:                "Requests refused by a rate limiter.",
}

// CounterDefs lists every counter in MetricID order.
var CounterDefs = buildCounterDefs()

// HistogramDefs lists every histogram.
var HistogramDefs = []HistogramDef{
	{ID: messauth.MetricAuthorizeLatency, Name: namespace + "_authorize_latency_seconds", Help: "Access guard latency."},
}

// AuditDropped is the series for events the audit dispatcher discarded.
const (
	AuditDroppedName = namespace + "_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped under backpressure."
)

func buildCounterDefs() []CounterDef {
	defs := make([]CounterDef, 0, len(counterHelp))
	for id := messauth.MetricID(0); id < messauth.MetricAuthorizeLatency; id++ {
		help, ok := counterHelp[id]
		if !ok {
			continue
		}
		defs = append(defs, CounterDef{ID: id, Name: namespace + "_" + id.String() + "_total", Help: help})
	}
	return defs
}

// UpperBounds returns the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	out := make([]float64, len(messauth.HistogramBounds))
	for i, d := range messauth.HistogramBounds {
		out[i] = d.Seconds()
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals. The
// last element is the total count.
func CumulativeBuckets(raw []uint64) []uint64 {
	out := make([]uint64, len(raw))
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}

// BoundLabels names every bucket, finite bounds first, for exporters that
// flatten a histogram into one series per bucket.
func BoundLabels() []string {
	out := make([]string, 0, len(messauth.HistogramBounds)+1)
	for _, d := range messauth.HistogramBounds {
		out = append(out, d.String())
	}
	return append(out, "inf")
}
