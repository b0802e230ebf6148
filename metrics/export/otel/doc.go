// Package otel binds engine metrics to an OpenTelemetry Meter.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// flattens the access guard latency histogram into cumulative bucket gauges
// named messauth_authorize_latency_seconds_bucket_le_<bound>. A single
// callback reads the snapshot on every collection.
//
// The caller owns the MeterProvider. Close unregisters the callback.
package otel
