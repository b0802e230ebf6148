// Package prometheus exports engine metrics through client_golang.
//
// [Collector] reads the engine snapshot on every scrape. Counters are named
// messauth_*_total; the access guard latency histogram is
// messauth_authorize_latency_seconds. Nothing is registered globally:
// callers register the collector themselves or mount [Handler].
package prometheus
