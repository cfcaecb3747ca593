// Package observability provides logging and metrics for the access portal.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics namespace for all access portal metrics.
const metricsNamespace = "github_access"

// Grant metrics.
var (
	// GrantsTotal counts access grants by outcome (invited, updated, granted,
	// unchanged, processed) or by error code on failure.
	GrantsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "grants_total",
			Help:      "Total access grant attempts",
		},
		[]string{"access_type", "result"},
	)

	// GrantDuration measures the end-to-end duration of a grant in seconds.
	GrantDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "grant_duration_seconds",
			Help:      "Duration of access grants in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"access_type"},
	)
)

// GitHub API metrics.
var (
	// GitHubCallsTotal counts GitHub REST calls by endpoint and status code.
	GitHubCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "github_calls_total",
			Help:      "Total GitHub API calls",
		},
		[]string{"endpoint", "status"},
	)

	// GitHubRateRemaining tracks the remaining GitHub API budget.
	GitHubRateRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "github_rate_remaining",
			Help:      "Remaining GitHub API requests in the current window",
		},
	)
)

// HTTP metrics.
var (
	// RequestsTotal counts HTTP requests by route, method and status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed",
		},
		[]string{"route", "method", "status"},
	)

	// RequestDuration measures HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(
		GrantsTotal,
		GrantDuration,
		GitHubCallsTotal,
		GitHubRateRemaining,
		RequestsTotal,
		RequestDuration,
	)
}
