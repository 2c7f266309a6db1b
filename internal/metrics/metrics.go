// Package metrics exposes prometheus collectors for permission decisions and the permission cache.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pageguard",
		Name:      "permission_decisions_total",
		Help:      "Permission checks by action and outcome.",
	}, []string{"action", "outcome"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pageguard",
		Name:      "permission_cache_lookups_total",
		Help:      "Permission cache lookups by result.",
	}, []string{"result"})

	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pageguard",
		Name:      "permission_cache_invalidations_total",
		Help:      "Explicit permission cache invalidations.",
	})

	CommentMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pageguard",
		Name:      "comment_mutations_total",
		Help:      "Comment ledger mutations by history action.",
	}, []string{"action"})

	OTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pageguard",
		Name:      "otp_requests_total",
		Help:      "Password reset code requests by outcome.",
	}, []string{"outcome"})
)

// Outcome labels
const (
	OutcomeAllow    = "allow"
	OutcomeDeny     = "deny"
	OutcomeNotFound = "not_found"
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheError      = "error"
)

// Handler serves the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
