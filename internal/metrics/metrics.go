// Package metrics exposes Prometheus counters for the storefront.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LoginAttempts counts login attempts by outcome (success, failure, rate_limited).
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fovdark",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	// OrdersCreated counts orders created through the storefront.
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fovdark",
		Name:      "orders_created_total",
		Help:      "Orders created.",
	})

	// OrdersCompleted counts orders that reached the completed status.
	OrdersCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fovdark",
		Name:      "orders_completed_total",
		Help:      "Orders transitioned to completed.",
	})

	// LicenseBinds counts HWID bind attempts by outcome (bound, rebound, cooldown, blocked).
	LicenseBinds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fovdark",
		Name:      "license_binds_total",
		Help:      "HWID bind attempts by outcome.",
	}, []string{"outcome"})

	// ReviewsCreated counts published product reviews.
	ReviewsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fovdark",
		Name:      "reviews_created_total",
		Help:      "Product reviews created.",
	})

	// CacheHits counts read-through cache hits by cache name.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fovdark",
		Name:      "cache_hits_total",
		Help:      "Read-through cache hits by cache.",
	}, []string{"cache"})

	// CacheMisses counts read-through cache misses by cache name.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fovdark",
		Name:      "cache_misses_total",
		Help:      "Read-through cache misses by cache.",
	}, []string{"cache"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
