package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipt_verifications_total",
			Help: "Total receipt verifications by outcome and failure kind",
		},
		[]string{"outcome", "kind"},
	)

	verificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "receipt_verification_duration_seconds",
			Help:    "Duration of receipt verifications, provider round trip included",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"outcome"},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipt_notifications_total",
			Help: "Realtime notifications published after a verification",
		},
		[]string{"status"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provider_circuit_breaker_state",
			Help: "Provider circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"provider"},
	)

	redisConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "redis_pool_connections",
			Help: "Redis pool connections by state",
		},
		[]string{"state"},
	)
)

// PoolStatter exposes connection pool statistics. *redis.Client satisfies it.
type PoolStatter interface {
	PoolStats() *redis.PoolStats
}

type Monitor struct {
	redis    PoolStatter
	interval time.Duration
}

func NewMonitor(redisClient PoolStatter) *Monitor {
	return &Monitor{redis: redisClient, interval: 30 * time.Second}
}

// Run collects pool metrics until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.collectRedisMetrics()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) collectRedisMetrics() {
	if m.redis == nil {
		return
	}
	stats := m.redis.PoolStats()
	redisConns.WithLabelValues("total").Set(float64(stats.TotalConns))
	redisConns.WithLabelValues("idle").Set(float64(stats.IdleConns))
	redisConns.WithLabelValues("stale").Set(float64(stats.StaleConns))
}

// Track a finished verification. kind is empty on success.
func (m *Monitor) TrackVerification(outcome, kind string, duration time.Duration) {
	verifications.WithLabelValues(outcome, kind).Inc()
	verificationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// Track a request denied by a rate limiter
func (m *Monitor) TrackRateLimited(scope string) {
	rateLimited.WithLabelValues(scope).Inc()
}

// Track a realtime notification attempt
func (m *Monitor) TrackNotification(status string) {
	notifications.WithLabelValues(status).Inc()
}

// Track a provider circuit breaker state change
func (m *Monitor) TrackBreakerState(provider string, state int) {
	breakerState.WithLabelValues(provider).Set(float64(state))
}
