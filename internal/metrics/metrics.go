// Package metrics holds the Prometheus collectors for the betting core and
// the HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the services and middleware report to.
type Metrics struct {
	BetsPlaced      prometheus.Counter
	BetsCancelled   prometheus.Counter
	StakeTotal      prometheus.Counter
	TicketsResolved prometheus.Counter
	BetsSettled     *prometheus.CounterVec // label: outcome (won|lost)
	PayoutTotal     prometheus.Counter
	BetRejections   *prometheus.CounterVec // label: reason
	HTTPRequests    *prometheus.CounterVec // labels: method, route, status
	HTTPDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BetsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betleague_bets_placed_total", Help: "Bets accepted.",
		}),
		BetsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betleague_bets_cancelled_total", Help: "Pending bets cancelled and refunded.",
		}),
		StakeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betleague_stake_total", Help: "Sum of accepted stakes.",
		}),
		TicketsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betleague_tickets_resolved_total", Help: "Tickets settled.",
		}),
		BetsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betleague_bets_settled_total", Help: "Bets settled by outcome.",
		}, []string{"outcome"}),
		PayoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betleague_payout_total", Help: "Sum of winning payouts credited.",
		}),
		BetRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betleague_bet_rejections_total", Help: "Bet placements rejected, by reason.",
		}, []string{"reason"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betleague_http_requests_total", Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "betleague_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.BetsPlaced, m.BetsCancelled, m.StakeTotal, m.TicketsResolved,
		m.BetsSettled, m.PayoutTotal, m.BetRejections, m.HTTPRequests, m.HTTPDuration,
	)
	return m
}

// NewUnregistered returns collectors bound to a throwaway registry. Used by
// tests and by components built without a metrics endpoint.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
