// Package telemetry holds the Prometheus metrics registry for the
// quoting/hedging engine, grounded on the teacher's
// internal/interfaces/http/metrics.go registry shape (named vectors,
// MustRegister at construction, a handler method for /metrics) but
// re-pointed at this domain's signals: book freshness, spread emission
// rate, order-entry outcomes, hedge residual, and the error budget.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Registry holds every metric this engine exposes.
type Registry struct {
	BookUpdates     *prometheus.CounterVec
	BookStale       *prometheus.GaugeVec
	SpreadEmitted   *prometheus.CounterVec
	SpreadCrossed   *prometheus.CounterVec
	OrderEntryTotal *prometheus.CounterVec
	OrderEntryError *prometheus.CounterVec
	HedgeResidual   *prometheus.GaugeVec
	HedgeAttempts   *prometheus.CounterVec
	ErrorBudget     prometheus.Gauge
	KillSwitch      prometheus.Gauge
}

// NewRegistry builds and registers every metric against the default
// Prometheus registerer.
func NewRegistry() *Registry {
	r := &Registry{
		BookUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xvenue_mm_book_updates_total",
			Help: "Total order-book events applied, by venue and base.",
		}, []string{"venue", "base"}),

		BookStale: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xvenue_mm_book_stale",
			Help: "1 when the top-of-book freshness window has elapsed, else 0.",
		}, []string{"venue", "base"}),

		SpreadEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xvenue_mm_spread_emitted_total",
			Help: "Total spread snapshots emitted by the aggregator.",
		}, []string{"base"}),

		SpreadCrossed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xvenue_mm_spread_crossed_total",
			Help: "Total crossed-book warnings observed.",
		}, []string{"base"}),

		OrderEntryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xvenue_mm_order_entry_total",
			Help: "Total order-entry calls, by venue and outcome.",
		}, []string{"venue", "outcome"}),

		OrderEntryError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xvenue_mm_order_entry_errors_total",
			Help: "Total order-entry errors, by venue and VenueErrorKind.",
		}, []string{"venue", "kind"}),

		HedgeResidual: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xvenue_mm_hedge_residual",
			Help: "Current signed hedge residual, by base.",
		}, []string{"base"}),

		HedgeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xvenue_mm_hedge_attempts_total",
			Help: "Total hedge order-placement attempts, by base and result.",
		}, []string{"base", "result"}),

		ErrorBudget: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "xvenue_mm_error_budget_count",
			Help: "Current count of failures in the sliding error window.",
		}),

		KillSwitch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "xvenue_mm_kill_switch",
			Help: "1 once the process-wide kill switch has tripped.",
		}),
	}

	prometheus.MustRegister(
		r.BookUpdates, r.BookStale, r.SpreadEmitted, r.SpreadCrossed,
		r.OrderEntryTotal, r.OrderEntryError, r.HedgeResidual, r.HedgeAttempts,
		r.ErrorBudget, r.KillSwitch,
	)
	return r
}

// Handler returns the standard Prometheus scrape handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBook records an applied book event and its freshness state.
func (r *Registry) ObserveBook(venue, base string, fresh bool) {
	r.BookUpdates.WithLabelValues(venue, base).Inc()
	stale := 0.0
	if !fresh {
		stale = 1.0
	}
	r.BookStale.WithLabelValues(venue, base).Set(stale)
}

// ObserveSpread records a spread emission and, when crossed, the warning.
func (r *Registry) ObserveSpread(base string, crossed bool) {
	r.SpreadEmitted.WithLabelValues(base).Inc()
	if crossed {
		r.SpreadCrossed.WithLabelValues(base).Inc()
	}
}

// ObserveOrderEntry records the outcome of one order-entry call.
func (r *Registry) ObserveOrderEntry(venue, outcome string) {
	r.OrderEntryTotal.WithLabelValues(venue, outcome).Inc()
}

// ObserveOrderEntryError records a classified venue error.
func (r *Registry) ObserveOrderEntryError(venue, kind string) {
	r.OrderEntryError.WithLabelValues(venue, kind).Inc()
}

// SetHedgeResidual publishes the current residual gauge for a base.
func (r *Registry) SetHedgeResidual(base string, value float64) {
	r.HedgeResidual.WithLabelValues(base).Set(value)
}

// ObserveHedgeAttempt records one hedge placement attempt outcome.
func (r *Registry) ObserveHedgeAttempt(base, result string) {
	r.HedgeAttempts.WithLabelValues(base, result).Inc()
}

// SetErrorBudget publishes the error budget's current sliding-window count.
func (r *Registry) SetErrorBudget(count int) {
	r.ErrorBudget.Set(float64(count))
}

// SetKillSwitch publishes whether the process-wide kill switch has tripped.
func (r *Registry) SetKillSwitch(tripped bool) {
	if tripped {
		r.KillSwitch.Set(1)
		return
	}
	r.KillSwitch.Set(0)
}

// PollErrorBudget periodically republishes a budget's count/kill-switch
// state until stop is closed, for binaries that don't already poll it
// on their own hot path.
func PollErrorBudget(r *Registry, count func() int, killed func() bool, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.SetErrorBudget(count())
			r.SetKillSwitch(killed())
		}
	}
}
