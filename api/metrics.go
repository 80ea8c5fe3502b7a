package api

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/sports-checkout/checkout"
)

// Metrics collects checkout counters on a private registry so tests can
// build as many handlers as they like.
type Metrics struct {
	registry *prometheus.Registry

	issued      *prometheus.CounterVec
	returned    *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	feesCharged prometheus.Counter
	feesAccrued prometheus.Counter
	outstanding prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		issued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_issued_total",
				Help: "Equipment issued, by sport",
			},
			[]string{"sport"},
		),
		returned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_returned_total",
				Help: "Equipment returned, by sport and lateness",
			},
			[]string{"sport", "late"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_rejected_total",
				Help: "Issue requests rejected, by reason",
			},
			[]string{"reason"},
		),
		feesCharged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_late_fees_charged_total",
			Help: "Late fees owed on returned equipment, in rupees",
		}),
		feesAccrued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_accrual_updates_total",
			Help: "Outstanding records whose late fee moved in an accrual pass",
		}),
		outstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "checkout_outstanding",
			Help: "Equipment currently issued, as of the last load pass",
		}),
	}

	m.registry.MustRegister(m.issued, m.returned, m.rejected, m.feesCharged, m.feesAccrued, m.outstanding)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveIssue(rec checkout.IssueRecord) {
	m.issued.WithLabelValues(string(rec.EquipmentType)).Inc()
	m.outstanding.Inc()
}

func (m *Metrics) ObserveReturn(rec checkout.IssueRecord) {
	late := "false"
	if rec.LateFee > 0 {
		late = "true"
	}
	m.returned.WithLabelValues(string(rec.EquipmentType), late).Inc()
	m.feesCharged.Add(float64(rec.LateFee))
	m.outstanding.Dec()
}

// ObserveRejection counts rule rejections. Store failures are not counted.
func (m *Metrics) ObserveRejection(err error) {
	var reason string
	switch {
	case errors.Is(err, checkout.ErrLimitExceeded):
		reason = "limit_exceeded"
	case errors.Is(err, checkout.ErrUnavailable):
		reason = "unavailable"
	case errors.Is(err, checkout.ErrNotFound):
		reason = "not_found"
	case errors.Is(err, checkout.ErrNoSession):
		reason = "no_session"
	default:
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveAccrual(changed int) {
	m.feesAccrued.Add(float64(changed))
}

func (m *Metrics) SetOutstanding(n int) {
	m.outstanding.Set(float64(n))
}
