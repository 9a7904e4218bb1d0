package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ledger collects transfer outcomes on its own registry. A CLI run is too
// short to be scraped, so the registry is written out as a node_exporter
// textfile when the process exits.
type Ledger struct {
	registry      *prometheus.Registry
	transfers     *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	compensations *prometheus.CounterVec
}

func NewLedger() *Ledger {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Ledger{
		registry: reg,
		transfers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "purse_transfers_total",
				Help: "Transfer calls by kind, terminal status (or rejected, replayed) and failure reason",
			},
			[]string{"kind", "status", "reason"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "purse_transfer_duration_seconds",
				Help:    "Duration of transfer attempts",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2},
			},
			[]string{"kind"},
		),
		compensations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "purse_compensations_total",
				Help: "Reversed debits after a refused credit",
			},
			[]string{"result"},
		),
	}
}

func (l *Ledger) ObserveTransfer(kind, status, reason string, elapsed time.Duration) {
	l.transfers.WithLabelValues(kind, status, reason).Inc()
	l.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (l *Ledger) ObserveCompensation(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	l.compensations.WithLabelValues(result).Inc()
}

func (l *Ledger) Registry() *prometheus.Registry {
	return l.registry
}

func (l *Ledger) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, l.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
