// Package metrics is C7: the process-wide Prometheus registry updated by
// the state machine and supervisor, served on /metrics. Gauge/counter
// construction follows the teacher pack's promauto.NewGauge/NewCounter
// convention (see e.g. the Prysm validator client's
// validatorAttestSuccessVec) rather than hand-rolled text formatting.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "validator_attestation"

// Metrics holds every gauge/counter named in spec.md §6. All carry a
// constant "network" label, set once at construction.
type Metrics struct {
	LatestBlockNumber prometheus.Gauge

	CurrentEpochID                   prometheus.Gauge
	CurrentEpochStartingBlockNumber  prometheus.Gauge
	CurrentEpochLength               prometheus.Gauge
	CurrentEpochAssignedBlockNumber  prometheus.Gauge

	LastAttestationTimestampSeconds prometheus.Gauge

	AttestationSubmittedCount prometheus.Counter
	AttestationFailureCount   prometheus.Counter
	AttestationConfirmedCount prometheus.Counter

	MissedEpochsCount prometheus.Counter

	OperationalAccountBalanceSTRK prometheus.Gauge

	registry *prometheus.Registry
}

// New registers every metric against a fresh registry labelled with the
// given chain short string (e.g. "mainnet", "sepolia").
func New(network string) *Metrics {
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"network": network}

	gauge := func(name string) prometheus.Gauge {
		g := promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        name,
			ConstLabels: constLabels,
		})
		return g
	}
	counter := func(name string) prometheus.Counter {
		c := promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			ConstLabels: constLabels,
		})
		return c
	}

	m := &Metrics{
		LatestBlockNumber:               gauge("starknet_latest_block_number"),
		CurrentEpochID:                  gauge("current_epoch_id"),
		CurrentEpochStartingBlockNumber: gauge("current_epoch_starting_block_number"),
		CurrentEpochLength:              gauge("current_epoch_length"),
		CurrentEpochAssignedBlockNumber: gauge("current_epoch_assigned_block_number"),
		LastAttestationTimestampSeconds: gauge("last_attestation_timestamp_seconds"),
		AttestationSubmittedCount:       counter("attestation_submitted_count"),
		AttestationFailureCount:         counter("attestation_failure_count"),
		AttestationConfirmedCount:       counter("attestation_confirmed_count"),
		MissedEpochsCount:               counter("missed_epochs_count"),
		OperationalAccountBalanceSTRK:   gauge("operational_account_balance_strk"),
		registry:                        reg,
	}
	// missed_epochs_count is initialised to 0 by Counter's zero value; the
	// Add call below forces it to be emitted even before the first miss.
	m.MissedEpochsCount.Add(0)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
