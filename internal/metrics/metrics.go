// Package metrics exposes the licensing engine's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "licensing"

var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	NegotiationTransitions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "negotiation_transitions_total",
		Help:      "Negotiation status transitions by target status.",
	}, []string{"to"})

	ContractsGenerated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "contracts_generated_total",
		Help:      "Contracts created from accepted negotiations.",
	})

	MilestonesCompleted = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "milestones_completed_total",
		Help:      "Completed workflow milestones by license category.",
	}, []string{"category"})

	Distributions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "distributions_total",
		Help:      "Revenue distribution requests by outcome (created, replayed, suspended).",
	}, []string{"outcome"})

	Settlements = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlements_total",
		Help:      "Settlement reports by resulting record status.",
	}, []string{"status"})

	DisputesRaised = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "disputes_raised_total",
		Help:      "Disputes raised by type.",
	}, []string{"type"})

	OutboxRelayed = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_relayed_total",
		Help:      "Outbox events handed to the publisher by result.",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
