package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests       prometheus.Counter
	decoded        prometheus.Counter
	decodeFailures prometheus.Counter
	relayEvents    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pubsub_demo",
			Name:      "requests_total",
			Help:      "Requests seen by the demo file handler",
		}),
		decoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pubsub_demo",
			Name:      "events_decoded_total",
			Help:      "Event query parameters decoded successfully",
		}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pubsub_demo",
			Name:      "event_decode_failures_total",
			Help:      "Event query parameters that failed to decode",
		}),
		relayEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pubsub_demo",
			Name:      "relay_events_stored_total",
			Help:      "Events accepted and stored by the embedded relay",
		}),
	}
	reg.MustRegister(m.requests, m.decoded, m.decodeFailures, m.relayEvents)
	return m
}
