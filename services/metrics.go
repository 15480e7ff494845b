package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meetpoint_connections_active",
		Help: "Websocket connections currently open.",
	})

	metricBroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetpoint_broadcast_deliveries_total",
		Help: "Event deliveries fanned out to bound connections, by event type.",
	}, []string{"event"})

	metricInboundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetpoint_inbound_events_total",
		Help: "Inbound event-channel messages, by event type.",
	}, []string{"event"})

	metricSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetpoint_swept_presences_total",
		Help: "Presences forced offline by the staleness sweeper.",
	})
)

// ConnectionOpened and ConnectionClosed track the live connection gauge
// from the websocket endpoint.
func ConnectionOpened() { metricConnectionsActive.Inc() }
func ConnectionClosed() { metricConnectionsActive.Dec() }

// InboundEvent counts one received event-channel message.
func InboundEvent(event string) { metricInboundTotal.WithLabelValues(event).Inc() }
