package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dragnet_events_received_total",
	Help: "Total number of events handed to the event manager",
})

var filtersRegistered = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dragnet_filters_registered_total",
	Help: "Total number of filters registered with the event manager",
})

var filtersRemoved = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dragnet_filters_removed_total",
	Help: "Total number of filters removed after deactivating",
})

var filtersActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dragnet_filters_active",
	Help: "Number of filters currently registered",
})

var eventsFromStreamCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dragnet_stream_events_received_total",
	Help: "Total number of events received from the stream",
}, []string{"remote_addr"})

var bytesFromStreamCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dragnet_stream_bytes_total",
	Help: "Total bytes received from the stream",
}, []string{"remote_addr"})
