package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var gatewayFrames = promauto.NewCounter(prometheus.CounterOpts{
	Name: "wikimod_gateway_frames",
	Help: "Messages read from the chat gateway.",
})

var gatewayReconnects = promauto.NewCounter(prometheus.CounterOpts{
	Name: "wikimod_gateway_reconnects",
	Help: "Times the gateway socket was re-dialed after a failure.",
})
