package commands

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commandCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wikimod_commands",
	Help: "Chat commands handled, by command name and outcome.",
}, []string{"command", "outcome"})

var alertCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wikimod_vandalism_alerts",
	Help: "Vandalism alerts routed to the moderation channel, by severity.",
}, []string{"severity"})
