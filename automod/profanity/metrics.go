package profanity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var vandalismReportCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wikimod_vandalism_reports",
	Help: "Number of vandalism reports produced, by severity tier",
}, []string{"tier"})
