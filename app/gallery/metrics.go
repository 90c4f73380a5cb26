package gallery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_outcomes_total",
		Help: "Handled conversant events by outcome",
	}, []string{"outcome"})

	OrphanedPublicationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gallery_orphaned_publications_total",
		Help: "Photos published to the channel whose deletion code could not be stored",
	})
)
