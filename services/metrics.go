package services

import "github.com/prometheus/client_golang/prometheus"

var (
	smokingEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ember_smoking_events_total",
			Help: "Smoking events recorded, by action",
		},
		[]string{"action"},
	)
	delaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ember_delays_total",
			Help: "Delay sessions started and completed",
		},
		[]string{"state"},
	)
	seededDaysTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ember_seeded_days_total",
			Help: "Daily logs inserted by the seed operation",
		},
	)
)

// RegisterMetrics registers the domain collectors on reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{smokingEventsTotal, delaysTotal, seededDaysTotal} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
