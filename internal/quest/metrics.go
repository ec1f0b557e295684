package quest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the domain counters. Build them once per registry.
type Metrics struct {
	HuntsCreated       *prometheus.CounterVec
	StopsCompleted     *prometheus.CounterVec
	PointsAwarded      prometheus.Counter
	AchievementsEarned *prometheus.CounterVec
}

// NewMetrics registers the counters with reg. A nil reg leaves them
// unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HuntsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ecoquest_hunts_created_total",
			Help: "Hunts created, by theme and content source.",
		}, []string{"theme", "source"}),
		StopsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ecoquest_stops_completed_total",
			Help: "Stops completed for the first time, by challenge type.",
		}, []string{"type"}),
		PointsAwarded: f.NewCounter(prometheus.CounterOpts{
			Name: "ecoquest_points_awarded_total",
			Help: "Points credited to users for completed stops.",
		}),
		AchievementsEarned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ecoquest_achievements_awarded_total",
			Help: "Achievements awarded, by type.",
		}, []string{"type"}),
	}
}
