package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ladders_sessions_created_total",
		Help: "Sessions created",
	})
	PlayersJoined = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ladders_players_joined_total",
		Help: "Players that joined a session",
	})
	RollsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladders_rolls_resolved_total",
			Help: "Resolved rolls by roll mode and result",
		},
		[]string{"mode", "result"},
	)
	RandomnessRequested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ladders_randomness_requested_total",
		Help: "Randomness requests emitted",
	})
	RandomnessPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ladders_randomness_published_total",
		Help: "Randomness requests pushed to the queue",
	})
	GamesWon = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ladders_games_won_total",
		Help: "Sessions that reached a winner",
	})
	PotPaid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ladders_pot_paid_total",
		Help: "Sum of claimed pots",
	})
	OperationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladders_operation_errors_total",
			Help: "Rejected session operations by operation and error code",
		},
		[]string{"op", "code"},
	)
)

func init() {
	prometheus.MustRegister(SessionsCreated)
	prometheus.MustRegister(PlayersJoined)
	prometheus.MustRegister(RollsResolved)
	prometheus.MustRegister(RandomnessRequested)
	prometheus.MustRegister(RandomnessPublished)
	prometheus.MustRegister(GamesWon)
	prometheus.MustRegister(PotPaid)
	prometheus.MustRegister(OperationErrors)
}

// rollResult labels a resolved roll for RollsResolved.
func rollResult(won, overshoot, transported bool) string {
	switch {
	case won:
		return "win"
	case overshoot:
		return "overshoot"
	case transported:
		return "transport"
	default:
		return "move"
	}
}
