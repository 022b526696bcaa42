package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulsewall",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path pattern and status code.",
	}, []string{"method", "path", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pulsewall",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	WebsocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pulsewall",
		Name:      "websocket_connections",
		Help:      "Currently open websocket connections.",
	})

	RoomMembers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pulsewall",
		Name:      "room_members",
		Help:      "Connections joined per event room.",
	}, []string{"event_id"})

	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulsewall",
		Name:      "broadcasts_total",
		Help:      "Room broadcasts by message type.",
	}, []string{"type"})

	PollsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pulsewall",
		Name:      "polls_created_total",
		Help:      "Polls created.",
	})

	PollsEnded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pulsewall",
		Name:      "polls_ended_total",
		Help:      "Polls transitioned to ended, manual or by expiry.",
	})

	VotesCast = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pulsewall",
		Name:      "votes_cast_total",
		Help:      "Accepted poll votes.",
	})
)
