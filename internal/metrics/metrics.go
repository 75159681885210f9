package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signal_rooms_created_total",
		Help: "Rooms allocated since process start.",
	})

	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signal_rooms_active",
		Help: "Rooms currently present in the registry.",
	})

	ConnectionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "signal_connections_active",
		Help: "Admitted websocket connections by role.",
	}, []string{"role"})

	FramesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signal_frames_relayed_total",
		Help: "Frames forwarded to a paired peer.",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signal_frames_dropped_total",
		Help: "Frames dropped because no peer occupied the opposite slot.",
	})

	RelaySendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signal_relay_send_errors_total",
		Help: "Forwarding attempts that failed on the peer socket.",
	})
)

// Handler exposes Prometheus metrics at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
