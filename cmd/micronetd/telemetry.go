package main

import (
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/embednet/micronet"
)

// telemetry bridges the engine's synchronous error-notification
// callback into one slog line and one Prometheus counter increment per
// event, mirroring how the reference DHCP daemon turns lease-pool
// exhaustion into both a log line and a counter.
type telemetry struct {
	log     *slog.Logger
	counter *prometheus.CounterVec
}

func newTelemetry(log *slog.Logger) *telemetry {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "micronetd",
		Name:      "notifications_total",
		Help:      "Count of engine notification callbacks by controller and reason.",
	}, []string{"controller", "reason"})
	prometheus.MustRegister(counter)
	return &telemetry{log: log, counter: counter}
}

func (t *telemetry) notify(ctrlID int, code micronet.NotifyCode) {
	reason := code.String()
	t.counter.WithLabelValues(strconv.Itoa(ctrlID), reason).Inc()
	switch code {
	case micronet.NotifyArpTableFull, micronet.NotifyEgressUnreachable, micronet.NotifyDriverRejected:
		t.log.Warn("engine notification", "controller", ctrlID, "reason", reason)
	default:
		t.log.Debug("engine notification", "controller", ctrlID, "reason", reason)
	}
}
