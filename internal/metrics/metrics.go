// Package metrics records tool call counters for Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts tool calls by tool and outcome.
type Recorder struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder registers the tool call collectors on registry.
// It returns nil when registry is nil; a nil Recorder ignores observations.
func NewRecorder(registry *prometheus.Registry) *Recorder {
	if registry == nil {
		return nil
	}
	r := &Recorder{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tartunlp_mcp_tool_calls_total",
				Help: "Total number of tool calls by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tartunlp_mcp_tool_call_duration_seconds",
				Help:    "Tool call latency including the backend round trip",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
	}
	registry.MustRegister(r.calls, r.duration)
	return r
}

// ObserveCall implements tools.Observer.
func (r *Recorder) ObserveCall(tool string, failed bool, elapsed time.Duration) {
	if r == nil {
		return
	}
	outcome := "success"
	if failed {
		outcome = "failure"
	}
	r.calls.WithLabelValues(tool, outcome).Inc()
	r.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
