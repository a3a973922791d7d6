package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry tracks run, model and tool activity. A nil *Telemetry is a
// valid no-op receiver so callers never need to guard their observations.
type Telemetry struct {
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	modelCalls    *prometheus.CounterVec
	modelDuration *prometheus.HistogramVec
	toolCalls     *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	streamedBytes prometheus.Counter
}

// New registers the assistant metrics on the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func New(reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_runs_total",
			Help: "Agent runs by terminal state.",
		}, []string{"state"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scout_run_duration_seconds",
			Help:    "Wall-clock duration of agent runs.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_model_calls_total",
			Help: "Model streaming calls by model name.",
		}, []string{"model"}),
		modelDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scout_model_call_duration_seconds",
			Help:    "Duration of model streaming calls.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"model"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_tool_calls_total",
			Help: "Tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scout_tool_call_duration_seconds",
			Help:    "Duration of tool invocations.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"tool"}),
		streamedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scout_streamed_bytes_total",
			Help: "Bytes of answer text streamed to callers.",
		}),
	}
	reg.MustRegister(t.runs, t.runDuration, t.modelCalls, t.modelDuration, t.toolCalls, t.toolDuration, t.streamedBytes)
	return t
}

func (t *Telemetry) ObserveRun(state string, d time.Duration) {
	if t == nil {
		return
	}
	t.runs.WithLabelValues(state).Inc()
	t.runDuration.Observe(d.Seconds())
}

func (t *Telemetry) ObserveModelCall(model string, d time.Duration) {
	if t == nil {
		return
	}
	t.modelCalls.WithLabelValues(model).Inc()
	t.modelDuration.WithLabelValues(model).Observe(d.Seconds())
}

func (t *Telemetry) ObserveToolCall(tool string, isError bool, d time.Duration) {
	if t == nil {
		return
	}
	outcome := "ok"
	if isError {
		outcome = "error"
	}
	t.toolCalls.WithLabelValues(tool, outcome).Inc()
	t.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

func (t *Telemetry) AddStreamedBytes(n int) {
	if t == nil {
		return
	}
	t.streamedBytes.Add(float64(n))
}
