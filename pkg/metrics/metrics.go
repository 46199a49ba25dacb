package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/limaJavier/coursetabling/pkg/model"
)

const namespace = "coursetabling"

// Run outcomes reported through the outcome gauge
const (
	OutcomeScheduled  = "scheduled"
	OutcomeInfeasible = "infeasible"
	OutcomeTimeout    = "timeout"
	OutcomeFailed     = "failed"
)

var Outcomes = []string{OutcomeScheduled, OutcomeInfeasible, OutcomeTimeout, OutcomeFailed}

// RunMetrics holds the gauges describing one scheduling run. They are meant to be dumped once,
// at the end of the run, into a node-exporter textfile
type RunMetrics struct {
	registry     *prometheus.Registry
	blocks       *prometheus.GaugeVec
	variables    prometheus.Gauge
	constraints  prometheus.Gauge
	buildSeconds prometheus.Gauge
	solveSeconds prometheus.Gauge
	objective    prometheus.Gauge
	sessions     prometheus.Gauge
	outcome      *prometheus.GaugeVec
}

func New(runID string, solver string) *RunMetrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"run_id": runID, "solver": solver}

	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help, ConstLabels: labels})
	}

	metrics := &RunMetrics{
		registry: registry,
		blocks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "blocks",
			Help:        "Candidate blocks generated per duration class",
			ConstLabels: labels,
		}, []string{"class"}),
		variables:    gauge("model_variables", "Decision variables of the model"),
		constraints:  gauge("model_constraints", "Constraints of the model"),
		buildSeconds: gauge("build_seconds", "Time spent generating blocks and building the model"),
		solveSeconds: gauge("solve_seconds", "Time spent in the solver"),
		objective:    gauge("objective", "Objective value of the returned assignment"),
		sessions:     gauge("sessions", "Sessions in the returned assignment"),
		outcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "outcome",
			Help:        "1 for the outcome of the run, 0 for every other outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		metrics.blocks,
		metrics.variables,
		metrics.constraints,
		metrics.buildSeconds,
		metrics.solveSeconds,
		metrics.objective,
		metrics.sessions,
		metrics.outcome,
	)
	return metrics
}

func (metrics *RunMetrics) Record(stats model.Stats, assignment model.Assignment) {
	for _, class := range model.DurationClasses {
		metrics.blocks.WithLabelValues(class.String()).Set(float64(stats.Blocks[class]))
	}
	metrics.variables.Set(float64(stats.Variables))
	metrics.constraints.Set(float64(stats.Constraints))
	metrics.buildSeconds.Set(stats.BuildTime.Seconds())
	metrics.solveSeconds.Set(stats.SolveTime.Seconds())
	metrics.objective.Set(stats.Objective)
	metrics.sessions.Set(float64(len(assignment)))
}

func (metrics *RunMetrics) SetOutcome(outcome string) {
	for _, candidate := range Outcomes {
		value := 0.0
		if candidate == outcome {
			value = 1
		}
		metrics.outcome.WithLabelValues(candidate).Set(value)
	}
}

func (metrics *RunMetrics) Registry() *prometheus.Registry {
	return metrics.registry
}

// WriteTextfile dumps every gauge in the Prometheus text format. The file is replaced atomically
func (metrics *RunMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, metrics.registry)
}
