package observability

import (
	"time"

	"github.com/danmuck/depctl/internal/manifest"
	"github.com/danmuck/depctl/internal/provision"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds provisioning metrics in a private registry so each run can be
// exported on its own, e.g. to a node_exporter textfile collector directory.
type Metrics struct {
	registry *prometheus.Registry

	packages        *prometheus.CounterVec
	failures        *prometheus.CounterVec
	packageDuration *prometheus.HistogramVec
	lastRun         prometheus.Gauge
	lastRunFailed   prometheus.Gauge
	runDuration     prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		packages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "depctl",
				Subsystem: "provision",
				Name:      "packages_total",
				Help:      "Packages classified, by outcome.",
			},
			[]string{"outcome"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "depctl",
				Subsystem: "provision",
				Name:      "failures_total",
				Help:      "Failed packages, by failure kind.",
			},
			[]string{"kind"},
		),
		packageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "depctl",
				Subsystem: "provision",
				Name:      "package_duration_seconds",
				Help:      "Time spent provisioning one package.",
				Buckets:   []float64{0.05, 0.25, 1, 5, 15, 60, 180, 600},
			},
			[]string{"outcome"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "depctl",
			Subsystem: "provision",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last provisioning run finished.",
		}),
		lastRunFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "depctl",
			Subsystem: "provision",
			Name:      "last_run_failed_packages",
			Help:      "Failed packages in the last provisioning run.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "depctl",
			Subsystem: "provision",
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last provisioning run.",
		}),
	}
	m.registry.MustRegister(m.packages, m.failures, m.packageDuration, m.lastRun, m.lastRunFailed, m.runDuration)
	return m
}

// ObservePackage implements provision.Observer.
func (m *Metrics) ObservePackage(_ manifest.PackageSpec, outcome provision.Outcome, kind provision.Kind, elapsed time.Duration) {
	m.packages.WithLabelValues(string(outcome)).Inc()
	if outcome == provision.OutcomeFailed {
		m.failures.WithLabelValues(string(kind)).Inc()
	}
	m.packageDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

// ObserveRun records run-level gauges once a report is complete.
func (m *Metrics) ObserveRun(report *provision.Report, finished time.Time, elapsed time.Duration) {
	m.lastRun.Set(float64(finished.Unix()))
	m.lastRunFailed.Set(float64(len(report.Failed)))
	m.runDuration.Set(elapsed.Seconds())
}

// Gatherer exposes the registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the registry in text exposition format. The write goes
// through a temp file and rename, as node_exporter expects.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Gatherer())
}
