package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stages of a relay run, used as the stage label.
const (
	StageLogin   = "login"
	StageResolve = "resolve"
	StageFetch   = "fetch"
	StagePublish = "publish"
)

// Metrics holds the gauges describing the most recent run. They live in a
// private registry since the relay is a one-shot process; the registry is
// written out as a textfile for node_exporter to pick up.
type Metrics struct {
	registry *prometheus.Registry

	pvPower      prometheus.Gauge
	loadPower    prometheus.Gauge
	batterySOC   prometheus.Gauge
	stageSuccess *prometheus.GaugeVec
	lastRun      prometheus.Gauge
	runDuration  prometheus.Gauge
}

// NewMetrics creates the run metrics and registers them on a new registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pvPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "solarrelay_pv_power_watts",
			Help: "Solar generation reported by the last run in watts",
		}),
		loadPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "solarrelay_load_power_watts",
			Help: "Household consumption reported by the last run in watts",
		}),
		batterySOC: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "solarrelay_battery_soc_percent",
			Help: "Battery state of charge reported by the last run in percent",
		}),
		stageSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solarrelay_stage_success",
			Help: "Whether each stage of the last run succeeded (1 = success, 0 = failure)",
		}, []string{"stage"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "solarrelay_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last run",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "solarrelay_run_duration_seconds",
			Help: "Duration of the last run in seconds",
		}),
	}
	m.registry.MustRegister(m.pvPower, m.loadPower, m.batterySOC, m.stageSuccess, m.lastRun, m.runDuration)
	return m
}

func (m *Metrics) stage(name string, err error) {
	v := 1.0
	if err != nil {
		v = 0
	}
	m.stageSuccess.WithLabelValues(name).Set(v)
}

// WriteTextfile writes the registry to path in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
