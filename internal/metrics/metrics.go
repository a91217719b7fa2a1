// Package metrics counts survey runs with Prometheus collectors.
//
// The tool is interactive and short-lived, so instead of serving /metrics the
// registry is written in the node_exporter textfile format after each report.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rewired-gh/trafficsurvey/internal/models"
)

// Source error reasons.
const (
	ReasonNotFound   = "not_found"
	ReasonParseError = "parse_error"
	ReasonOther      = "other"
)

// Recorder holds the collectors on a private registry
type Recorder struct {
	registry     *prometheus.Registry
	reports      prometheus.Counter
	records      prometheus.Counter
	sourceErrors *prometheus.CounterVec
	sinkErrors   *prometheus.CounterVec
	lastVehicles prometheus.Gauge
	lastRain     prometheus.Gauge
	meanSpeed    *prometheus.GaugeVec
	speedStdDev  *prometheus.GaugeVec
	meanExcess   *prometheus.GaugeVec
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trafficsurvey_reports_total",
			Help: "Total number of daily reports computed.",
		}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trafficsurvey_records_total",
			Help: "Total number of survey records aggregated.",
		}),
		sourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficsurvey_source_errors_total",
			Help: "Total number of survey files that could not be loaded.",
		}, []string{"reason"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficsurvey_sink_errors_total",
			Help: "Total number of failed report deliveries.",
		}, []string{"sink"}),
		lastVehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trafficsurvey_last_report_vehicles",
			Help: "Vehicles counted in the most recent report.",
		}),
		lastRain: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trafficsurvey_last_report_rain_minutes",
			Help: "Rain minutes in the most recent report.",
		}),
		meanSpeed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trafficsurvey_last_mean_speed",
			Help: "Mean vehicle speed per junction in the most recent report.",
		}, []string{"junction"}),
		speedStdDev: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trafficsurvey_last_speed_stddev",
			Help: "Sample standard deviation of vehicle speed per junction in the most recent report.",
		}, []string{"junction"}),
		meanExcess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trafficsurvey_last_mean_excess_speed",
			Help: "Mean amount over the limit of speeding vehicles per junction in the most recent report.",
		}, []string{"junction"}),
	}

	r.registry.MustRegister(r.reports, r.records, r.sourceErrors, r.sinkErrors, r.lastVehicles, r.lastRain,
		r.meanSpeed, r.speedStdDev, r.meanExcess)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveReport records a computed report.
func (r *Recorder) ObserveReport(report *models.Report) {
	r.reports.Inc()
	r.records.Add(float64(report.Total))
	r.lastVehicles.Set(float64(report.Total))
	r.lastRain.Set(float64(report.RainDuration.Hours*60 + report.RainDuration.Minutes))
}

// ObserveSpeed records the speed profile of one junction.
func (r *Recorder) ObserveSpeed(profile models.SpeedProfile) {
	r.meanSpeed.WithLabelValues(profile.Junction).Set(profile.MeanSpeed)
	r.speedStdDev.WithLabelValues(profile.Junction).Set(profile.StdDevSpeed)
	r.meanExcess.WithLabelValues(profile.Junction).Set(profile.MeanExcessSpeed)
}

// SourceError records a failed load.
func (r *Recorder) SourceError(reason string) {
	r.sourceErrors.WithLabelValues(reason).Inc()
}

// SinkError records a failed delivery to the named sink.
func (r *Recorder) SinkError(sink string) {
	r.sinkErrors.WithLabelValues(sink).Inc()
}

// WriteTextfile writes all metrics to path, replacing it atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
