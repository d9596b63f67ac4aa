package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/joulemark/green-scheduler/internal/core/domain"
)

// Exporter exposes the outcome of the most recent comparison runs to
// Prometheus scrapers. Gauges are labeled by algorithm and overwritten on
// every completed run.
type Exporter struct {
	runsTotal       prometheus.Counter
	energyGauge     *prometheus.GaugeVec
	co2Gauge        *prometheus.GaugeVec
	tasksGauge      *prometheus.GaugeVec
	waitGauge       *prometheus.GaugeVec
	turnaroundGauge *prometheus.GaugeVec
	lastRunGauge    prometheus.Gauge
	log             *zap.Logger
}

// NewExporter creates the run metrics and registers them with the default
// registry. Call once per process.
func NewExporter(log *zap.Logger) *Exporter {
	e := &Exporter{
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_comparison_runs_total",
			Help: "Total number of comparison runs completed by this worker",
		}),
		energyGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduler_policy_energy_kwh",
			Help: "Total energy consumed by the last run per scheduling policy",
		}, []string{"algorithm"}),
		co2Gauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduler_policy_co2_kg",
			Help: "CO2 emissions of the last run per scheduling policy",
		}, []string{"algorithm"}),
		tasksGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduler_policy_tasks_executed",
			Help: "Tasks executed in the last run per scheduling policy",
		}, []string{"algorithm"}),
		waitGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduler_policy_avg_wait_seconds",
			Help: "Average task wait time of the last run per scheduling policy",
		}, []string{"algorithm"}),
		turnaroundGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduler_policy_avg_turnaround_seconds",
			Help: "Average task turnaround time of the last run per scheduling policy",
		}, []string{"algorithm"}),
		lastRunGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp_seconds",
			Help: "Unix time of the most recently completed comparison run",
		}),
		log: log,
	}

	prometheus.MustRegister(
		e.runsTotal,
		e.energyGauge,
		e.co2Gauge,
		e.tasksGauge,
		e.waitGauge,
		e.turnaroundGauge,
		e.lastRunGauge,
	)
	return e
}

// ObserveReport records one completed comparison run.
func (e *Exporter) ObserveReport(report *domain.ComparisonReport) {
	for _, name := range report.Order {
		rec := report.Results[name]
		e.energyGauge.WithLabelValues(name).Set(rec.TotalEnergyKWh)
		e.co2Gauge.WithLabelValues(name).Set(rec.CO2EmissionsKg)
		e.tasksGauge.WithLabelValues(name).Set(float64(rec.TasksExecuted))
		e.waitGauge.WithLabelValues(name).Set(rec.AvgWaitTime)
		e.turnaroundGauge.WithLabelValues(name).Set(rec.AvgTurnaroundTime)
	}
	e.runsTotal.Inc()
	e.lastRunGauge.Set(float64(report.FinishedAt.Unix()))
}

// Serve exposes /metrics until the context ends.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	e.log.Info("Starting metrics server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
