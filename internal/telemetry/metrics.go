package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/Chronos/internal/domain"
)

const namespace = "chronos"

// Metrics — Prometheus метрики запусков scraper.
//
// Методы безопасны для nil-получателя (метрики выключены).
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	attemptsTotal prometheus.Counter
	runDuration   prometheus.Histogram
	lastExitCode  prometheus.Gauge
	lastSuccess   prometheus.Gauge
	nextTrigger   prometheus.Gauge
}

// NewMetrics создаёт и регистрирует метрики в reg.
// Для глобального реестра передайте prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Scraper runs by final status.",
		}, []string{"status", "mode"}),
		attemptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_attempts_total",
			Help:      "Scraper process invocations including retries.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished scraper runs.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),
		lastExitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_exit_code",
			Help:      "Exit code of the last finished scraper run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful scraper run.",
		}),
		nextTrigger: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "next_trigger_timestamp_seconds",
			Help:      "Unix time of the next scheduled trigger.",
		}),
	}

	reg.MustRegister(
		m.runsTotal,
		m.attemptsTotal,
		m.runDuration,
		m.lastExitCode,
		m.lastSuccess,
		m.nextTrigger,
	)
	return m
}

// ObserveAttempt учитывает один запуск процесса.
func (m *Metrics) ObserveAttempt() {
	if m == nil {
		return
	}
	m.attemptsTotal.Inc()
}

// ObserveRun учитывает завершённый run.
func (m *Metrics) ObserveRun(run *domain.Run) {
	if m == nil || run == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(run.Status), string(run.Mode)).Inc()
	m.runDuration.Observe(run.Duration().Seconds())
	m.lastExitCode.Set(float64(run.ExitCode))
	if run.Succeeded() && run.FinishedAt != nil {
		m.lastSuccess.Set(float64(run.FinishedAt.Unix()))
	}
}

// SetNextTrigger публикует время следующего срабатывания.
func (m *Metrics) SetNextTrigger(at time.Time) {
	if m == nil {
		return
	}
	m.nextTrigger.Set(float64(at.Unix()))
}
