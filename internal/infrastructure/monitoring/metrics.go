package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type ReminderMetrics struct {
	SentTotal      prometheus.Counter
	ErrorsTotal    prometheus.Counter
	RunsTotal      *prometheus.CounterVec
	LocksReclaimed prometheus.Counter
	RunDuration    prometheus.Histogram
}

var (
	HTTP = HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reminder_engine_http_requests_total",
				Help: "Total number of HTTP requests received.",
			},
			[]string{"method", "path", "code"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reminder_engine_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "code"},
		),
	}

	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reminder_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Reminder = ReminderMetrics{
		SentTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "reminder_engine_reminders_sent_total",
				Help: "Total number of reminder messages successfully sent.",
			},
		),
		ErrorsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "reminder_engine_reminder_errors_total",
				Help: "Total number of reminder send attempts that failed.",
			},
		),
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reminder_engine_runs_total",
				Help: "Total number of reminder engine runs by outcome.",
			},
			[]string{"outcome"},
		),
		LocksReclaimed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "reminder_engine_orphan_locks_reclaimed_total",
				Help: "Total number of orphaned reminder locks cleared.",
			},
		),
		RunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reminder_engine_run_duration_seconds",
				Help:    "Histogram of full reminder run durations.",
				Buckets: []float64{.05, .25, 1, 5, 15, 60, 300, 900},
			},
		),
	}
)

func RecordHTTPRequest(method, path, code string, duration time.Duration) {
	HTTP.RequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTP.RequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordRun(outcome string, duration time.Duration) {
	Reminder.RunsTotal.WithLabelValues(outcome).Inc()
	Reminder.RunDuration.Observe(duration.Seconds())
}

func RecordReminderSent() {
	Reminder.SentTotal.Inc()
}

func RecordReminderError() {
	Reminder.ErrorsTotal.Inc()
}

func RecordLocksReclaimed(n int64) {
	Reminder.LocksReclaimed.Add(float64(n))
}
