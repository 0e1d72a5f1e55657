package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Task metrics
	TasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ovconverge_tasks_total",
			Help: "Total number of completed tasks by module and outcome message",
		},
		[]string{"module", "msg"},
	)

	TaskFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ovconverge_task_failures_total",
			Help: "Total number of failed tasks by module",
		},
		[]string{"module"},
	)

	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ovconverge_task_duration_seconds",
			Help:    "Task duration in seconds",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"module"},
	)

	// Controller metrics
	ControllerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ovconverge_controller_requests_total",
			Help: "Total number of controller requests by method and status",
		},
		[]string{"method", "status"},
	)

	ControllerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ovconverge_controller_request_duration_seconds",
			Help:    "Controller request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Reconciler metrics
	AllocationRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ovconverge_allocation_retries_total",
			Help: "Total number of server profile creations retried on another server",
		},
	)

	PowerCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ovconverge_power_cycles_total",
			Help: "Total number of server hardware power cycles driven by profile updates",
		},
	)
)

func init() {
	prometheus.MustRegister(TasksTotal)
	prometheus.MustRegister(TaskFailures)
	prometheus.MustRegister(TaskDuration)
	prometheus.MustRegister(ControllerRequestsTotal)
	prometheus.MustRegister(ControllerRequestDuration)
	prometheus.MustRegister(AllocationRetries)
	prometheus.MustRegister(PowerCycles)
}

// WriteTextfile writes every registered metric to path in the text
// exposition format read by the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}
