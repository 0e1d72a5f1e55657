/*
Package metrics exposes Prometheus metrics for task runs.

All collectors register with the default registry in init. Batch runs are
short lived, so instead of serving /metrics the CLI writes the registry to a
node exporter textfile at exit (--metrics-file):

	timer := metrics.NewTimer()
	outcome := run(task)
	timer.ObserveDurationVec(metrics.TaskDuration, task.Module)
	metrics.TasksTotal.WithLabelValues(task.Module, string(outcome.Msg)).Inc()

	metrics.WriteTextfile("/var/lib/node_exporter/ovconverge.prom")

# Metrics

  - ovconverge_tasks_total{module,msg}
  - ovconverge_task_failures_total{module}
  - ovconverge_task_duration_seconds{module}
  - ovconverge_controller_requests_total{method,status}
  - ovconverge_controller_request_duration_seconds{method}
  - ovconverge_allocation_retries_total
  - ovconverge_power_cycles_total
*/
package metrics
