package background

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK    = "ok"
	resultError = "error"
	resultPanic = "panic"
)

var TaskRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "background_task_runs_total",
		Help: "Background task executions by result",
	},
	[]string{"task", "result"},
)

func observeRun(task Task, err error) {
	result := resultOK
	if err != nil {
		result = resultError
	}
	TaskRunsTotal.WithLabelValues(task.Info(), result).Inc()
}
