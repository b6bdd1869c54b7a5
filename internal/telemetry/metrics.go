package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы обработки сообщения (label "outcome").
const (
	OutcomeAcked   = "acked"
	OutcomeDropped = "dropped"
	OutcomeRetried = "retried"
)

var (
	// MessagesTotal — сообщения, обработанные циклом consumer'а, по исходу.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_messages_total",
		Help: "Messages handled by a polling loop, by outcome",
	}, []string{"consumer", "outcome"})

	// ChannelErrorsTotal — сбои канала по операции (send, receive, delete, release).
	ChannelErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_channel_errors_total",
		Help: "Channel failures by operation",
	}, []string{"channel", "op"})

	// CycleDuration — длительность обработки одного сообщения.
	CycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conveyor_cycle_duration_seconds",
		Help:    "Time spent handling a single received message",
		Buckets: prometheus.DefBuckets,
	}, []string{"consumer"})

	// TasksSubmittedTotal — задачи, успешно отправленные в Task Channel.
	TasksSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_tasks_submitted_total",
		Help: "Tasks published to the task channel",
	}, []string{"type"})

	// TasksProcessedTotal — задачи, обработанные воркером, по статусу.
	TasksProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_tasks_processed_total",
		Help: "Tasks handled by the worker, by status",
	}, []string{"type", "status"})

	// ResultsStored — текущее количество записей в Result Store.
	ResultsStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "conveyor_results_stored",
		Help: "Number of results held in the in-process result store",
	})

	// HTTPRequestsTotal — запросы к HTTP API.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_http_requests_total",
		Help: "HTTP requests handled by the API, by route and status",
	}, []string{"route", "status"})
)
