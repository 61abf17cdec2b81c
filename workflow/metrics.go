package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HandlerProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_handler_processed_total",
		Help: "Handler invocations by outcome (ok, skip, duplicate, error).",
	}, []string{"handler", "outcome"})

	OutboxPublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_outbox_publish_total",
		Help: "Outbox publish attempts by outcome (sent, failed, dead).",
	}, []string{"outcome"})

	RecurrenceEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_recurring_expenses_emitted_total",
		Help: "Expenses emitted from recurring templates.",
	})
)
