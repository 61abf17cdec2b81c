package config

import (
	"os"
	"strings"
)

// DisableRecurrenceScheduler turns off the in-process recurring-expense
// scheduler. Useful when a dedicated replica owns the schedule.
//
// Set via env:
// - DISABLE_RECURRENCE_SCHEDULER=true
func DisableRecurrenceScheduler() bool {
	return boolFromEnv("DISABLE_RECURRENCE_SCHEDULER")
}

// OutboxDirectProcessing controls the no-Pub/Sub fallback worker that drains
// outbox rows in-process. Defaults to on: in some environments Pub/Sub
// settings exist but delivery or permissions are misconfigured, leaving rows
// stuck in PENDING/FAILED forever. Idempotency keys make the resulting
// at-least-once overlap safe.
//
// Set via env:
// - OUTBOX_DIRECT_PROCESSING=false
func OutboxDirectProcessing() bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv("OUTBOX_DIRECT_PROCESSING")))
	if val == "false" {
		return false
	}
	return true
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
