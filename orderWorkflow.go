package main

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/orders_backend/config"
	"bitbucket.org/mmdatafocus/orders_backend/models"
	"bitbucket.org/mmdatafocus/orders_backend/utils"
	"bitbucket.org/mmdatafocus/orders_backend/workflow"
	"cloud.google.com/go/pubsub"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	documentMutexMap = make(map[string]*sync.Mutex)
	globalMutex      = &sync.Mutex{}

	validate = validator.New()
)

// engineEnvelope is what we require of an incoming event before dispatching.
// Anything that fails validation is malformed at the producer and acked, not
// retried.
type engineEnvelope struct {
	ReferenceId   int    `validate:"required,gt=0"`
	ReferenceType string `validate:"required,oneof=OR BL"`
	Action        string `validate:"required,oneof=C U D"`
}

type workflowHandler struct {
	Name    string
	Process func(tx *gorm.DB, logger *logrus.Logger, msg config.PubSubMessage) error
}

// handlersFor is the dispatch registry: (reference type, action) -> handlers.
// Order creation fans out to two fully independent subscriptions; a failure
// in one never rolls back or blocks the other.
func handlersFor(referenceType string, action string) []workflowHandler {
	switch models.EngineReferenceType(referenceType) {
	case models.EngineReferenceTypeOrder:
		if action == string(models.PubSubMessageActionCreate) {
			return []workflowHandler{
				{Name: "DeliveryAssignment", Process: workflow.ProcessDeliveryAssignmentWorkflow},
				{Name: "InventoryDeduction", Process: workflow.ProcessInventoryDeductionWorkflow},
			}
		}
	case models.EngineReferenceTypeBill:
		if action == string(models.PubSubMessageActionCreate) || action == string(models.PubSubMessageActionUpdate) {
			return []workflowHandler{
				{Name: "CreditApplication", Process: workflow.ProcessCreditApplicationWorkflow},
			}
		}
	}
	return nil
}

// RunOrderWorkflow subscribes to the engine topic and processes events.
func RunOrderWorkflow() error {
	logger := config.GetLogger()
	ctx := context.Background()
	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}
	topic, err := config.CreateTopicIfNotExists(client, os.Getenv("PUBSUB_TOPIC"))
	if err != nil {
		return err
	}
	sub, err := config.CreateSubscriptionIfNotExists(client, os.Getenv("PUBSUB_SUBSCRIPTION"), topic)
	if err != nil {
		return err
	}
	// Specify the number of concurrent processes
	sub.ReceiveSettings.MaxOutstandingMessages = 10

	callback := func(ctx context.Context, msg *pubsub.Message) {
		m := config.PubSubMessage{}
		err := json.Unmarshal(msg.Data, &m)
		if err != nil {
			config.LogError(logger, "orderWorkflow.go", "RunOrderWorkflow", "Unmarshaling pubsub message", msg.Data, err)
			// Malformed payload: ack/drop, retries cannot fix it.
			msg.Ack()
			return
		}

		// Serialize per document to keep optimistic-conflict churn down when
		// the same order or bill is redelivered concurrently.
		key := m.ReferenceType + ":" + strconv.Itoa(m.ReferenceId)
		globalMutex.Lock()
		mutex, exists := documentMutexMap[key]
		if !exists {
			mutex = &sync.Mutex{}
			documentMutexMap[key] = mutex
		}
		globalMutex.Unlock()

		mutex.Lock()
		defer mutex.Unlock()

		ctx = utils.SetActorInContext(ctx, "System")
		ctx = utils.SetCorrelationIdInContext(ctx, m.CorrelationId)
		if err := ProcessMessage(ctx, logger, m); err != nil {
			actor, _ := utils.GetActorFromContext(ctx)
			logger.WithFields(logrus.Fields{
				"field":          "OrderWorkflow",
				"reference_type": m.ReferenceType,
				"reference_id":   m.ReferenceId,
				"message_id":     msg.ID,
				"actor":          actor,
			}).Error("pubsub processing failed: " + err.Error())
			msg.Nack()
			return
		}
		msg.Ack()
	}

	go func() {
		err := sub.Receive(ctx, callback)
		if err != nil {
			config.LogError(logger, "orderWorkflow.go", "RunOrderWorkflow", "Failed to receive messages", nil, err)
		}
	}()

	return nil
}

// ProcessMessage runs every handler registered for the event, each inside its
// own transaction with its own durable idempotency key. Handlers additionally
// re-read the triggering document and check its completion marker, so the
// at-least-once delivery underneath is observable as exactly-once.
func ProcessMessage(ctx context.Context, logger *logrus.Logger, m config.PubSubMessage) error {
	ctx, span := tracer.Start(ctx, "ProcessMessage")
	defer span.End()

	envelope := engineEnvelope{
		ReferenceId:   m.ReferenceId,
		ReferenceType: m.ReferenceType,
		Action:        m.Action,
	}
	if err := validate.Struct(envelope); err != nil {
		config.LogError(logger, "orderWorkflow.go", "ProcessMessage", "Validate envelope", m, err)
		// Terminal: drop without retry, but leave the outbox row marked with the error.
		markOutboxProcessed(ctx, m.ID, err)
		return nil
	}

	db := config.GetDB()
	messageId := strconv.Itoa(m.ID)

	var firstErr error
	for _, handler := range handlersFor(m.ReferenceType, m.Action) {
		// The claim commits on its own, outside the handler transaction: a
		// worker that crashes mid-handler leaves a committed STARTED row that
		// other workers see as in-progress and reclaim once it goes stale.
		skip, err := workflow.BeginIdempotency(db.WithContext(ctx), handler.Name, messageId)
		if err != nil {
			workflow.HandlerProcessedTotal.WithLabelValues(handler.Name, "error").Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if skip {
			workflow.HandlerProcessedTotal.WithLabelValues(handler.Name, "duplicate").Inc()
			continue
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := handler.Process(tx.WithContext(ctx), logger, m); err != nil {
				return err
			}
			return workflow.MarkIdempotencySucceeded(tx.WithContext(ctx), handler.Name, messageId)
		})
		if err != nil {
			// Outside the rolled-back transaction so the failure survives and
			// the next delivery retries immediately instead of waiting out the
			// stale-claim window.
			_ = workflow.MarkIdempotencyFailed(db.WithContext(ctx), handler.Name, messageId, err)
			workflow.HandlerProcessedTotal.WithLabelValues(handler.Name, "error").Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		workflow.HandlerProcessedTotal.WithLabelValues(handler.Name, "ok").Inc()
	}

	if firstErr != nil {
		return firstErr
	}

	markOutboxProcessed(ctx, m.ID, nil)
	return nil
}

func markOutboxProcessed(ctx context.Context, recordId int, procErr error) {
	if recordId <= 0 {
		return
	}
	db := config.GetDB()
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"is_processed": true,
		"processed_at": &now,
	}
	if procErr != nil {
		msg := procErr.Error()
		updates["last_process_error"] = &msg
	}
	_ = db.WithContext(ctx).Model(&models.PubSubMessageRecord{}).
		Where("id = ?", recordId).
		Updates(updates).Error
}
