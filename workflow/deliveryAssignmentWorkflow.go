package workflow

import (
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/orders_backend/config"
	"bitbucket.org/mmdatafocus/orders_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProcessDeliveryAssignmentWorkflow reacts to order creation: pick an agent
// (configured default first, otherwise least-loaded active agent), stamp the
// order and bump the agent's counter — all inside the caller's transaction.
func ProcessDeliveryAssignmentWorkflow(tx *gorm.DB, logger *logrus.Logger, msg config.PubSubMessage) error {

	order, err := models.GetOrderWithDetails(tx, msg.ReferenceId)
	if err != nil {
		if models.IsRecordNotFound(err) {
			// Order deleted before we got here. Terminal; retrying cannot fix it.
			config.LogSkip(logger, "deliveryAssignmentWorkflow.go", "ProcessDeliveryAssignmentWorkflow", "order no longer exists", msg.ReferenceId)
			return nil
		}
		return err
	}

	// Completion marker: an assigned order is a finished (order, handler) pair.
	if order.DeliveryAgentId != nil {
		return nil
	}

	settings, err := models.GetOrderSettings(tx)
	if err != nil {
		return err
	}
	if !settings.AutoAssign() {
		return nil
	}

	agent, err := selectDeliveryAgent(tx, settings)
	if err != nil {
		return err
	}
	if agent == nil {
		// No active agent is a business condition, not a fault. The order stays
		// unassigned for manual follow-up; do not park the message in retry.
		config.LogSkip(logger, "deliveryAssignmentWorkflow.go", "ProcessDeliveryAssignmentWorkflow", "no active delivery agent available", order.ID)
		return nil
	}

	// Re-validate inside the transaction: the staff UI may have deactivated
	// the agent between selection and commit. Erroring here rolls back the
	// whole transaction and the redelivered event re-selects from scratch.
	current, err := models.GetDeliveryAgentById(tx, agent.ID)
	if err != nil {
		return err
	}
	if !current.Active() {
		return fmt.Errorf("delivery agent %d deactivated during assignment", agent.ID)
	}

	now := time.Now().UTC()
	err = tx.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"delivery_agent_id":    agent.ID,
			"delivery_assigned_at": now,
		}).Error
	if err != nil {
		return err
	}

	return tx.Model(&models.DeliveryAgent{}).
		Where("id = ?", agent.ID).
		Update("assigned_order_count", gorm.Expr("assigned_order_count + 1")).Error
}

func selectDeliveryAgent(tx *gorm.DB, settings *models.OrderSettings) (*models.DeliveryAgent, error) {
	if settings.DefaultDeliveryAgentId != nil {
		agent, err := models.GetDeliveryAgentById(tx, *settings.DefaultDeliveryAgentId)
		if err != nil && !models.IsRecordNotFound(err) {
			return nil, err
		}
		if agent != nil && agent.Active() {
			return agent, nil
		}
		// Default missing or inactive: fall through to least-loaded.
	}

	agents, err := models.GetActiveDeliveryAgents(tx)
	if err != nil {
		return nil, err
	}
	return pickLeastLoadedAgent(agents), nil
}

// pickLeastLoadedAgent returns the active agent with the fewest assigned
// orders, ties broken by id for stability across replays. Nil when no agent
// qualifies.
func pickLeastLoadedAgent(agents []models.DeliveryAgent) *models.DeliveryAgent {
	candidates := make([]models.DeliveryAgent, 0, len(agents))
	for _, a := range agents {
		if a.Active() {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].AssignedOrderCount != candidates[j].AssignedOrderCount {
			return candidates[i].AssignedOrderCount < candidates[j].AssignedOrderCount
		}
		return candidates[i].ID < candidates[j].ID
	})
	return &candidates[0]
}
