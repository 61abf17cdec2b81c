package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/orders_backend/models"
)

func agent(id int, active bool, count int) models.DeliveryAgent {
	return models.DeliveryAgent{
		ID:                 id,
		Name:               "agent",
		IsActive:           &active,
		AssignedOrderCount: count,
	}
}

func TestPickLeastLoadedAgent(t *testing.T) {
	agents := []models.DeliveryAgent{
		agent(1, true, 3),
		agent(2, true, 1),
		agent(3, true, 5),
	}
	got := pickLeastLoadedAgent(agents)
	if got == nil || got.ID != 2 {
		t.Fatalf("expected agent 2, got %+v", got)
	}
}

func TestPickLeastLoadedAgent_TieBreaksById(t *testing.T) {
	agents := []models.DeliveryAgent{
		agent(7, true, 2),
		agent(4, true, 2),
		agent(9, true, 2),
	}
	got := pickLeastLoadedAgent(agents)
	if got == nil || got.ID != 4 {
		t.Fatalf("expected agent 4 on tie, got %+v", got)
	}
}

func TestPickLeastLoadedAgent_FiltersInactive(t *testing.T) {
	agents := []models.DeliveryAgent{
		agent(1, false, 0),
		agent(2, true, 10),
	}
	got := pickLeastLoadedAgent(agents)
	if got == nil || got.ID != 2 {
		t.Fatalf("expected only active agent 2, got %+v", got)
	}
}

func TestPickLeastLoadedAgent_NoneAvailable(t *testing.T) {
	if got := pickLeastLoadedAgent(nil); got != nil {
		t.Fatalf("expected nil for empty list, got %+v", got)
	}
	agents := []models.DeliveryAgent{agent(1, false, 0)}
	if got := pickLeastLoadedAgent(agents); got != nil {
		t.Fatalf("expected nil when all agents are inactive, got %+v", got)
	}
}
