package workflow

import (
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/orders_backend/config"
	"bitbucket.org/mmdatafocus/orders_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProcessInventoryDeductionWorkflow reacts to order creation, independently of
// delivery assignment: deduct stock per line item and append one trail entry
// per affected product, then mark the order adjusted.
func ProcessInventoryDeductionWorkflow(tx *gorm.DB, logger *logrus.Logger, msg config.PubSubMessage) error {

	order, err := models.GetOrderWithDetails(tx, msg.ReferenceId)
	if err != nil {
		if models.IsRecordNotFound(err) {
			config.LogSkip(logger, "inventoryDeductionWorkflow.go", "ProcessInventoryDeductionWorkflow", "order no longer exists", msg.ReferenceId)
			return nil
		}
		return err
	}

	if order.InventoryAdjusted {
		return nil
	}

	now := time.Now().UTC()

	// Empty orders are marked adjusted immediately; otherwise the unadjusted
	// marker would make every redelivery re-enter this handler forever.
	if len(order.Details) == 0 {
		return markOrderInventoryAdjusted(tx, order.ID, now)
	}

	// Duplicate product lines are summed so a product is read and written once.
	qtyByProduct := map[int]decimal.Decimal{}
	productOrder := []int{}
	for _, detail := range order.Details {
		if detail.Qty.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if _, seen := qtyByProduct[detail.ProductId]; !seen {
			productOrder = append(productOrder, detail.ProductId)
		}
		qtyByProduct[detail.ProductId] = qtyByProduct[detail.ProductId].Add(detail.Qty)
	}

	// All reads happen before any write, under row locks so two orders sharing
	// a product serialize instead of both committing a stale absolute stock.
	// Locking in ascending product-id order keeps transactions from deadlocking
	// against each other.
	sort.Ints(productOrder)
	products := make(map[int]*models.Product, len(productOrder))
	for _, productId := range productOrder {
		product, err := models.GetProductByIdForUpdate(tx, productId)
		if err != nil {
			if models.IsRecordNotFound(err) {
				config.LogSkip(logger, "inventoryDeductionWorkflow.go", "ProcessInventoryDeductionWorkflow", "product no longer exists", productId)
				continue
			}
			return err
		}
		products[productId] = product
	}

	for _, productId := range productOrder {
		product, ok := products[productId]
		if !ok {
			continue
		}

		plan, ok := planStockDeduction(product, qtyByProduct[productId], order.ID, order.OrderNumber)
		if !ok {
			continue
		}

		err := tx.Model(&models.Product{}).
			Where("id = ?", product.ID).
			Update("stock_qty", plan.NextStock).Error
		if err != nil {
			return err
		}
		if err := tx.Create(&plan.Trail).Error; err != nil {
			return err
		}
	}

	return markOrderInventoryAdjusted(tx, order.ID, now)
}

type stockDeductionPlan struct {
	NextStock decimal.Decimal
	Trail     models.StockTrailEntry
}

// planStockDeduction decides what one order does to one product. Deduction is
// clamped at zero: stock never goes negative even when the requested quantity
// exceeds what is available. The trail entry still records the full requested
// delta so the shortfall stays auditable. Returns false for products that are
// not stock-tracked or for non-positive quantities.
func planStockDeduction(product *models.Product, qty decimal.Decimal, orderId int, orderNumber string) (stockDeductionPlan, bool) {
	if !product.Tracked() || qty.LessThanOrEqual(decimal.Zero) {
		return stockDeductionPlan{}, false
	}
	next := clampDeduction(product.StockQty, qty)
	return stockDeductionPlan{
		NextStock: next,
		Trail: models.StockTrailEntry{
			ProductId:      product.ID,
			Qty:            qty.Neg(),
			Reason:         models.StockTrailReasonSale,
			Notes:          fmt.Sprintf("Sale of %s for order %s", product.Name, orderNumber),
			OrderId:        orderId,
			ResultingStock: next,
		},
	}, true
}

func markOrderInventoryAdjusted(tx *gorm.DB, orderId int, now time.Time) error {
	return tx.Model(&models.Order{}).
		Where("id = ?", orderId).
		Updates(map[string]interface{}{
			"inventory_adjusted":    true,
			"inventory_adjusted_at": now,
		}).Error
}

// clampDeduction computes max(0, current - qty).
func clampDeduction(current, qty decimal.Decimal) decimal.Decimal {
	next := current.Sub(qty)
	if next.IsNegative() {
		return decimal.Zero
	}
	return next
}
