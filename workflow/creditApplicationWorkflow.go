package workflow

import (
	"bitbucket.org/mmdatafocus/orders_backend/config"
	"bitbucket.org/mmdatafocus/orders_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type creditAllocation struct {
	CreditId int
	Amount   decimal.Decimal
}

// ProcessCreditApplicationWorkflow reacts to bill create/update: apply the
// supplier's open credits against the bill, smallest balance first, until the
// bill is covered or credits run out.
//
// The sum of committed CreditApplication rows is the idempotency anchor.
// A redelivered event recomputes that sum and finds nothing left to apply.
func ProcessCreditApplicationWorkflow(tx *gorm.DB, logger *logrus.Logger, msg config.PubSubMessage) error {

	// The locked bill read is the serialization point: a concurrent event for
	// the same bill blocks here and then recomputes the applied sum against
	// the committed application rows.
	bill, err := models.GetBillByIdForUpdate(tx, msg.ReferenceId)
	if err != nil {
		if models.IsRecordNotFound(err) {
			config.LogSkip(logger, "creditApplicationWorkflow.go", "ProcessCreditApplicationWorkflow", "bill no longer exists", msg.ReferenceId)
			return nil
		}
		return err
	}

	if bill.CurrentStatus == models.BillStatusCancelled {
		return nil
	}
	if !bill.AutoApply() {
		return nil
	}
	if bill.RemainingBalance.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	alreadyApplied, err := models.SumCreditApplications(tx, bill.ID)
	if err != nil {
		return err
	}

	// The application sum drives idempotency; the stored balance only caps
	// allocation so payments recorded outside this engine are respected.
	remaining := bill.BillTotalAmount.Sub(alreadyApplied)
	if bill.RemainingBalance.LessThan(remaining) {
		remaining = bill.RemainingBalance
	}
	if remaining.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	credits, err := models.GetOpenSupplierCredits(tx, bill.SupplierId)
	if err != nil {
		return err
	}

	allocations := allocateCredits(remaining, credits)

	for _, allocation := range allocations {
		var credit *models.SupplierCredit
		for i := range credits {
			if credits[i].ID == allocation.CreditId {
				credit = &credits[i]
				break
			}
		}

		newBalance := credit.RemainingBalance.Sub(allocation.Amount)
		updates := map[string]interface{}{
			"remaining_balance": newBalance,
		}
		if newBalance.IsZero() {
			updates["current_status"] = models.SupplierCreditStatusClosed
		}
		err := tx.Model(&models.SupplierCredit{}).
			Where("id = ?", credit.ID).
			Updates(updates).Error
		if err != nil {
			return err
		}

		application := models.CreditApplication{
			BillId:           bill.ID,
			SupplierCreditId: credit.ID,
			Amount:           allocation.Amount,
		}
		if err := tx.Create(&application).Error; err != nil {
			return err
		}

		remaining = remaining.Sub(allocation.Amount)
	}

	return tx.Model(&models.Bill{}).
		Where("id = ?", bill.ID).
		Update("remaining_balance", remaining).Error
}

// allocateCredits walks credits in the given order (callers pass them sorted
// by ascending remaining balance) and carves min(remaining, creditBalance)
// out of each until the target is covered. Credits with nothing left are
// passed over.
func allocateCredits(remaining decimal.Decimal, credits []models.SupplierCredit) []creditAllocation {
	var allocations []creditAllocation
	for _, credit := range credits {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		if credit.RemainingBalance.LessThanOrEqual(decimal.Zero) {
			continue
		}
		amount := credit.RemainingBalance
		if remaining.LessThan(amount) {
			amount = remaining
		}
		allocations = append(allocations, creditAllocation{
			CreditId: credit.ID,
			Amount:   amount,
		})
		remaining = remaining.Sub(amount)
	}
	return allocations
}
