package workflow

import (
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/orders_backend/config"
	"bitbucket.org/mmdatafocus/orders_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EmitDueRecurringExpenses runs one scheduler tick: every active template
// whose NextOn has passed emits the expense for that period and advances
// NextOn by one period. A template several periods behind catches up one
// period per tick, always emitting against its own NextOn rather than the
// wall clock, so a late scheduler still produces the correct historical
// period.
func EmitDueRecurringExpenses(db *gorm.DB, logger *logrus.Logger, now time.Time, loc *time.Location) error {
	templates, err := models.GetDueRecurringTemplates(db, now)
	if err != nil {
		return err
	}

	for _, template := range templates {
		if err := emitRecurringExpense(db, logger, template.ID, now, loc); err != nil {
			// One broken template must not starve the rest of the schedule.
			config.LogError(logger, "recurringExpenseWorkflow.go", "EmitDueRecurringExpenses", "emitRecurringExpense", template.ID, err)
		}
	}
	return nil
}

func emitRecurringExpense(db *gorm.DB, logger *logrus.Logger, templateId int, now time.Time, loc *time.Location) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var template models.RecurringExpenseTemplate
		if err := tx.Where("id = ?", templateId).First(&template).Error; err != nil {
			if models.IsRecordNotFound(err) {
				return nil
			}
			return err
		}
		// Re-check inside the transaction; the snapshot from the scan may be stale.
		if !template.Active() || template.NextOn.After(now) {
			return nil
		}

		periodKey := PeriodKey(template.NextOn, loc)
		expenseKey := ExpenseKey(template.ID, periodKey)
		nextOn := AdvanceNextOn(template.NextOn, template.RepeatTerms, template.RepeatInterval)

		var existing models.Expense
		err := tx.Where("expense_key = ?", expenseKey).First(&existing).Error
		if err == nil {
			// This period was already emitted (a previous attempt crashed after
			// creating the expense). Just move the schedule forward.
			return advanceTemplate(tx, template.ID, nextOn, nil)
		}
		if !models.IsRecordNotFound(err) {
			return err
		}

		expense := models.Expense{
			ExpenseKey:  expenseKey,
			TemplateId:  template.ID,
			PeriodKey:   periodKey,
			SupplierId:  template.SupplierId,
			Category:    template.Category,
			Amount:      template.Amount,
			ExpenseDate: template.NextOn,
			Status:      models.ExpenseStatusRecorded,
		}
		if err := tx.Create(&expense).Error; err != nil {
			return err
		}
		RecurrenceEmittedTotal.Inc()

		emittedAt := time.Now().UTC()
		return advanceTemplate(tx, template.ID, nextOn, &emittedAt)
	})
}

func advanceTemplate(tx *gorm.DB, templateId int, nextOn time.Time, emittedAt *time.Time) error {
	updates := map[string]interface{}{
		"next_on": nextOn,
	}
	if emittedAt != nil {
		updates["last_emitted_on"] = emittedAt
	}
	return tx.Model(&models.RecurringExpenseTemplate{}).
		Where("id = ?", templateId).
		Updates(updates).Error
}

// PeriodKey derives the calendar key for one occurrence from the template's
// NextOn (not the wall clock), rendered in the engine's fixed timezone.
func PeriodKey(nextOn time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return nextOn.In(loc).Format("2006-01-02")
}

// ExpenseKey is the deterministic document identifier for a
// (template, period) pair.
func ExpenseKey(templateId int, periodKey string) string {
	return fmt.Sprintf("%d_%s", templateId, periodKey)
}

// AdvanceNextOn moves a schedule forward one period using calendar
// arithmetic; month and year rollovers follow time.AddDate normalization.
func AdvanceNextOn(nextOn time.Time, terms models.RecurringTerms, interval int) time.Time {
	if interval <= 0 {
		interval = 1
	}
	switch terms {
	case models.RecurringTermsDay:
		return nextOn.AddDate(0, 0, interval)
	case models.RecurringTermsWeek:
		return nextOn.AddDate(0, 0, 7*interval)
	case models.RecurringTermsMonth:
		return nextOn.AddDate(0, interval, 0)
	case models.RecurringTermsYear:
		return nextOn.AddDate(interval, 0, 0)
	default:
		return nextOn.AddDate(0, interval, 0)
	}
}
