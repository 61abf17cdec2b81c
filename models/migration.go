package models

import (
	"log"

	"bitbucket.org/mmdatafocus/orders_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Order{}, &OrderDetail{},
		&DeliveryAgent{},
		&Product{}, &StockTrailEntry{},
		&Bill{}, &CreditApplication{},
		&SupplierCredit{},
		&RecurringExpenseTemplate{}, &Expense{},
		&OrderSettings{},
		&PubSubMessageRecord{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
