package models

type PubSubMessageAction string

const (
	PubSubMessageActionCreate PubSubMessageAction = "C"
	PubSubMessageActionUpdate PubSubMessageAction = "U"
	PubSubMessageActionDelete PubSubMessageAction = "D"
)

// EngineReferenceType identifies which document kind an outbox record points
// at. The worker dispatches on (reference type, action).
type EngineReferenceType string

const (
	EngineReferenceTypeOrder EngineReferenceType = "OR"
	EngineReferenceTypeBill  EngineReferenceType = "BL"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

type RecurringTerms string

const (
	RecurringTermsDay   RecurringTerms = "D"
	RecurringTermsWeek  RecurringTerms = "W"
	RecurringTermsMonth RecurringTerms = "M"
	RecurringTermsYear  RecurringTerms = "Y"
)

type BillStatus string

const (
	BillStatusOpen          BillStatus = "Open"
	BillStatusPartiallyPaid BillStatus = "PartiallyPaid"
	BillStatusPaid          BillStatus = "Paid"
	BillStatusCancelled     BillStatus = "Cancelled"
)

type SupplierCreditStatus string

const (
	SupplierCreditStatusOpen   SupplierCreditStatus = "Open"
	SupplierCreditStatusClosed SupplierCreditStatus = "Closed"
)

type StockTrailReason string

const (
	StockTrailReasonSale       StockTrailReason = "Sale"
	StockTrailReasonAdjustment StockTrailReason = "Adjustment"
)

type ExpenseStatus string

const (
	ExpenseStatusRecorded ExpenseStatus = "Recorded"
	ExpenseStatusVoid     ExpenseStatus = "Void"
)

type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "Confirmed"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)
