package models

type DocumentType string

const (
	DocumentTypeSalesInvoice    DocumentType = "sales_invoice"
	DocumentTypePurchaseInvoice DocumentType = "purchase_invoice"
)

const (
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusError   = "error"
)

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredCron   = "cron"
)
