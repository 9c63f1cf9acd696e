package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldTransactionID = "transaction_id"
	FieldTemplateID    = "template_id"
	FieldMonth         = "month"
	FieldType          = "transaction_type"
	FieldCategory      = "category"
	FieldPaymentMode   = "payment_mode"
	FieldAmountCents   = "amount_cents"
	FieldTimezone      = "timezone"
	FieldExecutionDate = "execution_date"
	FieldOccurrence    = "occurrence"
	FieldInterval      = "interval"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentRecurring = "recurring"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentReconcile = "reconcile"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpUpsert    = "upsert"
	OpMarkDone  = "mark_done"
	OpSkip      = "skip"
	OpNotify    = "notify"
	OpExport    = "export"
	OpRecompute = "recompute"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
