package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldMonthKey      = "month_key"
	FieldTransactionID = "transaction_id"
	FieldCategory      = "category"
	FieldAmountCents   = "amount_cents"
	FieldDescription   = "description"
	FieldInputType     = "input_type"
	FieldSheetsRef     = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentParser  = "parser"
	ComponentService = "service"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentExport  = "export"
)

// Operations defines standard operation names
const (
	OpConfirm  = "confirm"
	OpDelete   = "delete"
	OpReport   = "report"
	OpAccrue   = "accrue"
	OpParse    = "parse"
	OpValidate = "validate"
	OpSync     = "sync"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
