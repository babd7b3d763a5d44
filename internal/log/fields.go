package log

// Shared field and component names so log records stay greppable across
// packages.
const (
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldDuration  = "duration_ms"
	FieldUsername  = "username"
	FieldExpenseID = "expense_id"

	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentWorker  = "worker"
)
