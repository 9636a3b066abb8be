package constant

// Domain service error codes
const (
	// Validation errors (0xx)
	ErrCodeInvalidURL  = "SVC001"
	ErrCodeInvalidSize = "SVC002"

	// History errors (1xx)
	ErrCodeHistoryRead     = "SVC101"
	ErrCodeHistoryWrite    = "SVC102"
	ErrCodeHistoryCorrupt  = "SVC103"
	ErrCodeIndexOutOfRange = "SVC104"
	ErrCodeStaleIndex      = "SVC105"

	// Download errors (2xx)
	ErrCodeDownloadNetwork = "SVC201"
	ErrCodeDownloadStatus  = "SVC202"
	ErrCodeDownloadTemp    = "SVC203"
	ErrCodeDownloadSave    = "SVC204"
)

// Database error codes
const (
	// General DB errors (5xx)
	ErrCodeDBGeneral = "DB500"

	// Connection errors (0xx)
	ErrCodeDBOpen    = "DB001"
	ErrCodeDBMigrate = "DB002"

	// SetItem errors (1xx)
	ErrCodeDBUpsert = "DB101"

	// GetItem errors (2xx)
	ErrCodeDBLookup = "DB201"

	// RemoveItem errors (3xx)
	ErrCodeDBDelete = "DB301"

	// Close operation errors (4xx)
	ErrCodeDBClose = "DB401"
)

// Error types for categorization
const (
	// Domain error types
	ErrTypeValidation = "validation"
	ErrTypeStorage    = "storage"
	ErrTypeRetrieval  = "retrieval"
	ErrTypeNetwork    = "network"

	// Infrastructure error types
	ErrTypeDB = "db"
)
