package constant

// Request context keys
const (
	RequestIDKey = "request_id"
)

// HTTP header names
const (
	HeaderRequestID          = "X-Request-ID"
	HeaderContentType        = "Content-Type"
	HeaderContentDisposition = "Content-Disposition"
)

// History storage
const (
	HistoryStorageKey = "qrHistory"
	HistoryLimit      = 20
	LabelMaxLength    = 40
	EmptyHistoryText  = "No previous sessions yet. Generate your first QR code!"
	NoMatchesText     = "No history entries match your search."
)

// Remote image service
const (
	DefaultServiceBase    = "https://api.qrserver.com/v1/create-qr-code/"
	DefaultDownloadPrefix = "qr-code"
	DownloadExtension     = ".png"
)

// Time layouts
const (
	TimestampLayout   = "2006-01-02T15:04:05.000Z"
	DisplayDateLayout = "1/2/2006 3:04:05 PM"
	DayLayout         = "1/2/2006"
	ClockLayout       = "3:04:05 PM"
)

// Function/Context names
const (
	// Domain context names
	CtxGenerate     = "Generate"
	CtxHistoryList  = "HistoryList"
	CtxHistoryAdd   = "HistoryAdd"
	CtxHistoryDel   = "HistoryRemoveAt"
	CtxHistoryClear = "HistoryClear"
	CtxDownload     = "Download"
	CtxRender       = "Render"
	CtxPerform      = "Perform"

	// Infrastructure context names
	CtxDB         = "db"
	CtxGetItem    = "GetItem"
	CtxSetItem    = "SetItem"
	CtxRemoveItem = "RemoveItem"
	CtxClose      = "Close"
	CtxAPI        = "api"
	CtxStub       = "StubService"

	// General context names
	CtxRouter  = "Router"
	CtxMain    = "Main"
	CtxPage    = "Page"
	CtxHandler = "Handler"
)

// Data field keys
const (
	// Service data fields
	DataURL       = "url"
	DataQRURL     = "qr_url"
	DataSize      = "size"
	DataIndex     = "index"
	DataRecordID  = "record_id"
	DataCount     = "count"
	DataFilename  = "filename"
	DataBytes     = "bytes"
	DataKey       = "key"
	DataQuery     = "query"
	DataAction    = "action"
	DataHTTPCode  = "http_status"
	DataRemaining = "remaining"

	// Database data fields
	DataPath         = "path"
	DataElapsed      = "elapsed"
	DataRows         = "rows"
	DataSQL          = "sql"
	DataData         = "data"
	DataRowsAffected = "rows_affected"

	// API data fields
	DataMethod      = "method"
	DataStatus      = "status"
	DataLatency     = "latency"
	DataRemoteAddr  = "remote_addr"
	DataUserAgent   = "user_agent"
	DataPort        = "port"
	DataDBPath      = "db_path"
	DataEnvironment = "environment"
	DataStub        = "stub_service"
)

// Error message constants
const (
	ErrInvalidURL      = "please enter a valid URL (including http:// or https://)"
	ErrInvalidSize     = "size must be a positive integer"
	ErrSizeNotAllowed  = "size is not one of the allowed sizes"
	ErrIndexOutOfRange = "history index out of range"
	ErrStaleIndex      = "history entry at index has changed"
	ErrNetwork         = "failed to download QR code"
	ErrForeignImageURL = "image URL does not belong to the configured service"
	ErrRecordNotFound  = "history entry not found"
)

// Error codes
const (
	ErrCodeAPIDecodeRequest  = "API001"
	ErrCodeAPIServiceError   = "API002"
	ErrCodeAPIBadParam       = "API003"
	ErrCodeAPITemplate       = "API004"
	ErrCodeAppDBInit         = "APP001"
	ErrCodeAppServerStart    = "APP002"
	ErrCodeAppServerShutdown = "APP003"
)

// Error types
const (
	ErrTypeAPI = "api"
	ErrTypeApp = "application"
)

// Routes
const (
	RoutePage            = "/"
	RouteGenerateForm    = "/generate"
	RouteGenerate        = "/api/qr"
	RouteHistory         = "/api/history"
	RouteHistoryItem     = "/api/history/{index}"
	RouteHistoryDownload = "/api/history/{index}/download"
	RouteDownload        = "/api/download"
	RouteHealthcheck     = "/health"
	RouteStubService     = "/stub/create-qr-code/"
	RouteDeleteForm      = "/history/{index}/delete"
	RouteClearForm       = "/history/clear"
)

// Log keys
const (
	LogTimeKey         = "time"
	LogLevelKey        = "level"
	LogNameKey         = "logger"
	LogCallerKey       = "caller"
	LogMessageKey      = "msg"
	LogStacktraceKey   = "stacktrace"
	LogRequestIDKey    = "request_id"
	LogFunctionKey     = "function"
	LogErrorCodeKey    = "error_code"
	LogErrorTypeKey    = "error_type"
	LogErrorMessageKey = "error_message"
	LogEncodingJSON    = "json"
	LogEncodingConsole = "console"
	LogOutputStderr    = "stderr"
)

// Message constants for application
const (
	MsgApplicationStarting = "Application starting"
	MsgFailedToInitDB      = "Failed to initialize database"
	MsgFailedToLoadConfig  = "Failed to load configuration"
	MsgServerStarting      = "Server starting"
	MsgServerFailedToStart = "Server failed to start"
	MsgServerShuttingDown  = "Server shutting down"
	MsgServerShutdownError = "Error during server shutdown"
	MsgServerStopped       = "Server stopped"
	MsgRequestReceived     = "Request received"
	MsgRequestCompleted    = "Request completed"
	MsgSettingUpRoutes     = "Setting up API routes"
	MsgHealthcheckRequest  = "Handling healthcheck request"
	MsgHealthy             = "Healthy"
	MsgDownloadSucceeded   = "QR Code downloaded successfully!"
	MsgHistoryCleared      = "History cleared successfully!"
	MsgHistoryItemDeleted  = "Item deleted successfully!"
	MsgRenderingPage       = "Rendering page"
)

// Cache Namespace
const (
	StorageNamespace = "KV"
)
