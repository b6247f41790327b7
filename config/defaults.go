package config

import "time"

// Default runtime limits and guardrails for the Sheets MCP server. They are
// referenced by internal/runtime and can be overridden through Load.

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 10
	DefaultMaxOpenWorkbooks      = 4
	DefaultMaxFanout             = 4

	// Grid bounds
	DefaultMaxGridCells = 500_000
)

const (
	// Timeouts
	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second

	// Local workbook handle cache
	DefaultWorkbookIdleTTL       = 5 * time.Minute
	DefaultWorkbookCleanupPeriod = time.Minute

	// Google API retries
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 500 * time.Millisecond
)

// Page size defaults per tool.
const (
	DefaultListSheetsPageSize = 50
	DefaultSearchPageSize     = 10
	DefaultSheetNamesPageSize = 100
	DefaultTablesPageSize     = 50
)

const (
	BackendGoogle = "google"
	BackendLocal  = "local"
)
