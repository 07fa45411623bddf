package audithook

// Action constants for audit events.
const (
	// Record actions
	ActionShotCreated    = "shot.created"
	ActionShotUpdated    = "shot.updated"
	ActionShotDeleted    = "shot.deleted"
	ActionShotDuplicated = "shot.duplicated"

	// Supply actions
	ActionCapacityBlocked = "capacity.blocked"
	ActionSupplyLow       = "supply.low"

	// Store actions
	ActionStoreFailed = "store.failed"
)

// Resource constants for audit events.
const (
	ResourceShot   = "shot"
	ResourceSupply = "supply"
	ResourceStore  = "store"
)

// Category constants for audit events.
const (
	CategoryRecord = "record"
	CategorySupply = "supply"
	CategoryStore  = "store"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
