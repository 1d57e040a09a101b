package audithook

// Action constants for audit events.
const (
	// Lifecycle actions
	ActionLedgerStarted = "ledger.started"
	ActionLedgerStopped = "ledger.stopped"

	// Token actions
	ActionTokenDeployed = "token.deployed"

	// Transfer actions
	ActionTransferExecuted  = "transfer.executed"
	ActionTransferDelegated = "transfer.delegated"

	// Allowance actions
	ActionAllowanceSet     = "allowance.set"
	ActionAllowanceCleared = "allowance.cleared"

	// Rejected calls
	ActionCallRejected = "call.rejected"

	// Journal actions
	ActionJournalFlushed = "journal.flushed"
)

// Resource constants for audit events.
const (
	ResourceLedger    = "ledger"
	ResourceToken     = "token"
	ResourceTransfer  = "transfer"
	ResourceAllowance = "allowance"
	ResourceJournal   = "journal"
)

// Category constants for audit events.
const (
	CategoryLifecycle = "lifecycle"
	CategoryTransfer  = "transfer"
	CategoryAccess    = "access"
	CategoryStorage   = "storage"
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
