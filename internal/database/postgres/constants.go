package postgres

// PostgreSQL Error Codes
const (
	// PgErrorCodeUniqueViolation is the PostgreSQL error code for unique constraint violations
	PgErrorCodeUniqueViolation = "23505"
	// PgErrorCodeCheckViolation is raised when a quantity constraint fails
	PgErrorCodeCheckViolation = "23514"
)

// Constraint names referenced when mapping errors
const (
	ConstraintOneActiveSession = "audit_sessions_one_active"
	ConstraintStackPool        = "card_stacks_pool_uniq"
)

// Error Messages - Transaction Operations
const (
	ErrMsgFailedToBeginTransaction  = "failed to begin transaction"
	ErrMsgFailedToCommitTransaction = "failed to commit transaction"
)

// Error Messages - Stack Operations
const (
	ErrMsgFailedToFindStacks     = "failed to find stacks"
	ErrMsgFailedToGetStack       = "failed to get stack"
	ErrMsgFailedToUpsertStack    = "failed to upsert stack"
	ErrMsgFailedToDecrementStack = "failed to decrement stack"
	ErrMsgFailedToMoveStack      = "failed to move stack"
	ErrMsgFailedToUpdateStack    = "failed to update stack"
	ErrMsgFailedToDeleteStack    = "failed to delete stack"
	ErrMsgFailedToScanStack      = "failed to scan stack"
	ErrMsgInvalidPricePaid       = "invalid stored price"
)

// Error Messages - Audit Operations
const (
	ErrMsgFailedToGetSession      = "failed to get audit session"
	ErrMsgFailedToCreateSession   = "failed to create audit session"
	ErrMsgFailedToExpireSessions  = "failed to expire audit sessions"
	ErrMsgFailedToCompleteSession = "failed to complete audit session"
	ErrMsgFailedToDeleteSession   = "failed to delete audit session"
	ErrMsgFailedToInsertItems     = "failed to insert audit items"
	ErrMsgFailedToInsertItem      = "failed to insert audit item"
	ErrMsgFailedToGetItem         = "failed to get audit item"
	ErrMsgFailedToListItems       = "failed to list audit items"
	ErrMsgFailedToUpdateItem      = "failed to update audit item"
	ErrMsgFailedToReviewSection   = "failed to review section"
)

// Error Messages - Catalog Operations
const (
	ErrMsgFailedToGetCatalogCard = "failed to get catalog card"
)

// Audit session status literals used in SQL
const (
	statusActive    = "active"
	statusCompleted = "completed"
	statusExpired   = "expired"
)
