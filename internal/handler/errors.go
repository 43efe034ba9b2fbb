package handler

// Generic HTTP error messages for client responses.
// These messages intentionally do not expose internal error details for security reasons.
// Both handlers and tests should reference these constants to maintain consistency.
const (
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"
	ErrMsgMissingOwner          = "Missing authenticated owner"

	// Path and query parameter error messages
	ErrMsgInvalidSessionID = "Invalid audit session ID"
	ErrMsgInvalidItemID    = "Invalid audit item ID"
	ErrMsgInvalidStackID   = "Invalid stack ID"
	ErrMsgInvalidLimit     = "Invalid limit parameter"
	ErrMsgInvalidQuantity  = "Invalid quantity parameter"
	ErrMsgInvalidWishlist  = "Invalid wishlist parameter"
	ErrMsgInvalidLocation  = "Invalid location parameter"
	ErrMsgInvalidPrice     = "Invalid price"

	// Operation names used in logs
	OpStartAudit     = "Start audit"
	OpGetActiveAudit = "Get active audit"
	OpGetAudit       = "Get audit"
	OpListAuditItems = "List audit items"
	OpRecordCount    = "Record count"
	OpBatchRecord    = "Batch record counts"
	OpAddAuditItem   = "Add audit item"
	OpSwapFoil       = "Swap foil"
	OpFinalizeAudit  = "Finalize audit"
	OpCancelAudit    = "Cancel audit"
	OpAuditStats     = "Audit stats"
	OpReviewSection  = "Review section"
	OpListStacks     = "List collection"
	OpExportStacks   = "Export collection"
	OpAcquireStack   = "Add to collection"
	OpUpdateStack    = "Update stack"
	OpDisposeStack   = "Remove from collection"
	OpMoveStack      = "Move cards"
)

// Success messages for API responses
const (
	MsgAuditCancelled  = "Audit cancelled"
	MsgCountsRecorded  = "Counts recorded"
	MsgSectionReviewed = "Section marked as reviewed"
	MsgStackRemoved    = "Stack removed"
)
