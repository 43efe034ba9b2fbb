package collection

// List limits
const (
	DefaultListLimit = 500
	MaxListLimit     = 5000
)

// Error messages
const (
	ErrMsgListStacks        = "failed to list stacks"
	ErrMsgExportStacks      = "failed to export stacks"
	ErrMsgResolveIdentity   = "failed to resolve card identity"
	ErrMsgAcquireStack      = "failed to add stack"
	ErrMsgUpdateStack       = "failed to update stack"
	ErrMsgDisposeStack      = "failed to remove stack"
	ErrMsgBeginTx           = "failed to begin transaction"
	ErrMsgCommitTx          = "failed to commit transaction"
	ErrMsgIdentityRequired  = "catalog id or name is required"
	ErrMsgInvalidFinish     = "unknown finish"
	ErrMsgNegativeQuantity  = "quantity must not be negative"
	ErrMsgDisposeTooMany    = "cannot remove more copies than the stack holds"
	ErrMsgNoResolver        = "card lookup is unavailable"
	ErrMsgInvalidListLimit  = "limit must be between 0 and 5000"
	ErrMsgNegativePricePaid = "price paid must not be negative"
)

// Log messages
const (
	LogMsgStackAcquired = "Stack added to collection"
	LogMsgStackUpdated  = "Stack updated"
	LogMsgStackDisposed = "Stack removed from collection"
	LogMsgStackMoved    = "Stack moved"
)
