package audit

// Error messages
const (
	ErrMsgBeginTx          = "failed to begin transaction"
	ErrMsgCommitTx         = "failed to commit transaction"
	ErrMsgExpireSessions   = "failed to expire lapsed sessions"
	ErrMsgCreateSession    = "failed to create audit session"
	ErrMsgSnapshot         = "failed to snapshot stacks"
	ErrMsgGetSession       = "failed to get audit session"
	ErrMsgListItems        = "failed to list audit items"
	ErrMsgUpdateItem       = "failed to update audit item"
	ErrMsgAddItem          = "failed to add audit item"
	ErrMsgReviewSection    = "failed to review section"
	ErrMsgReconcileItem    = "failed to reconcile audit item"
	ErrMsgCompleteSession  = "failed to complete audit session"
	ErrMsgCancelSession    = "failed to cancel audit session"
	ErrMsgSwapFoil         = "failed to swap foil"
	ErrMsgTargetRequired   = "deck and set audits require a target"
	ErrMsgUnknownScope     = "unknown audit scope"
	ErrMsgUnknownGroupBy   = "unknown stats grouping"
	ErrMsgEmptyUpdate      = "quantity or reviewed is required"
	ErrMsgEmptyBatch       = "no updates given"
	ErrMsgSectionRequired  = "deckId or group is required"
	ErrMsgNotDeckAudit     = "foil swap is only available in deck audits"
	ErrMsgNoNonfoilInDeck  = "no nonfoil copy in the deck"
	ErrMsgNoFoilInBinder   = "no foil copy in the binder"
	ErrMsgNoNonfoilItem    = "no nonfoil audit item for the card"
	ErrMsgSwapFromPremium  = "foil swap must be called on the nonfoil item"
	ErrMsgNegativeQuantity = "quantity must not be negative"
)

// Log messages
const (
	LogMsgSessionStarted   = "Audit session started"
	LogMsgSessionsExpired  = "Expired lapsed audit sessions"
	LogMsgSessionFinalized = "Audit session finalized"
	LogMsgSessionCancelled = "Audit session cancelled"
	LogMsgItemSoftFailure  = "Audit item could not be reconciled"
	LogMsgFoilSwapped      = "Swapped foil into deck"
	LogMsgAttributesMissed = "Card attributes unavailable, grouping as unknown"
)

// Stats grouping keys
const (
	GroupColorless  = "colorless"
	GroupMulticolor = "multicolor"
)

// primaryTypes orders card types by which one names a type line
var primaryTypes = []string{
	"Creature",
	"Planeswalker",
	"Battle",
	"Land",
	"Instant",
	"Sorcery",
	"Artifact",
	"Enchantment",
}
