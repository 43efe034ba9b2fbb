package allocation

// Error messages
const (
	ErrMsgFindCandidates   = "failed to find candidate stacks"
	ErrMsgFindDestination  = "failed to find destination stack"
	ErrMsgTransferStack    = "failed to transfer stack"
	ErrMsgMaterializeStack = "failed to materialize stack"
	ErrMsgBeginTx          = "failed to begin transaction"
	ErrMsgCommitTx         = "failed to commit transaction"
)

// Log messages
const (
	LogMsgMaterialized         = "Materialized units to cover relocation shortfall"
	LogMsgShortfall            = "Relocation ran out of source stacks"
	LogMsgConservationViolated = "Relocation conservation check failed"
	LogMsgRelocated            = "Relocated card units"
)

// InvariantConservation names the conservation check in error logs
const InvariantConservation = "conservation"
