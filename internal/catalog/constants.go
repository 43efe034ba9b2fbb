package catalog

// Cache key prefixes
const (
	keyPrefixID         = "id:"
	keyPrefixSetNumber  = "sn:"
	keyPrefixFoldedName = "name:"
)

// Log messages
const (
	LogMsgCatalogMiss = "Catalog lookup found no card"
)

// Error messages
const (
	ErrMsgEmptyFragment = "identity fragment has no lookup fields"
	ErrMsgCatalogLookup = "catalog lookup failed"
	ErrMsgInvalidFinish = "invalid finish"
)
