package config

import "time"

// Defaults applied when the environment does not set a value
const (
	DefaultPort        = "8080"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultEnvironment = "dev"
	DefaultServiceName = "cardvault"
	DefaultVersion     = "dev"

	DefaultDBMaxConns        = 20
	DefaultDBMaxConnIdle     = 5 * time.Minute
	DefaultDBMaxConnLifetime = time.Hour
	DefaultShutdownTimeout   = 15 * time.Second

	DefaultCORSOrigin         = "http://localhost:5173"
	DefaultRateLimitPerMinute = 300

	DefaultAuditSessionTTL  = 30 * 24 * time.Hour
	DefaultCatalogCacheSize = 4096
	DefaultCatalogCacheTTL  = 10 * time.Minute

	DefaultNATSSubjectPrefix = "cardvault"

	DefaultEventMaxRetries     = 5
	DefaultEventRetryDelay     = 2 * time.Second
	DefaultEventDeadLetterPath = "deadletter.jsonl"
)

// MinJWTSecretLength is the shortest accepted HMAC secret
const MinJWTSecretLength = 16
