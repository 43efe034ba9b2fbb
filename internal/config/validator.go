package config

import (
	"errors"
	"fmt"
)

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable must be set for security"))
	} else if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.DBMaxConns <= 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns))
	}
	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute))
	}
	if c.AuditSessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("AUDIT_SESSION_TTL must be positive, got %s", c.AuditSessionTTL))
	}
	if c.CatalogCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("CATALOG_CACHE_SIZE must be positive, got %d", c.CatalogCacheSize))
	}
	if c.EventMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("EVENT_MAX_RETRIES must not be negative, got %d", c.EventMaxRetries))
	}

	return errors.Join(errs...)
}

// Warnings returns non-fatal configuration issues worth logging at startup
func (c *Config) Warnings() []string {
	var warnings []string
	if c.DBPassword == "postgres" && !c.IsDevelopment() {
		warnings = append(warnings, "DB_PASSWORD is using the default value outside development")
	}
	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			warnings = append(warnings, "CORS_ALLOWED_ORIGINS allows every origin")
		}
	}
	return warnings
}
