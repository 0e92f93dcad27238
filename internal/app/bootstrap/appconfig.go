// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, log level and request limits; everything specific to the
// waste reporting service lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Identity tokens
	JWTSecret string        // HS256 signing secret (at least 32 bytes in production)
	TokenTTL  time.Duration // Lifetime of issued tokens

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: wastehub-session)
	SessionDomain string // Cookie domain (blank means current host)

	// HTTP surface
	CORSAllowedOrigins []string
	LoginRateLimit     int // sign-in attempts per IP per minute

	// Organizations created at sign-up start approved instead of pending.
	OrgAutoApprove bool

	// Roster polling interval used when change streams are unavailable.
	RosterPollInterval time.Duration

	// Operation timeouts (zero keeps the default)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Audit logging: "all" (db+log), "db", "log", or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	MetricsEnabled bool
}
