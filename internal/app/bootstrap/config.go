// internal/app/bootstrap/config.go
package bootstrap

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// minJWTSecret is the shortest HS256 secret accepted in production.
const minJWTSecret = 32

// appConfigKeys defines the configuration keys for WasteHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: WASTEHUB_MONGO_URI, WASTEHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "wastehub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "jwt_secret", Default: "dev-only-jwt-secret-change-me-0123456789", Desc: "HS256 token signing secret (32+ bytes in production)"},
	{Name: "token_ttl", Default: "24h", Desc: "Lifetime of issued identity tokens"},

	{Name: "session_key", Default: "", Desc: "Session signing key (blank generates a random key in dev)"},
	{Name: "session_name", Default: "wastehub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	{Name: "cors_allowed_origins", Default: "http://localhost:3000", Desc: "Comma-separated list of allowed CORS origins"},
	{Name: "login_rate_limit", Default: 10, Desc: "Sign-in attempts allowed per IP per minute"},

	{Name: "org_auto_approve", Default: false, Desc: "Approve organizations at sign-up instead of leaving them pending"},
	{Name: "roster_poll_interval", Default: "5s", Desc: "Worker roster polling interval when change streams are unavailable"},

	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list queries"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for multi-collection operations"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "metrics_enabled", Default: true, Desc: "Serve Prometheus metrics at /metrics"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, WASTEHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "WASTEHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		TokenTTL:  appValues.Duration("token_ttl", 24*time.Hour),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),
		LoginRateLimit:     appValues.Int("login_rate_limit"),

		OrgAutoApprove:     appValues.Bool("org_auto_approve"),
		RosterPollInterval: appValues.Duration("roster_poll_interval", 5*time.Second),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		MetricsEnabled: appValues.Bool("metrics_enabled"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// An empty session key is accepted outside production; BuildHandler
// substitutes a random one (see resolveSessionKey).
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return errors.New("mongo_database must be set")
	}

	prod := coreCfg.Env == "prod"
	if prod && len(appCfg.JWTSecret) < minJWTSecret {
		return fmt.Errorf("jwt_secret must be at least %d bytes in production", minJWTSecret)
	}
	if appCfg.JWTSecret == "" {
		return errors.New("jwt_secret must be set")
	}
	if prod && appCfg.SessionKey == "" {
		return errors.New("session_key must be set in production")
	}
	if appCfg.TokenTTL <= 0 {
		return errors.New("token_ttl must be positive")
	}
	if appCfg.LoginRateLimit <= 0 {
		return errors.New("login_rate_limit must be positive")
	}
	for _, v := range []string{appCfg.AuditLogAuth, appCfg.AuditLogAdmin} {
		switch v {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("invalid audit log destination %q", v)
		}
	}
	return nil
}

// resolveSessionKey returns the configured key or, outside production, a
// random one. Random keys invalidate browser sessions on every restart.
func resolveSessionKey(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (string, error) {
	if appCfg.SessionKey != "" {
		return appCfg.SessionKey, nil
	}
	if coreCfg.Env == "prod" {
		return "", errors.New("session_key must be set in production")
	}
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return "", errors.New("generate session key")
	}
	logger.Warn("session_key not set; using a random key for this process")
	return base64.StdEncoding.EncodeToString(key), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
