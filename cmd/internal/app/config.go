package app

import (
	"time"

	"crabba/cmd/internal/bridge"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrateOnStart bool

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// HomeserverURL is the Matrix homeserver base URL. Resolved from
	// CRABBA_MATRIX_HOMESERVER_URL first, then the legacy
	// CRABBA_MATRIX_BASE_URL.
	HomeserverURL string

	// DeviceName labels devices created by token-exchange logins.
	DeviceName string

	// SessionSecret verifies external session JWTs (HS256).
	SessionSecret string
	// SessionCookie is the cookie carrying the session token when no
	// Authorization header is present.
	SessionCookie string

	CORSAllowOrigin string

	Bridge bridge.Config
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("CRABBA_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("CRABBA_LOG_LEVEL", "info"),
		LogFormat: EnvString("CRABBA_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("CRABBA_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("CRABBA_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("CRABBA_HTTP_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       EnvDuration("CRABBA_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("CRABBA_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("CRABBA_DATABASE_URL", ""),
		DBMaxConns:     EnvInt32("CRABBA_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("CRABBA_DB_MIN_CONNS", 0),
		MigrateOnStart: EnvBool("CRABBA_MIGRATE_ON_START", true),

		ReadinessRequireDB: EnvBool("CRABBA_READINESS_REQUIRE_DB", false),

		HomeserverURL: EnvFirstString("",
			"CRABBA_MATRIX_HOMESERVER_URL", "CRABBA_MATRIX_BASE_URL"),
		DeviceName: EnvString("CRABBA_MATRIX_DEVICE_NAME", ""),

		SessionSecret: EnvString("CRABBA_SESSION_JWT_SECRET", ""),
		SessionCookie: EnvString("CRABBA_SESSION_COOKIE", ""),

		CORSAllowOrigin: EnvString("CRABBA_CORS_ALLOW_ORIGIN", ""),

		Bridge: bridge.Config{
			ServerDomain:  EnvString("CRABBA_MATRIX_DOMAIN", bridge.DefaultServerDomain),
			StaleDomains:  EnvStrings("CRABBA_MATRIX_STALE_DOMAINS", bridge.DefaultStaleDomains),
			AutoProvision: EnvBool("CRABBA_BRIDGE_AUTO_PROVISION", true),
			AdminToken:    EnvString("CRABBA_MATRIX_ADMIN_TOKEN", ""),
			SyncKey:       EnvString("CRABBA_SYNC_KEY", ""),
			MaxBodyBytes:  int64(EnvInt("CRABBA_HTTP_MAX_BODY_BYTES", int(bridge.DefaultMaxBodyBytes))),
			TrustProxy:    EnvBool("CRABBA_TRUST_PROXY", false),
		},
	}
}
