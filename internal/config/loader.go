package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SPONSORD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SPONSORD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "SPONSORD_DATABASE_DSN")
	setStr(&cfg.Database.Host, "SPONSORD_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SPONSORD_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SPONSORD_DATABASE_NAME")
	setStr(&cfg.Database.User, "SPONSORD_DATABASE_USER")
	setStr(&cfg.Database.Password, "SPONSORD_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SPONSORD_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "SPONSORD_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SPONSORD_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SPONSORD_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SPONSORD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SPONSORD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SPONSORD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SPONSORD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SPONSORD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SPONSORD_REDIS_TLS_ENABLED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SPONSORD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SPONSORD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SPONSORD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.JWTSecret, "SPONSORD_SERVER_JWT_SECRET")

	// ── Settlement ──
	setDuration(&cfg.Settlement.LockTTL, "SPONSORD_SETTLEMENT_LOCK_TTL")
	setBool(&cfg.Settlement.DispatchRequiresSuccess, "SPONSORD_SETTLEMENT_DISPATCH_REQUIRES_SUCCESS")

	// ── Invoice ──
	setStr(&cfg.Invoice.Subject, "SPONSORD_INVOICE_SUBJECT")
	setStr(&cfg.Invoice.Currency, "SPONSORD_INVOICE_CURRENCY")
	setStr(&cfg.Invoice.EventName, "SPONSORD_INVOICE_EVENT_NAME")
	setStr(&cfg.Invoice.AccountHolder, "SPONSORD_INVOICE_ACCOUNT_HOLDER")
	setStr(&cfg.Invoice.IBAN, "SPONSORD_INVOICE_IBAN")
	setStr(&cfg.Invoice.BankName, "SPONSORD_INVOICE_BANK_NAME")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SPONSORD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SPONSORD_S3_REGION")
	setStr(&cfg.S3.Bucket, "SPONSORD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SPONSORD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SPONSORD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SPONSORD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SPONSORD_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SPONSORD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SPONSORD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SPONSORD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SPONSORD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SPONSORD_MODE")
	setStr(&cfg.LogLevel, "SPONSORD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
