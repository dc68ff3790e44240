package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	ServiceName string
	LoggerLevel string

	Port string

	DriverAPIBaseURL string
	DriverAPITimeout time.Duration
	PageSize         int

	SessionTTL time.Duration

	CSRFAuthKey        string
	CSRFSecure         bool
	CSRFSameSite       string
	CSRFCookieName     string
	CSRFTrustedOrigins []string

	DBConnectionString string

	TelegramBotToken    string
	TelegramAdminChatID int64

	ImageCheckEnabled bool
	ImageCheckTimeout time.Duration
	PlaceholderImage  string
}

func Load() Config {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.ServiceName = cast.ToString(getOrReturnDefault("SERVICE_NAME", "driverreview"))
	cfg.LoggerLevel = cast.ToString(getOrReturnDefault("LOGGER_LEVEL", "debug"))
	cfg.Port = cast.ToString(getOrReturnDefault("PORT", "8080"))

	cfg.DriverAPIBaseURL = strings.TrimRight(cast.ToString(getOrReturnDefault("DRIVER_API_BASE_URL", "http://localhost:8000")), "/")
	cfg.DriverAPITimeout = time.Duration(cast.ToInt(getOrReturnDefault("DRIVER_API_TIMEOUT_SECONDS", 15))) * time.Second
	cfg.PageSize = cast.ToInt(getOrReturnDefault("PAGE_SIZE", 10))
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}

	cfg.SessionTTL = time.Duration(cast.ToInt(getOrReturnDefault("SESSION_TTL_HOURS", 12))) * time.Hour

	cfg.CSRFAuthKey = cast.ToString(getOrReturnDefault("CSRF_AUTH_KEY", ""))
	cfg.CSRFSecure = cast.ToBool(getOrReturnDefault("CSRF_SECURE", true))
	cfg.CSRFSameSite = strings.ToLower(cast.ToString(getOrReturnDefault("CSRF_SAMESITE", "lax")))
	cfg.CSRFCookieName = cast.ToString(getOrReturnDefault("CSRF_COOKIE_NAME", "_csrf"))
	cfg.CSRFTrustedOrigins = splitList(cast.ToString(getOrReturnDefault("CSRF_TRUSTED_ORIGINS", "")))

	cfg.DBConnectionString = cast.ToString(getOrReturnDefault("DB_CONNECTION_STRING", ""))

	cfg.TelegramBotToken = cast.ToString(getOrReturnDefault("TELEGRAM_BOT_TOKEN", ""))
	cfg.TelegramAdminChatID = cast.ToInt64(getOrReturnDefault("TELEGRAM_ADMIN_CHAT_ID", 0))

	cfg.ImageCheckEnabled = cast.ToBool(getOrReturnDefault("IMAGE_CHECK_ENABLED", true))
	cfg.ImageCheckTimeout = time.Duration(cast.ToInt(getOrReturnDefault("IMAGE_CHECK_TIMEOUT_SECONDS", 3))) * time.Second
	cfg.PlaceholderImage = cast.ToString(getOrReturnDefault("PLACEHOLDER_IMAGE_URL", "/static/placeholder.svg"))

	return cfg
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
