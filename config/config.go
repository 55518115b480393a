package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	StorageRemote   = "remote"
	StorageLocal    = "local"
	StoragePostgres = "postgres"

	CacheFile  = "file"
	CacheRedis = "redis"
)

type Config struct {
	ServiceName string
	LoggerLevel string

	AppPort int

	BackendURL     string
	BackendAnonKey string

	StorageVariant string

	CacheDriver string
	CacheDir    string
	CacheTTL    time.Duration

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	TelegramBotToken string
	AdminChatID      int64

	SchoolName      string
	RequirePostcode bool
	RequireChildren bool
}

func Load() Config {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.ServiceName = cast.ToString(getOrReturnDefault("SERVICE_NAME", "tandem"))
	cfg.LoggerLevel = cast.ToString(getOrReturnDefault("LOGGER_LEVEL", "debug"))
	cfg.AppPort = cast.ToInt(getOrReturnDefault("APP_PORT", 8080))

	cfg.BackendURL = cast.ToString(getOrReturnDefault("BACKEND_URL", "http://localhost:54321"))
	cfg.BackendAnonKey = cast.ToString(getOrReturnDefault("BACKEND_ANON_KEY", ""))

	cfg.StorageVariant = cast.ToString(getOrReturnDefault("STORAGE_VARIANT", StorageRemote))

	cfg.CacheDriver = cast.ToString(getOrReturnDefault("CACHE_DRIVER", CacheFile))
	cfg.CacheDir = cast.ToString(getOrReturnDefault("CACHE_DIR", ".tandem"))
	cfg.CacheTTL = cast.ToDuration(getOrReturnDefault("CACHE_TTL", "720h"))

	cfg.RedisHost = cast.ToString(getOrReturnDefault("REDIS_HOST", "localhost"))
	cfg.RedisPort = cast.ToString(getOrReturnDefault("REDIS_PORT", "6379"))
	cfg.RedisPassword = cast.ToString(getOrReturnDefault("REDIS_PASSWORD", ""))
	cfg.RedisDB = cast.ToInt(getOrReturnDefault("REDIS_DB", 0))

	cfg.PostgresHost = cast.ToString(getOrReturnDefault("POSTGRES_HOST", "localhost"))
	cfg.PostgresPort = cast.ToString(getOrReturnDefault("POSTGRES_PORT", "5432"))
	cfg.PostgresUser = cast.ToString(getOrReturnDefault("POSTGRES_USER", "postgres"))
	cfg.PostgresPassword = cast.ToString(getOrReturnDefault("POSTGRES_PASSWORD", "1234"))
	cfg.PostgresDB = cast.ToString(getOrReturnDefault("POSTGRES_DB", "tandem"))

	cfg.TelegramBotToken = cast.ToString(getOrReturnDefault("TG_BOT_TOKEN", ""))
	cfg.AdminChatID = cast.ToInt64(getOrReturnDefault("ADMIN_CHAT_ID", 0))

	cfg.SchoolName = cast.ToString(getOrReturnDefault("SCHOOL_NAME", "Maple Walk Prep"))
	cfg.RequirePostcode = cast.ToBool(getOrReturnDefault("REQUIRE_POSTCODE", false))
	cfg.RequireChildren = cast.ToBool(getOrReturnDefault("REQUIRE_CHILDREN", true))

	return cfg
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
