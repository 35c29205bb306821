package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPPort      string `yaml:"http_port"`
	DBDriver      string `yaml:"db_driver"`
	DBHost        string `yaml:"db_host"`
	DBPort        string `yaml:"db_port"`
	DBUser        string `yaml:"db_user"`
	DBPassword    string `yaml:"db_password"`
	DBName        string `yaml:"db_name"`
	RedisHost     string `yaml:"redis_host"`
	RedisPort     string `yaml:"redis_port"`
	SessionSecret string `yaml:"session_secret"`
	GinMode       string `yaml:"gin_mode"`

	// DateSlashOrder is "DMY" or "MDY" and decides ambiguous 01/02/2025 style dates.
	DateSlashOrder string `yaml:"date_slash_order"`
	// NotifyUTCOffsetHours is the fixed offset used to compute "today" for notifications.
	NotifyUTCOffsetHours int    `yaml:"notify_utc_offset_hours"`
	NotifyConcurrency    int    `yaml:"notify_concurrency"`
	MorningCron          string `yaml:"morning_cron"`
	EveningCron          string `yaml:"evening_cron"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
	ItemTimeout    time.Duration `yaml:"item_timeout"`

	FCMProjectID   string `yaml:"fcm_project_id"`
	FCMAccessToken string `yaml:"fcm_access_token"`
	FCMEndpoint    string `yaml:"fcm_endpoint"`

	BackupDir        string        `yaml:"backup_dir"`
	RestoreTokenTTL  time.Duration `yaml:"restore_token_ttl"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		DBDriver:      getEnv("DB_DRIVER", "mysql"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBUser:        getEnv("DB_USER", "advisor"),
		DBPassword:    getEnv("DB_PASSWORD", "advisorpassword"),
		DBName:        getEnv("DB_NAME", "medical_advisor"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:       getEnv("GIN_MODE", "debug"),

		DateSlashOrder:       getEnv("DATE_SLASH_ORDER", "DMY"),
		NotifyUTCOffsetHours: getEnvInt("NOTIFY_UTC_OFFSET_HOURS", 3),
		NotifyConcurrency:    getEnvInt("NOTIFY_CONCURRENCY", 8),
		MorningCron:          getEnv("NOTIFY_MORNING_CRON", "0 8 * * *"),
		EveningCron:          getEnv("NOTIFY_EVENING_CRON", "0 20 * * *"),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		ItemTimeout:    getEnvDuration("ITEM_TIMEOUT", 5*time.Second),

		FCMProjectID:   getEnv("FCM_PROJECT_ID", ""),
		FCMAccessToken: getEnv("FCM_ACCESS_TOKEN", ""),
		FCMEndpoint:    getEnv("FCM_ENDPOINT", "https://fcm.googleapis.com"),

		BackupDir:        getEnv("BACKUP_DIR", "./backups"),
		RestoreTokenTTL:  getEnvDuration("RESTORE_TOKEN_TTL", 10*time.Minute),
		OperationTimeout: getEnvDuration("OPERATION_TIMEOUT", 30*time.Minute),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			log.Fatalf("Failed to load config overlay: %v", err)
		}
	}

	return cfg
}

// overlayFile replaces fields present in the YAML file; absent keys keep their env values.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// RedisAddr returns host:port for the Redis server.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// FCMConfigured reports whether push delivery credentials are present.
func (c *Config) FCMConfigured() bool {
	return c.FCMProjectID != "" && c.FCMAccessToken != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}
