package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Bounds applied to user-supplied alert settings.
const (
	MinSoonDays          = 1
	MaxSoonDays          = 14
	MinCheckInterval     = 1
	MaxCheckInterval     = 168
	MinAlertHistoryLimit = 5
	MaxAlertHistoryLimit = 20
)

type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   string
	LogFormat  string
	LogFile    string

	NotifyExpired      bool
	NotifySoon         bool
	SoonDaysThreshold  int
	CheckIntervalHours int
	AlertHistoryLimit  int
	CategoryRulesFile  string

	NotifyBackend string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	SMTPFrom      string
	NotifyEmailTo string

	OpenFoodFactsURL string

	BackupBackend   string
	BackupLocalPath string
	BackupS3Bucket  string
	BackupS3Prefix  string
}

// Load reads configuration from the environment. Variables from a .env file
// (ENV_FILE, default ".env") are loaded first but never override variables
// already set in the process environment. A missing file is not an error; an
// unreadable or malformed one is.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DBPath:     getEnv("DB_PATH", "/data/foodwatch.db"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "json"),
		LogFile:    getEnv("LOG_FILE", ""),

		NotifyExpired:      getBool("NOTIFY_EXPIRED", true),
		NotifySoon:         getBool("NOTIFY_SOON", true),
		SoonDaysThreshold:  clamp(getInt("SOON_DAYS_THRESHOLD", 3), MinSoonDays, MaxSoonDays),
		CheckIntervalHours: clamp(getInt("CHECK_INTERVAL_HOURS", 6), MinCheckInterval, MaxCheckInterval),
		AlertHistoryLimit:  clamp(getInt("ALERT_HISTORY_LIMIT", 20), MinAlertHistoryLimit, MaxAlertHistoryLimit),
		CategoryRulesFile:  getEnv("CATEGORY_RULES_FILE", ""),

		NotifyBackend: getEnv("NOTIFY_BACKEND", "log"),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getInt("SMTP_PORT", 587),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:      getEnv("SMTP_FROM", ""),
		NotifyEmailTo: getEnv("NOTIFY_EMAIL_TO", ""),

		// Empty selects the lookup client's default.
		OpenFoodFactsURL: getEnv("OFF_BASE_URL", ""),

		BackupBackend:   getEnv("BACKUP_BACKEND", "local"),
		BackupLocalPath: getEnv("BACKUP_LOCAL_PATH", "/data/backups"),
		BackupS3Bucket:  getEnv("BACKUP_S3_BUCKET", ""),
		BackupS3Prefix:  getEnv("BACKUP_S3_PREFIX", "foodwatch"),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	val, err := strconv.Atoi(strings.TrimSpace(getEnv(key, "")))
	if err != nil {
		return defaultVal
	}
	return val
}

func getBool(key string, defaultVal bool) bool {
	val, err := strconv.ParseBool(strings.TrimSpace(getEnv(key, "")))
	if err != nil {
		return defaultVal
	}
	return val
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
