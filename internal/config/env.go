package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv returns a copy of base with TASKBOARD_* overrides applied. Invalid
// values are ignored.
func FromEnv(base Config) Config {
	cfg := base
	if v, ok := getEnvString("TASKBOARD_DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := getEnvString("TASKBOARD_STORAGE"); ok {
		cfg.Storage = strings.ToLower(v)
	}
	if v, ok := getEnvString("TASKBOARD_LISTEN"); ok {
		cfg.Listen = v
	}
	if v, ok := getEnvString("TASKBOARD_TIMEZONE"); ok {
		cfg.Timezone = v
	}
	if v, ok := getEnvString("TASKBOARD_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := getEnvInt("TASKBOARD_MAX_OCCURRENCES"); ok && v > 0 {
		cfg.MaxOccurrences = v
	}
	if v, ok := getEnvBool("TASKBOARD_STRICT"); ok {
		cfg.Strict = v
	}
	if v, ok := getEnvInt("TASKBOARD_REMINDER_HORIZON_HOURS"); ok && v > 0 {
		cfg.ReminderHorizonHours = v
	}
	if v, ok := getEnvInt("TASKBOARD_RETENTION_DAYS"); ok && v > 0 {
		cfg.RetentionDays = v
	}
	if v, ok := getEnvInt("TASKBOARD_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvBool("TASKBOARD_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	cfg.Normalize()
	return cfg
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
