// env.go - environment variable bindings
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings. The unprefixed
// names are the ones existing deployments already set.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"bot.token", "BOT_TOKEN", nil},
		{"bot.tokenfile", "BOT_TOKEN_FILE", nil},
		{"bot.allowedids", "ALLOWED_TG_IDS", validateEnvIDList},
		{"bot.savedir", "DEFAULT_SAVE_DIR", nil},
		{"store.dsn", "DATABASE_DSN", nil},
		{"store.dsnfile", "DATABASE_DSN_FILE", nil},
		{"store.mysql.passwordfile", "MYSQL_PASSWORD_FILE", nil},
		{"store.driver", "DATABASE_DRIVER", validateEnvDriver},
		{"store.exclude", "EXCLUDE_COLLECTIONS", nil},
		{"cover.cache.path", "COVER_CACHE_FILE", nil},
		{"cover.retries", "COVER_RETRIES", validateEnvNonNegativeInt},
		{"sentry.dsn", "SENTRY_DSN", nil},
		{"alerts.urls", "ALERT_URLS", nil},
		{"debug", "CODESEEK_DEBUG", validateEnvBool},
	}
}

// bindEnvVars sets up environment variable bindings with validation
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validateEnvDriver(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case DriverSQLite, DriverMySQL:
		return nil
	default:
		return fmt.Errorf("must be %s or %s", DriverSQLite, DriverMySQL)
	}
}

// validateEnvIDList checks a comma separated list of Telegram user ids
func validateEnvIDList(value string) error {
	for id := range strings.SplitSeq(value, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return fmt.Errorf("%q is not a numeric user id", id)
		}
	}
	return nil
}
