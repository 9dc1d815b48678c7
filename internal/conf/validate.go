// conf/validate.go

package conf

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/tphakala/codeseek/internal/errors"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ErrorCategory marks validation failures as configuration errors.
func (ve ValidationError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryConfiguration
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateStoreSettings(&settings.Store)...)
	ve.Errors = append(ve.Errors, validateCoverSettings(&settings.Cover)...)
	ve.Errors = append(ve.Errors, validateBotSettings(&settings.Bot)...)

	if settings.Recommend.SampleSize <= 0 {
		ve.Errors = append(ve.Errors, "recommend.samplesize must be positive")
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry.dsn is required when sentry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// ValidateBotMode checks the settings only the Telegram front-end needs.
func ValidateBotMode(settings *Settings) error {
	ve := ValidationError{}
	if strings.TrimSpace(settings.Bot.Token) == "" {
		ve.Errors = append(ve.Errors, "bot.token (BOT_TOKEN) is required")
	}
	if len(settings.Bot.AllowedIDs) == 0 {
		ve.Errors = append(ve.Errors, "bot.allowedids (ALLOWED_TG_IDS) is empty, nobody could use the bot")
	}
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateStoreSettings(s *StoreSettings) []string {
	var errs []string

	switch s.Driver {
	case DriverSQLite:
		if s.SQLitePath() == "" {
			errs = append(errs, "store.sqlite.path is required for the sqlite driver")
		}
	case DriverMySQL:
		if s.DSN == "" && (s.MySQL.Host == "" || s.MySQL.Database == "") {
			errs = append(errs, "store.mysql.host and store.mysql.database are required for the mysql driver")
		}
		if s.DSN == "" && (s.MySQL.Port <= 0 || s.MySQL.Port > 65535) {
			errs = append(errs, fmt.Sprintf("store.mysql.port %d is out of range", s.MySQL.Port))
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown store.driver %q (want %s or %s)", s.Driver, DriverSQLite, DriverMySQL))
	}

	if s.QueryTimeout < 0 {
		errs = append(errs, "store.querytimeout must not be negative")
	}
	if s.Concurrency < 0 {
		errs = append(errs, "store.concurrency must not be negative")
	}

	return errs
}

func validateCoverSettings(c *CoverSettings) []string {
	var errs []string

	if c.Retries < 0 {
		errs = append(errs, "cover.retries must not be negative")
	}
	if c.Cache.Capacity <= 0 {
		errs = append(errs, "cover.cache.capacity must be positive")
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, "cover.cache.ttl must be positive")
	}
	if c.LookupTimeout <= 0 || c.ValidateTimeout <= 0 || c.FetchTimeout <= 0 {
		errs = append(errs, "cover timeouts must be positive")
	}

	for i, p := range c.Providers {
		if !slices.Contains(ProviderKinds, p.Kind) {
			errs = append(errs, fmt.Sprintf("cover.providers[%d]: unknown kind %q", i, p.Kind))
			continue
		}
		if p.Enabled && p.Kind == ProviderWorker && p.URL == "" {
			errs = append(errs, fmt.Sprintf("cover.providers[%d]: worker provider needs a url", i))
		}
		if p.RateLimit < 0 {
			errs = append(errs, fmt.Sprintf("cover.providers[%d]: ratelimit must not be negative", i))
		}
	}

	return errs
}

func validateBotSettings(b *BotSettings) []string {
	var errs []string

	if b.MaxCodeLength <= 0 {
		errs = append(errs, "bot.maxcodelength must be positive")
	}
	if b.PageSize <= 0 {
		errs = append(errs, "bot.pagesize must be positive")
	}
	if b.Session.Capacity <= 0 || b.Session.TTL <= 0 {
		errs = append(errs, "bot.session ttl and capacity must be positive")
	}
	for _, id := range b.AllowedIDs {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			errs = append(errs, fmt.Sprintf("bot.allowedids: %q is not a numeric user id", id))
		}
	}

	return errs
}
