// Package conf loads and validates codeseek settings from the config file,
// the environment and command line flags.
package conf

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/secrets"
)

//go:embed config.yaml
var defaultConfigYAML []byte

// Store drivers
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Cover provider kinds
const (
	ProviderWorker    = "worker"
	ProviderDMM       = "dmm"
	ProviderJavDB     = "javdb"
	ProviderSehuatang = "sehuatang"
	ProviderDMMDetail = "dmmdetail"
)

// ProviderKinds lists every supported cover provider kind.
var ProviderKinds = []string{ProviderWorker, ProviderDMM, ProviderJavDB, ProviderSehuatang, ProviderDMMDetail}

// Settings holds the complete application configuration
type Settings struct {
	Debug bool

	Main struct {
		Name string
	}

	Logging   logger.LoggingConfig
	Store     StoreSettings
	Cover     CoverSettings
	Bot       BotSettings
	Recommend RecommendSettings
	API       APISettings
	Metrics   MetricsSettings
	Sentry    SentrySettings
	Alerts    AlertSettings
}

// StoreSettings configures the backing record store
type StoreSettings struct {
	Driver       string        // sqlite or mysql
	DSN          string        // full driver DSN, overrides the per-driver settings
	DSNFile      string        // file holding the DSN, overrides DSN
	Exclude      []string      // collections never searched
	QueryTimeout time.Duration // per-collection query timeout, 0 = none
	Concurrency  int           // max collections queried at once, 0 = unlimited
	SQLite       struct {
		Path string
	}
	MySQL struct {
		Host         string
		Port         int
		Username     string
		Password     string
		PasswordFile string // file holding the password, overrides Password
		Database     string
	}
}

// ProviderSettings configures one entry of the cover provider chain
type ProviderSettings struct {
	Kind      string  // worker, dmm, javdb, sehuatang or dmmdetail
	Name      string  // label used in logs and metrics, defaults to Kind
	Enabled   bool    // disabled providers are skipped
	URL       string  // URL template with {code}; empty uses the provider default
	RateLimit float64 // requests per second, 0 = unlimited
	Burst     int     // rate limiter burst size
}

// DisplayName returns Name or Kind when no name was configured.
func (p ProviderSettings) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Kind
}

// CoverSettings configures cover resolution
type CoverSettings struct {
	Providers       []ProviderSettings
	Retries         int           // extra full attempts after the first one
	LookupTimeout   time.Duration // per provider request
	ValidateTimeout time.Duration // image HEAD probe
	FetchTimeout    time.Duration // full image download for local delivery
	UserAgent       string
	MaxInflight     int // provider requests in flight across all resolutions
	Cache           struct {
		Path     string
		TTL      time.Duration
		Capacity int
	}
}

// BotSettings configures the Telegram front-end
type BotSettings struct {
	Token         string
	TokenFile     string   // file holding the token, overrides Token
	AllowedIDs    []string // Telegram user ids allowed to use the bot
	MaxCodeLength int
	PageSize      int
	PollTimeout   int    // long polling timeout in seconds
	SaveDir       string // directory for transient cover files
	Session       struct {
		TTL      time.Duration
		Capacity int
	}
}

// RecommendSettings configures random recommendations
type RecommendSettings struct {
	SampleSize int
	Categories map[string]string // category name -> collection
}

// APISettings configures the HTTP API
type APISettings struct {
	Listen string
}

// MetricsSettings configures the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool
	Listen  string
	Path    string
}

// SentrySettings configures error telemetry
type SentrySettings struct {
	Enabled bool
	DSN     string
}

// AlertSettings configures operational alerts sent through shoutrrr
type AlertSettings struct {
	URLs     []string
	Timeout  time.Duration
	Cooldown time.Duration
}

// loadMu serializes Load, viper state is process global.
var loadMu sync.Mutex

// Load reads the .env file, the configuration file and environment variables.
// configFile may be empty to search the default locations.
func Load(configFile string) (*Settings, error) {
	loadMu.Lock()
	defer loadMu.Unlock()

	// A missing .env is normal outside of container deployments
	_ = godotenv.Load()

	if err := initViper(configFile); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "init_viper").
			Build()
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	prepareSettings(settings)

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// initViper sets defaults, binds the environment and reads the config file.
func initViper(configFile string) error {
	viper.SetConfigType("yaml")
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(configPaths[1])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to dir and reads it back.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, defaultConfigYAML, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	logger.Global().Module("conf").Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order.
// The second entry is where a default config is created when none exists.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get_home_directory").
			Build()
	}

	if runtime.GOOS == "windows" {
		return []string{".", filepath.Join(homeDir, "AppData", "Roaming", "codeseek")}, nil
	}

	return []string{".", filepath.Join(homeDir, ".config", "codeseek"), "/etc/codeseek"}, nil
}

// prepareSettings normalizes values that arrive as loosely formatted env strings.
func prepareSettings(settings *Settings) {
	settings.Store.Driver = strings.ToLower(strings.TrimSpace(settings.Store.Driver))
	settings.Store.Exclude = cleanList(settings.Store.Exclude)
	settings.Alerts.URLs = cleanList(settings.Alerts.URLs)
	settings.Bot.AllowedIDs = cleanList(settings.Bot.AllowedIDs)

	for i := range settings.Cover.Providers {
		settings.Cover.Providers[i].Kind = strings.ToLower(strings.TrimSpace(settings.Cover.Providers[i].Kind))
	}

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}
}

// resolveSecrets replaces credentials with their file contents or expanded
// ${VAR} references.
func resolveSecrets(settings *Settings) error {
	fields := []struct {
		file  string
		value *string
	}{
		{settings.Bot.TokenFile, &settings.Bot.Token},
		{settings.Store.DSNFile, &settings.Store.DSN},
		{settings.Store.MySQL.PasswordFile, &settings.Store.MySQL.Password},
		{"", &settings.Sentry.DSN},
	}
	for _, f := range fields {
		resolved, err := secrets.Resolve(f.file, *f.value)
		if err != nil {
			return err
		}
		*f.value = resolved
	}

	for i, u := range settings.Alerts.URLs {
		resolved, err := secrets.Resolve("", u)
		if err != nil {
			return err
		}
		settings.Alerts.URLs[i] = resolved
	}
	return nil
}

// cleanList trims entries and drops empty and duplicate ones.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		if item = strings.TrimSpace(item); item != "" && !slices.Contains(out, item) {
			out = append(out, item)
		}
	}
	return out
}

// AllowedUserIDs returns the parsed allow-list. Entries are validated at load time.
func (b *BotSettings) AllowedUserIDs() []int64 {
	ids := make([]int64, 0, len(b.AllowedIDs))
	for _, raw := range b.AllowedIDs {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// EnabledProviders returns the enabled provider entries in configured order.
func (s *Settings) EnabledProviders() []ProviderSettings {
	var out []ProviderSettings
	for _, p := range s.Cover.Providers {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// MySQLDSN builds a go-sql-driver DSN from the MySQL settings.
func (s *StoreSettings) MySQLDSN() string {
	if s.DSN != "" {
		return s.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		s.MySQL.Username, s.MySQL.Password, s.MySQL.Host, s.MySQL.Port, s.MySQL.Database)
}

// SQLitePath returns the sqlite database path, preferring the DSN when set.
func (s *StoreSettings) SQLitePath() string {
	if s.DSN != "" {
		return s.DSN
	}
	return s.SQLite.Path
}
