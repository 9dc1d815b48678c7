// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultUserAgent is sent by providers and image fetches; several upstreams
// reject requests without a browser-like agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// DefaultExclude lists administrative collections that are never searched.
var DefaultExclude = []string{"system.indexes", "system.views", "admin", "local"}

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("main.name", "codeseek")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", true)
	viper.SetDefault("logging.file_output.path", "logs/codeseek.log")
	viper.SetDefault("logging.file_output.level", "info")
	viper.SetDefault("logging.file_output.max_size", 50)
	viper.SetDefault("logging.file_output.max_age", 30)
	viper.SetDefault("logging.file_output.max_backups", 5)

	viper.SetDefault("store.driver", DriverSQLite)
	viper.SetDefault("store.sqlite.path", "codeseek.db")
	viper.SetDefault("store.mysql.host", "localhost")
	viper.SetDefault("store.mysql.port", 3306)
	viper.SetDefault("store.mysql.database", "codeseek")
	viper.SetDefault("store.exclude", DefaultExclude)
	viper.SetDefault("store.querytimeout", 0)
	viper.SetDefault("store.concurrency", 8)

	viper.SetDefault("cover.retries", 2)
	viper.SetDefault("cover.lookuptimeout", 5*time.Second)
	viper.SetDefault("cover.validatetimeout", 5*time.Second)
	viper.SetDefault("cover.fetchtimeout", 10*time.Second)
	viper.SetDefault("cover.useragent", DefaultUserAgent)
	viper.SetDefault("cover.maxinflight", 16)
	viper.SetDefault("cover.cache.path", "coverCache.json")
	viper.SetDefault("cover.cache.ttl", 24*time.Hour)
	viper.SetDefault("cover.cache.capacity", 1000)
	viper.SetDefault("cover.providers", []map[string]any{
		{"kind": ProviderWorker, "enabled": false, "url": "", "ratelimit": 2.0, "burst": 2},
		{"kind": ProviderDMM, "enabled": true, "ratelimit": 1.0, "burst": 2},
		{"kind": ProviderJavDB, "enabled": true, "ratelimit": 1.0, "burst": 2},
		{"kind": ProviderSehuatang, "enabled": true, "ratelimit": 1.0, "burst": 1},
		{"kind": ProviderDMMDetail, "enabled": false, "ratelimit": 0.5, "burst": 1},
	})

	viper.SetDefault("bot.maxcodelength", 50)
	viper.SetDefault("bot.pagesize", 5)
	viper.SetDefault("bot.polltimeout", 60)
	viper.SetDefault("bot.savedir", "/tmp")
	viper.SetDefault("bot.allowedids", []string{})
	viper.SetDefault("bot.session.ttl", 30*time.Minute)
	viper.SetDefault("bot.session.capacity", 1000)

	viper.SetDefault("recommend.samplesize", 10)
	viper.SetDefault("recommend.categories", map[string]string{
		"高清中文字幕": "hd_chinese_subtitles",
		"素人有码系列": "EU_US_no_mosaic",
		"亚洲有码原创": "asia_codeless_originate",
		"亚洲无码原创": "asia_mosaic_originate",
		"动漫原创":   "online_originate",
		"VR":     "vr_video",
		"4K":     "4k_video",
		"国产原创":   "domestic_original",
		"欧美无码":   "asia_codeless_originate",
		"三级写真":   "three_levels_photo",
		"韩国主播":   "vegan_with_mosaic",
	})

	viper.SetDefault("api.listen", "127.0.0.1:8080")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", "127.0.0.1:9090")
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("sentry.enabled", false)

	viper.SetDefault("alerts.urls", []string{})
	viper.SetDefault("alerts.timeout", 10*time.Second)
	viper.SetDefault("alerts.cooldown", 15*time.Minute)
}
