package config

import "podd/internal/version"

const (
	defaultConfigPath           = "~/.config/podd/config.toml"
	defaultDownloadDir          = "~/Podcasts"
	defaultDataDir              = "~/.local/share/podd"
	defaultLogDir               = "~/.local/share/podd/logs"
	defaultFetchWorkers         = 3
	defaultDownloadWorkers      = 3
	defaultRequestTimeout       = 30
	defaultWatchInterval        = 3600
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 60
	defaultNotifySubject        = "Podcast Download Report"
	defaultNotifySMTPHost       = "smtp.gmail.com"
	defaultNotifySMTPPort       = 587
	defaultNotifyRequestTimeout = 10
)

// Catalog modes applied when a feed is added.
const (
	CatalogNew = "new"
	CatalogAll = "all"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Notification transports.
const (
	TransportSMTP = "smtp"
	TransportSES  = "ses"
	TransportNtfy = "ntfy"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
		},
		Download: Download{
			FetchWorkers:    defaultFetchWorkers,
			DownloadWorkers: defaultDownloadWorkers,
			RequestTimeout:  defaultRequestTimeout,
			UserAgent:       version.UserAgent(),
			Catalog:         CatalogNew,
			WatchInterval:   defaultWatchInterval,
		},
		Store: Store{
			Driver: DriverSQLite,
		},
		Notifications: Notifications{
			Transport:      TransportSMTP,
			Subject:        defaultNotifySubject,
			SMTPHost:       defaultNotifySMTPHost,
			SMTPPort:       defaultNotifySMTPPort,
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
