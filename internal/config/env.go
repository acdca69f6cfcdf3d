package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment override, e.g. PODD_STORE_DSN.
const EnvPrefix = "podd"

// environment lists the settings that may be supplied through PODD_* variables.
// Unset variables leave the file value in place.
type environment struct {
	DownloadDir     string `envconfig:"DOWNLOAD_DIR"`
	DataDir         string `envconfig:"DATA_DIR"`
	LogDir          string `envconfig:"LOG_DIR"`
	FetchWorkers    int    `envconfig:"FETCH_WORKERS"`
	DownloadWorkers int    `envconfig:"DOWNLOAD_WORKERS"`
	UserAgent       string `envconfig:"USER_AGENT"`
	Catalog         string `envconfig:"CATALOG"`
	StoreDriver     string `envconfig:"STORE_DRIVER"`
	StoreDSN        string `envconfig:"STORE_DSN"`
	NotifyEnabled   bool   `envconfig:"NOTIFICATIONS_ENABLED"`
	NotifyTransport string `envconfig:"NOTIFICATIONS_TRANSPORT"`
	Sender          string `envconfig:"SENDER"`
	Recipient       string `envconfig:"RECIPIENT"`
	SMTPHost        string `envconfig:"SMTP_HOST"`
	SMTPPort        int    `envconfig:"SMTP_PORT"`
	SMTPUsername    string `envconfig:"SMTP_USERNAME"`
	SMTPPassword    string `envconfig:"SMTP_PASSWORD"`
	SESRegion       string `envconfig:"SES_REGION"`
	NtfyTopic       string `envconfig:"NTFY_TOPIC"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
	LogFormat       string `envconfig:"LOG_FORMAT"`
}

func (c *Config) applyEnvironment() error {
	env := environment{
		DownloadDir:     c.Paths.DownloadDir,
		DataDir:         c.Paths.DataDir,
		LogDir:          c.Paths.LogDir,
		FetchWorkers:    c.Download.FetchWorkers,
		DownloadWorkers: c.Download.DownloadWorkers,
		UserAgent:       c.Download.UserAgent,
		Catalog:         c.Download.Catalog,
		StoreDriver:     c.Store.Driver,
		StoreDSN:        c.Store.DSN,
		NotifyEnabled:   c.Notifications.Enabled,
		NotifyTransport: c.Notifications.Transport,
		Sender:          c.Notifications.Sender,
		Recipient:       c.Notifications.Recipient,
		SMTPHost:        c.Notifications.SMTPHost,
		SMTPPort:        c.Notifications.SMTPPort,
		SMTPUsername:    c.Notifications.SMTPUsername,
		SMTPPassword:    c.Notifications.SMTPPassword,
		SESRegion:       c.Notifications.SESRegion,
		NtfyTopic:       c.Notifications.NtfyTopic,
		LogLevel:        c.Logging.Level,
		LogFormat:       c.Logging.Format,
	}
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}

	c.Paths.DownloadDir = env.DownloadDir
	c.Paths.DataDir = env.DataDir
	c.Paths.LogDir = env.LogDir
	c.Download.FetchWorkers = env.FetchWorkers
	c.Download.DownloadWorkers = env.DownloadWorkers
	c.Download.UserAgent = env.UserAgent
	c.Download.Catalog = env.Catalog
	c.Store.Driver = env.StoreDriver
	c.Store.DSN = env.StoreDSN
	c.Notifications.Enabled = env.NotifyEnabled
	c.Notifications.Transport = env.NotifyTransport
	c.Notifications.Sender = env.Sender
	c.Notifications.Recipient = env.Recipient
	c.Notifications.SMTPHost = env.SMTPHost
	c.Notifications.SMTPPort = env.SMTPPort
	c.Notifications.SMTPUsername = env.SMTPUsername
	c.Notifications.SMTPPassword = env.SMTPPassword
	c.Notifications.SESRegion = env.SESRegion
	c.Notifications.NtfyTopic = env.NtfyTopic
	c.Logging.Level = env.LogLevel
	c.Logging.Format = env.LogFormat
	return nil
}
