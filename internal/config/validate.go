package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.FetchWorkers <= 0 {
		return errors.New("download.fetch_workers must be positive")
	}
	if c.Download.DownloadWorkers <= 0 {
		return errors.New("download.download_workers must be positive")
	}
	if c.Download.RequestTimeout <= 0 {
		return errors.New("download.request_timeout must be positive")
	}
	if c.Download.DownloadTimeout < 0 {
		return errors.New("download.download_timeout must be >= 0")
	}
	if c.Download.WatchInterval <= 0 {
		return errors.New("download.watch_interval must be positive")
	}
	switch c.Download.Catalog {
	case CatalogNew, CatalogAll:
	default:
		return fmt.Errorf("download.catalog must be %q or %q, got %q", CatalogNew, CatalogAll, c.Download.Catalog)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn must be set when store.driver is postgres")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Store.Driver)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	n := c.Notifications
	switch n.Transport {
	case TransportSMTP, TransportSES, TransportNtfy:
	default:
		return fmt.Errorf("notifications.transport must be one of smtp, ses, ntfy, got %q", n.Transport)
	}
	if !n.Enabled {
		return nil
	}
	switch n.Transport {
	case TransportSMTP:
		if n.Sender == "" || n.Recipient == "" {
			return errors.New("notifications.sender and notifications.recipient must be set when smtp notifications are enabled")
		}
		if n.SMTPHost == "" {
			return errors.New("notifications.smtp_host must be set when smtp notifications are enabled")
		}
		if n.SMTPPort <= 0 {
			return errors.New("notifications.smtp_port must be positive")
		}
	case TransportSES:
		if n.Sender == "" || n.Recipient == "" {
			return errors.New("notifications.sender and notifications.recipient must be set when ses notifications are enabled")
		}
		if strings.TrimSpace(n.SESRegion) == "" {
			return errors.New("notifications.ses_region must be set when ses notifications are enabled")
		}
	case TransportNtfy:
		if n.NtfyTopic == "" {
			return errors.New("notifications.ntfy_topic must be set when ntfy notifications are enabled")
		}
	}
	return nil
}
