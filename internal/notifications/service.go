package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"podd/internal/config"
	"podd/internal/podcast"
	"podd/internal/services"
)

const stageNotify = "notify"

// Service defines the notification surface used by the CLI.
type Service interface {
	// NotifyReport sends one digest for results. Empty results send nothing.
	NotifyReport(ctx context.Context, results []podcast.PodcastResult) error
	// TestNotification sends a short message through the configured transport.
	TestNotification(ctx context.Context) error
}

// NewService builds the transport configured in cfg. When notifications are
// disabled a noop implementation is returned.
func NewService(cfg *config.Config) (Service, error) {
	if cfg == nil || !cfg.Notifications.Enabled {
		return noopService{}, nil
	}
	n := cfg.Notifications
	timeout := time.Duration(n.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	subject := strings.TrimSpace(n.Subject)
	if subject == "" {
		subject = DefaultSubject
	}

	switch n.Transport {
	case config.TransportSMTP:
		return newSMTPService(n, subject, timeout)
	case config.TransportSES:
		return newSESService(n, subject, timeout)
	case config.TransportNtfy:
		return newNtfyService(n.NtfyTopic, subject, timeout), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, stageNotify, "select transport",
			fmt.Sprintf("unknown transport %q", n.Transport), nil)
	}
}

type noopService struct{}

func (noopService) NotifyReport(context.Context, []podcast.PodcastResult) error { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
