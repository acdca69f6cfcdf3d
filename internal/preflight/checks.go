package preflight

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"podd/internal/config"
	"podd/internal/store"
)

const checkTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStore opens the configured database, which applies pending
// migrations, and reports the schema version and subscription count.
func CheckStore(ctx context.Context, cfg *config.Config) Result {
	const name = "Database"
	s, err := store.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.Store.Driver, err)}
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: schema: %v)", s.Driver(), err)}
	}
	subs, err := s.ListSubscriptions(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", s.Driver(), err)}
	}
	return Result{Name: name, Passed: true,
		Detail: fmt.Sprintf("%s schema %s, %d subscription(s)", s.Driver(), version, len(subs))}
}

// CheckNotifications verifies that the configured transport is reachable.
// SES is only checked for a region; credentials are resolved by the SDK at
// send time.
func CheckNotifications(ctx context.Context, cfg *config.Config) Result {
	n := cfg.Notifications
	name := "Notifications (" + n.Transport + ")"
	switch n.Transport {
	case config.TransportSMTP:
		addr := net.JoinHostPort(n.SMTPHost, strconv.Itoa(n.SMTPPort))
		dialer := net.Dialer{Timeout: checkTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", addr, err)}
		}
		conn.Close()
		return Result{Name: name, Passed: true, Detail: addr + " (reachable)"}
	case config.TransportNtfy:
		return checkHTTP(ctx, name, n.NtfyTopic)
	case config.TransportSES:
		if strings.TrimSpace(n.SESRegion) == "" {
			return Result{Name: name, Detail: "ses_region is not set"}
		}
		return Result{Name: name, Passed: true, Detail: "region " + n.SESRegion}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unknown transport %q", n.Transport)}
	}
}

func checkHTTP(ctx context.Context, name, endpoint string) Result {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", endpoint, err)}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", endpoint, err)}
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: status %d)", endpoint, resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (status %d)", endpoint, resp.StatusCode)}
}
