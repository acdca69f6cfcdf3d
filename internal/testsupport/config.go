package testsupport

import (
	"path/filepath"
	"testing"

	"podd/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DownloadDir = filepath.Join(base, "podcasts")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Download.RequestTimeout = 5
	cfgVal.Download.UserAgent = "podd-test"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithCatalog sets the catalog mode applied when feeds are added.
func WithCatalog(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Download.Catalog = mode
	}
}

// WithWorkers overrides both stage worker counts.
func WithWorkers(fetch, download int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Download.FetchWorkers = fetch
		b.cfg.Download.DownloadWorkers = download
	}
}

// WithNtfy enables ntfy notifications against the given endpoint.
func WithNtfy(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.Enabled = true
		b.cfg.Notifications.Transport = config.TransportNtfy
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
