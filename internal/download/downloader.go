// Package download streams episode media to disk.
package download

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"podd/internal/logging"
	"podd/internal/podcast"
)

// partSuffix marks a transfer in progress; the file is linked into place once
// complete.
const partSuffix = ".part"

// Options configures a Downloader.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
	Logger    *slog.Logger
}

// Downloader fetches episode media over HTTP.
type Downloader struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// New builds a Downloader. A zero Timeout means transfers are bounded only by
// the context.
func New(opts Options) *Downloader {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Downloader{
		client:    client,
		userAgent: opts.UserAgent,
		logger:    logging.NewComponentLogger(opts.Logger, "download"),
	}
}

// Download writes ep.AudioURL to ep.Filename and returns the number of bytes
// written. The destination directory must already exist and ep.Filename must
// not: an existing file is never replaced. Failures are returned as
// *podcast.DownloadError and never leave a partial file behind.
func (d *Downloader) Download(ctx context.Context, ep podcast.Episode) (int64, error) {
	if ep.AudioURL == "" {
		return 0, &podcast.DownloadError{Filename: ep.Filename, Kind: podcast.KindNoAudio, Err: podcast.ErrNoAudioLink}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.AudioURL, nil)
	if err != nil {
		return 0, &podcast.DownloadError{URL: ep.AudioURL, Filename: ep.Filename, Kind: podcast.KindNetwork, Err: err}
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, &podcast.DownloadError{URL: ep.AudioURL, Filename: ep.Filename, Kind: transportKind(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return 0, &podcast.DownloadError{
			URL:        ep.AudioURL,
			Filename:   ep.Filename,
			Kind:       podcast.KindHTTPStatus,
			StatusCode: resp.StatusCode,
		}
	}

	tmp := ep.Filename + partSuffix
	file, err := os.Create(tmp)
	if err != nil {
		return 0, &podcast.DownloadError{URL: ep.AudioURL, Filename: ep.Filename, Kind: podcast.KindFilesystem, Err: err}
	}

	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmp)
		return written, &podcast.DownloadError{URL: ep.AudioURL, Filename: ep.Filename, Kind: podcast.KindNetwork, Err: copyErr}
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return written, &podcast.DownloadError{URL: ep.AudioURL, Filename: ep.Filename, Kind: podcast.KindFilesystem, Err: closeErr}
	}
	// Link fails with fs.ErrExist instead of clobbering a file another
	// episode already wrote.
	err = os.Link(tmp, ep.Filename)
	_ = os.Remove(tmp)
	if err != nil {
		return written, &podcast.DownloadError{
			URL:      ep.AudioURL,
			Filename: ep.Filename,
			Kind:     podcast.KindFilesystem,
			Err:      fmt.Errorf("finalize: %w", err),
		}
	}

	d.logger.Debug("episode written",
		logging.Filename(ep.Filename),
		logging.Int64("bytes", written),
	)
	return written, nil
}

func transportKind(err error) string {
	var verifyErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &unknownAuthority),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidErr):
		return podcast.KindCertificate
	default:
		return podcast.KindNetwork
	}
}
