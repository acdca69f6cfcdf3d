package podcast

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoAudioLink marks entries without a downloadable enclosure.
	ErrNoAudioLink = errors.New("no audio link")
	// ErrUnsupportedFormat marks files whose container cannot be tagged.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Failure kinds shared by the typed errors below.
const (
	KindNetwork     = "network"
	KindHTTPStatus  = "http_status"
	KindCertificate = "certificate"
	KindParse       = "parse"
	KindFilesystem  = "filesystem"
	KindNoAudio     = "no_audio"
	KindUnsupported = "unsupported"
	KindWrite       = "write"
)

// ErrorClassifier lets callers group failures without inspecting messages.
type ErrorClassifier interface {
	ErrorKind() string
}

// FetchError reports a feed that could not be retrieved or parsed.
type FetchError struct {
	URL        string
	Kind       string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return describe("fetch feed", e.URL, e.Kind, e.StatusCode, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) ErrorKind() string { return e.Kind }

// DownloadError reports an episode file that could not be written.
type DownloadError struct {
	URL        string
	Filename   string
	Kind       string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	target := e.URL
	if target == "" {
		target = e.Filename
	}
	return describe("download episode", target, e.Kind, e.StatusCode, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

func (e *DownloadError) ErrorKind() string { return e.Kind }

// TagError reports a downloaded file whose metadata could not be written.
type TagError struct {
	Filename string
	Kind     string
	Format   string
	Err      error
}

func (e *TagError) Error() string {
	var b strings.Builder
	b.WriteString("tag ")
	b.WriteString(e.Filename)
	if e.Format != "" {
		b.WriteString(" (")
		b.WriteString(e.Format)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TagError) Unwrap() error { return e.Err }

func (e *TagError) ErrorKind() string { return e.Kind }

// Kind returns the classification of err, or "" when err is unclassified.
func Kind(err error) string {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return ""
}

func describe(op, target, kind string, status int, err error) string {
	msg := op
	if target != "" {
		msg = fmt.Sprintf("%s %s", msg, target)
	}
	if status > 0 {
		msg = fmt.Sprintf("%s: status %d", msg, status)
	} else if kind != "" && err == nil {
		msg = fmt.Sprintf("%s: %s", msg, kind)
	}
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return msg
}
