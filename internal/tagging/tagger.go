// Package tagging writes podcast metadata into downloaded media files.
package tagging

import (
	"fmt"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"

	"podd/internal/logging"
	"podd/internal/podcast"
)

// Metadata is the tag set written to every episode file.
type Metadata struct {
	Title  string
	Artist string
	Album  string
	Genre  string
}

// MetadataFor builds the tag set for ep: artist, album, and album artist all
// carry the podcast name.
func MetadataFor(ep podcast.Episode) Metadata {
	return Metadata{
		Title:  ep.Title,
		Artist: ep.PodcastName,
		Album:  ep.PodcastName,
		Genre:  podcast.Genre,
	}
}

// writer applies Metadata to one container format.
type writer interface {
	name() string
	write(path string, meta Metadata) error
}

// Tagger chooses a writer by sniffing file content.
type Tagger struct {
	logger *slog.Logger
}

// New builds a Tagger.
func New(logger *slog.Logger) *Tagger {
	return &Tagger{logger: logging.NewComponentLogger(logger, "tagging")}
}

// Tag writes metadata for a successfully downloaded episode. It is a no-op
// when ep.Err is set. Failures are returned as *podcast.TagError; the caller
// decides how to record them.
func (t *Tagger) Tag(ep podcast.Episode) error {
	if ep.Err != nil {
		return nil
	}

	mime, err := mimetype.DetectFile(ep.Filename)
	if err != nil {
		return &podcast.TagError{Filename: ep.Filename, Kind: podcast.KindWrite, Err: fmt.Errorf("detect format: %w", err)}
	}

	w := writerFor(mime)
	if w == nil {
		return &podcast.TagError{
			Filename: ep.Filename,
			Kind:     podcast.KindUnsupported,
			Format:   mime.String(),
			Err:      podcast.ErrUnsupportedFormat,
		}
	}

	if err := w.write(ep.Filename, MetadataFor(ep)); err != nil {
		return &podcast.TagError{Filename: ep.Filename, Kind: podcast.KindWrite, Format: mime.String(), Err: err}
	}
	t.logger.Debug("tags written",
		logging.Filename(ep.Filename),
		logging.String("format", w.name()),
	)
	return nil
}

// writerFor walks the MIME hierarchy so aliases such as audio/x-m4a resolve
// to their video/mp4 parent.
func writerFor(mime *mimetype.MIME) writer {
	for m := mime; m != nil; m = m.Parent() {
		switch {
		case m.Is("audio/mpeg"):
			return id3Writer{}
		case m.Is("video/mp4"), m.Is("video/quicktime"):
			return mp4Writer{}
		}
	}
	return nil
}
