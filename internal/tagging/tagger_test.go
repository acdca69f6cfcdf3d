package tagging_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Sorrow446/go-mp4tag"
	"github.com/bogem/id3v2/v2"

	"podd/internal/podcast"
	"podd/internal/tagging"
	"podd/internal/testsupport"
)

func TestTagWritesID3Frames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Episode.mp3")
	testsupport.WriteFile(t, path, testsupport.MP3Payload())

	ep := podcast.Episode{Title: "Episode", PodcastName: "Some Show", Filename: path}
	if err := tagging.New(nil).Tag(ep); err != nil {
		t.Fatalf("Tag returned error: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("reopen tag: %v", err)
	}
	defer tag.Close()
	if tag.Title() != "Episode" {
		t.Fatalf("unexpected title %q", tag.Title())
	}
	if tag.Artist() != "Some Show" || tag.Album() != "Some Show" {
		t.Fatalf("unexpected artist/album %q/%q", tag.Artist(), tag.Album())
	}
	if tag.Genre() != podcast.Genre {
		t.Fatalf("unexpected genre %q", tag.Genre())
	}
	if got := tag.GetTextFrame(tag.CommonID("Band/Orchestra/Accompaniment")).Text; got != "Some Show" {
		t.Fatalf("unexpected album artist %q", got)
	}
}

func TestTagWritesMP4Atoms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Episode.m4a")
	testsupport.WriteFile(t, path, testsupport.M4APayload())

	ep := podcast.Episode{Title: "Episode", PodcastName: "Some Show", Filename: path}
	tagger := tagging.New(nil)
	if err := tagger.Tag(ep); err != nil {
		t.Fatalf("Tag returned error: %v", err)
	}
	// A second pass rewrites the existing item list in place.
	ep.Title = "Episode, Revised"
	if err := tagger.Tag(ep); err != nil {
		t.Fatalf("second Tag returned error: %v", err)
	}

	file, err := mp4tag.Open(path)
	if err != nil {
		t.Fatalf("reopen mp4: %v", err)
	}
	defer file.Close()
	tags, err := file.Read()
	if err != nil {
		t.Fatalf("read mp4 atoms: %v", err)
	}
	if tags.Title != "Episode, Revised" {
		t.Fatalf("unexpected title %q", tags.Title)
	}
	if tags.Artist != "Some Show" || tags.Album != "Some Show" || tags.AlbumArtist != "Some Show" {
		t.Fatalf("unexpected artist/album/album artist %q/%q/%q", tags.Artist, tags.Album, tags.AlbumArtist)
	}
	if tags.CustomGenre != podcast.Genre {
		t.Fatalf("unexpected genre %q", tags.CustomGenre)
	}
}

func TestTagUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.mp3")
	testsupport.WriteFile(t, path, []byte("plain text pretending to be audio\n"))

	err := tagging.New(nil).Tag(podcast.Episode{Title: "x", PodcastName: "y", Filename: path})
	var tagErr *podcast.TagError
	if !errors.As(err, &tagErr) {
		t.Fatalf("expected TagError, got %T %v", err, err)
	}
	if tagErr.Kind != podcast.KindUnsupported {
		t.Fatalf("expected unsupported kind, got %q", tagErr.Kind)
	}
	if !errors.Is(err, podcast.ErrUnsupportedFormat) {
		t.Fatal("expected ErrUnsupportedFormat in chain")
	}
}

func TestTagSkipsFailedEpisodes(t *testing.T) {
	ep := podcast.Episode{Filename: filepath.Join(t.TempDir(), "missing.mp3"), Err: errors.New("download failed")}
	if err := tagging.New(nil).Tag(ep); err != nil {
		t.Fatalf("expected no-op for failed episode, got %v", err)
	}
}

func TestTagMissingFile(t *testing.T) {
	err := tagging.New(nil).Tag(podcast.Episode{Filename: filepath.Join(t.TempDir(), "gone.mp3")})
	if kind := podcast.Kind(err); kind != podcast.KindWrite {
		t.Fatalf("expected write kind, got %q (%v)", kind, err)
	}
}

func TestMetadataFor(t *testing.T) {
	meta := tagging.MetadataFor(podcast.Episode{Title: "T", PodcastName: "P"})
	if meta.Title != "T" || meta.Artist != "P" || meta.Album != "P" || meta.Genre != "Podcast" {
		t.Fatalf("unexpected metadata %#v", meta)
	}
}
