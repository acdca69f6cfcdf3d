package tagging

import (
	"fmt"

	"github.com/Sorrow446/go-mp4tag"
)

type mp4Writer struct{}

func (mp4Writer) name() string { return "mp4" }

// write sets the iTunes item atoms, first adding an empty udta/meta/ilst
// chain when the file has none since mp4tag only rewrites an existing ilst.
func (mp4Writer) write(path string, meta Metadata) error {
	if err := ensureTagContainer(path); err != nil {
		return fmt.Errorf("prepare mp4 atoms: %w", err)
	}
	file, err := mp4tag.Open(path)
	if err != nil {
		return fmt.Errorf("open mp4: %w", err)
	}
	defer file.Close()

	tags := &mp4tag.MP4Tags{
		Title:       meta.Title,
		Artist:      meta.Artist,
		Album:       meta.Album,
		AlbumArtist: meta.Artist,
		CustomGenre: meta.Genre,
	}
	if err := file.Write(tags, []string{}); err != nil {
		return fmt.Errorf("write mp4 atoms: %w", err)
	}
	return nil
}
