package episode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"podd/internal/podcast"

	"golang.org/x/text/unicode/norm"
)

// DefaultExtension is used when the media URL carries no recognised suffix.
const DefaultExtension = ".mp3"

// extensions is scanned in order; the first one found anywhere in the
// lower-cased URL wins, so query strings and path segments still match.
var extensions = []string{".mp3", ".m4a", ".wav", ".mp4", ".m4v", ".mov", ".avi", ".wmv"}

// Extension picks the file extension for a media URL.
func Extension(mediaURL string) string {
	lowered := strings.ToLower(mediaURL)
	for _, ext := range extensions {
		if strings.Contains(lowered, ext) {
			return ext
		}
	}
	return DefaultExtension
}

// SanitizeTitle turns an episode or feed title into a single path component:
// slashes become dashes, surrounding space is dropped, and the result is
// NFC-normalized so equal titles always map to equal names.
func SanitizeTitle(title string) string {
	cleaned := strings.ReplaceAll(title, "/", "-")
	cleaned = strings.TrimSpace(cleaned)
	return norm.NFC.String(cleaned)
}

// UniqueFilenames returns a copy of eps in which no two downloadable episodes
// share a Filename and none points at a file that already exists. A clash
// gets " (2)", " (3)" and so on inserted before the extension, first come
// first served in slice order.
func UniqueFilenames(eps []podcast.Episode) []podcast.Episode {
	if len(eps) == 0 {
		return eps
	}
	out := make([]podcast.Episode, len(eps))
	copy(out, eps)
	taken := make(map[string]struct{}, len(out))
	for i := range out {
		if out[i].AudioURL == "" || out[i].Filename == "" {
			continue
		}
		name := out[i].Filename
		candidate := name
		for n := 2; filenameTaken(taken, candidate); n++ {
			candidate = numberedFilename(name, n)
		}
		taken[candidate] = struct{}{}
		out[i].Filename = candidate
	}
	return out
}

func filenameTaken(taken map[string]struct{}, path string) bool {
	if _, ok := taken[path]; ok {
		return true
	}
	_, err := os.Lstat(path)
	return err == nil
}

func numberedFilename(path string, n int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(path, ext), n, ext)
}
