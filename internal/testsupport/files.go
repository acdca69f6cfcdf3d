package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// MP3Payload returns a small byte slice that content sniffers recognise as an
// MPEG audio stream: repeated MPEG-1 Layer III frame headers followed by
// silence.
func MP3Payload() []byte {
	frame := make([]byte, 417)
	frame[0], frame[1], frame[2], frame[3] = 0xFF, 0xFB, 0x90, 0x64
	out := make([]byte, 0, len(frame)*4)
	for range 4 {
		out = append(out, frame...)
	}
	return out
}

// M4AMedia is the sample data carried in the mdat box of M4APayload.
const M4AMedia = "aac-frames"

// M4APayload returns a minimal iTunes M4A file as many encoders emit it: an
// ftyp, a moov with one track whose stco points at the media, and a trailing
// mdat. It carries no udta box, so no tag container exists yet.
func M4APayload() []byte {
	ftyp := mp4Box("ftyp", []byte("M4A \x00\x00\x00\x00M4A mp42isom"))
	mvhd := mp4Box("mvhd", make([]byte, 100))

	// stco is built with a placeholder offset and patched once the moov size
	// is known.
	stcoBody := make([]byte, 12)
	binary.BigEndian.PutUint32(stcoBody[4:], 1)
	stco := mp4Box("stco", stcoBody)
	trak := mp4Box("trak", mp4Box("mdia", mp4Box("minf", mp4Box("stbl", stco))))
	moov := mp4Box("moov", append(mvhd, trak...))

	mediaAt := len(ftyp) + len(moov) + 8
	binary.BigEndian.PutUint32(moov[len(moov)-4:], uint32(mediaAt))

	out := append(ftyp, moov...)
	return append(out, mp4Box("mdat", []byte(M4AMedia))...)
}

func mp4Box(kind string, payload []byte) []byte {
	out := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint32(out, uint32(8+len(payload)))
	copy(out[4:], kind)
	return append(out, payload...)
}

// WriteFile creates path (and its parent directory) with data.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile returns the contents of path or fails the test.
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}
