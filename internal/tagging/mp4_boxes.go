package tagging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const boxHeaderSize = 8

var errUnsupportedLayout = errors.New("unsupported mp4 box layout")

// box is one parsed ISO-BMFF box header, with offsets relative to the buffer
// or file it was read from.
type box struct {
	kind  string
	start int64
	size  int64
}

func (b box) end() int64 { return b.start + b.size }

// ensureTagContainer makes sure path has a moov.udta.meta.ilst chain, adding
// whichever containers are missing at the end of their parent. Chunk offsets
// that point past moov are shifted by the bytes inserted. Files that already
// carry an ilst are left untouched.
func ensureTagContainer(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	top, err := readBoxHeaders(f, 0, info.Size())
	if err != nil {
		return err
	}
	moovBox, ok := findBox(top, "moov")
	if !ok {
		return fmt.Errorf("%w: moov box not present", errUnsupportedLayout)
	}

	moov := make([]byte, moovBox.size)
	if _, err := f.ReadAt(moov, moovBox.start); err != nil {
		return err
	}
	grown, err := growMoov(moov)
	if err != nil {
		return err
	}
	if grown == nil {
		return nil
	}
	delta := int64(len(grown) - len(moov))
	if err := shiftChunkOffsets(grown, moovBox.end(), delta); err != nil {
		return err
	}
	return replaceRange(f, path, info.Mode().Perm(), moovBox, grown)
}

// growMoov returns a copy of moov with the missing tag containers appended, or
// nil when an ilst is already present.
func growMoov(moov []byte) ([]byte, error) {
	children, err := readBufferHeaders(moov, boxHeaderSize, int64(len(moov)))
	if err != nil {
		return nil, err
	}
	// Enclosing boxes whose size field must grow, outermost first.
	parents := []int64{0}
	insertAt := int64(len(moov))
	var missing []byte

	udta, ok := findBox(children, "udta")
	switch {
	case !ok:
		missing = udtaBox()
	default:
		parents = append(parents, udta.start)
		metas, err := readBufferHeaders(moov, udta.start+boxHeaderSize, udta.end())
		if err != nil {
			return nil, err
		}
		meta, ok := findBox(metas, "meta")
		if !ok {
			insertAt = udta.end()
			missing = metaBox()
			break
		}
		parents = append(parents, meta.start)
		// meta is a full box: version and flags precede its children.
		items, err := readBufferHeaders(moov, meta.start+boxHeaderSize+4, meta.end())
		if err != nil {
			return nil, err
		}
		if _, ok := findBox(items, "ilst"); ok {
			return nil, nil
		}
		insertAt = meta.end()
		missing = boxBytes("ilst", nil)
	}

	out := make([]byte, 0, len(moov)+len(missing))
	out = append(out, moov[:insertAt]...)
	out = append(out, missing...)
	out = append(out, moov[insertAt:]...)
	for _, off := range parents {
		size := binary.BigEndian.Uint32(out[off:])
		if size < boxHeaderSize {
			return nil, fmt.Errorf("%w: extended box size", errUnsupportedLayout)
		}
		binary.BigEndian.PutUint32(out[off:], size+uint32(len(missing)))
	}
	return out, nil
}

// shiftChunkOffsets adds delta to every stco/co64 entry that points at or
// beyond oldMoovEnd, the file position where media after moov started.
func shiftChunkOffsets(moov []byte, oldMoovEnd, delta int64) error {
	var walk func(start, end int64) error
	walk = func(start, end int64) error {
		boxes, err := readBufferHeaders(moov, start, end)
		if err != nil {
			return err
		}
		for _, b := range boxes {
			switch b.kind {
			case "trak", "mdia", "minf", "stbl":
				if err := walk(b.start+boxHeaderSize, b.end()); err != nil {
					return err
				}
			case "stco", "co64":
				if err := shiftTable(moov[b.start:b.end()], b.kind == "co64", oldMoovEnd, delta); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(boxHeaderSize, int64(len(moov)))
}

func shiftTable(table []byte, wide bool, threshold, delta int64) error {
	const countAt = boxHeaderSize + 4
	if len(table) < countAt+4 {
		return fmt.Errorf("%w: truncated chunk offset table", errUnsupportedLayout)
	}
	count := int64(binary.BigEndian.Uint32(table[countAt:]))
	width := int64(4)
	if wide {
		width = 8
	}
	if int64(len(table)) < countAt+4+count*width {
		return fmt.Errorf("%w: truncated chunk offset table", errUnsupportedLayout)
	}
	for i := int64(0); i < count; i++ {
		at := countAt + 4 + i*width
		if wide {
			off := int64(binary.BigEndian.Uint64(table[at:]))
			if off >= threshold {
				binary.BigEndian.PutUint64(table[at:], uint64(off+delta))
			}
			continue
		}
		off := int64(binary.BigEndian.Uint32(table[at:]))
		if off >= threshold {
			binary.BigEndian.PutUint32(table[at:], uint32(off+delta))
		}
	}
	return nil
}

// replaceRange rewrites path with old's bytes swapped for repl, via a
// sibling temp file renamed into place.
func replaceRange(src *os.File, path string, perm os.FileMode, old box, repl []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tag")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if _, err := io.Copy(tmp, io.NewSectionReader(src, 0, old.start)); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(repl); err != nil {
		tmp.Close()
		return err
	}
	if _, err := io.Copy(tmp, io.NewSectionReader(src, old.end(), 1<<62)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func readBoxHeaders(r io.ReaderAt, start, end int64) ([]box, error) {
	var out []box
	header := make([]byte, boxHeaderSize)
	for pos := start; pos+boxHeaderSize <= end; {
		if _, err := r.ReadAt(header, pos); err != nil {
			return nil, err
		}
		b, err := parseHeader(header, pos, end)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
		pos = b.end()
	}
	return out, nil
}

func readBufferHeaders(buf []byte, start, end int64) ([]box, error) {
	return readBoxHeaders(bytes.NewReader(buf), start, end)
}

func parseHeader(header []byte, pos, end int64) (box, error) {
	size := int64(binary.BigEndian.Uint32(header))
	kind := string(header[4:8])
	switch {
	case size == 0:
		size = end - pos
	case size < boxHeaderSize:
		return box{}, fmt.Errorf("%w: %q box uses an extended size", errUnsupportedLayout, kind)
	case pos+size > end:
		return box{}, fmt.Errorf("%w: %q box overruns its parent", errUnsupportedLayout, kind)
	}
	return box{kind: kind, start: pos, size: size}, nil
}

func findBox(boxes []box, kind string) (box, bool) {
	for _, b := range boxes {
		if b.kind == kind {
			return b, true
		}
	}
	return box{}, false
}

func boxBytes(kind string, payload []byte) []byte {
	out := make([]byte, boxHeaderSize, boxHeaderSize+len(payload))
	binary.BigEndian.PutUint32(out, uint32(boxHeaderSize+len(payload)))
	copy(out[4:], kind)
	return append(out, payload...)
}

// metaBox is an empty iTunes metadata box: version/flags, an mdir handler and
// an empty item list.
func metaBox() []byte {
	hdlr := make([]byte, 0, 25)
	hdlr = append(hdlr, make([]byte, 8)...)
	hdlr = append(hdlr, "mdirappl"...)
	hdlr = append(hdlr, make([]byte, 9)...)

	payload := make([]byte, 4)
	payload = append(payload, boxBytes("hdlr", hdlr)...)
	payload = append(payload, boxBytes("ilst", nil)...)
	return boxBytes("meta", payload)
}

func udtaBox() []byte { return boxBytes("udta", metaBox()) }
