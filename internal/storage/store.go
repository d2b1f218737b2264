// Package storage persists final composites to disk as horizontally tiled
// print sheets with collision-resistant, timestamp-based filenames.
package storage

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/youruser/framegen/internal/codec"
	"github.com/youruser/framegen/internal/frame"
)

const (
	// DefaultCopies is used when the requested copy count is absent or
	// unparseable. The value 2 matches the deployed behavior.
	DefaultCopies = 2
	// MaxCopies bounds a print sheet to five side-by-side duplicates.
	MaxCopies = 5
)

// ParseCopies interprets a user-supplied copy count: non-numeric input
// defaults to DefaultCopies, out-of-range values are clamped to [1, MaxCopies].
func ParseCopies(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultCopies
	}
	if n < 1 {
		return 1
	}
	if n > MaxCopies {
		return MaxCopies
	}
	return n
}

// Store writes composites under a single base directory.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Save tiles r side by side `copies` times, encodes the sheet as an
// uncompressed 300-DPI PNG and writes it to
// {tag_}{YYYYMMDD_HHMMSS}{_Nx if N>1}.png under the store directory,
// returning the path relative to it.
func (s *Store) Save(r frame.Raster, tag string, copies int) (string, error) {
	if copies < 1 {
		copies = 1
	}
	if copies > MaxCopies {
		copies = MaxCopies
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", s.dir, err)
	}

	sheet := r
	if copies > 1 {
		sheet = tile(r, copies)
	}

	data, err := codec.EncodePNG(sheet)
	if err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}

	name := filename(tag, time.Now(), copies)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: writing %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("copies", copies).Msg("saved frame")
	return name, nil
}

// tile duplicates r horizontally.
func tile(r frame.Raster, copies int) frame.Raster {
	b := r.Img.Bounds()
	w, h := b.Dx(), b.Dy()

	sheet := imaging.New(w*copies, h, color.Transparent)
	for i := 0; i < copies; i++ {
		sheet = imaging.Paste(sheet, r.Img, image.Pt(i*w, 0))
	}

	out := r
	out.Img = sheet
	return out
}

func filename(tag string, ts time.Time, copies int) string {
	var b strings.Builder
	if tag = sanitizeTag(tag); tag != "" {
		b.WriteString(tag)
		b.WriteByte('_')
	}
	b.WriteString(ts.Format("20060102_150405"))
	if copies > 1 {
		fmt.Fprintf(&b, "_%dx", copies)
	}
	b.WriteString(".png")
	return b.String()
}

// sanitizeTag keeps the tag safe as a filename component.
func sanitizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, tag)
}
