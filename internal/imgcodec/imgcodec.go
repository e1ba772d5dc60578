// Package imgcodec is a thin semantic wrapper over disintegration/imaging,
// the Codec Facade of zimgd. It exposes only the operations the render
// pipeline needs, so callers never reach into the imaging package directly.
package imgcodec

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Format is a sniffed image container format.
type Format int

const (
	// Unknown means the magic bytes matched none of the supported formats.
	Unknown Format = iota
	PNG
	GIF
	JPEG
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "PNG"
	case GIF:
		return "GIF"
	case JPEG:
		return "JPEG"
	default:
		return "Unknown"
	}
}

type magicEntry struct {
	format Format
	magic  []byte
}

// magicTable holds the leading-byte signatures of every supported format,
// checked in order at offset 0.
var magicTable = []magicEntry{
	{PNG, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{GIF, []byte{0x47, 0x49, 0x46, 0x38}},
	{JPEG, []byte{0xFF, 0xD8, 0xFF}},
}

// Sniff identifies buf's format by its magic bytes. It returns Unknown if
// buf matches none of the supported formats or is too short to match any.
func Sniff(buf []byte) Format {
	for _, entry := range magicTable {
		if len(buf) < len(entry.magic) {
			continue
		}
		if bytes.Equal(buf[:len(entry.magic)], entry.magic) {
			return entry.format
		}
	}
	return Unknown
}

// Image wraps a decoded raster image. It is returned by Decode and consumed
// by Resize, ToGray, and EncodeJPEG — no finalizer or explicit Close is needed
// since the underlying representation is a plain Go value, but callers
// should still treat it as scope-bound: decode on entry, encode (or
// discard) on every exit path.
type Image struct {
	img image.Image
}

// Decode parses buf into a working Image. Any failure (truncated buffer,
// corrupt data, unsupported container) is reported as CodecFailure.
func Decode(buf []byte) (*Image, error) {
	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, errors.Wrap(err, "imgcodec: decode")
	}
	return &Image{img: img}, nil
}

// Width returns the image's pixel width.
func (i *Image) Width() int {
	return i.img.Bounds().Dx()
}

// Height returns the image's pixel height.
func (i *Image) Height() int {
	return i.img.Bounds().Dy()
}

// Resize applies a Lanczos resize to (w, h). Either dimension may be 0 to
// preserve aspect ratio on that axis, matching imaging.Resize's own
// convention, but the render pipeline always resolves both dimensions
// itself before calling Resize.
func (i *Image) Resize(w, h int) *Image {
	return &Image{img: imaging.Resize(i.img, w, h, imaging.Lanczos)}
}

// ToGray converts the image to single-channel luminance.
func (i *Image) ToGray() *Image {
	src := imaging.Grayscale(i.img)
	b := src.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, src, b.Min, draw.Src)
	return &Image{img: gray}
}

// EncodeJPEG re-encodes the image as JPEG at the given quality (1-100),
// with metadata stripped. imaging's JPEG encoder never round-trips EXIF or
// other ancillary chunks through the decode/encode cycle, so no separate
// strip step is needed — this mirrors the original's
// MagickStripImage+MagickWriteImage pair in a single call.
func (i *Image) EncodeJPEG(quality int) ([]byte, error) {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, i.img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, errors.Wrap(err, "imgcodec: encode jpeg")
	}
	return buf.Bytes(), nil
}
