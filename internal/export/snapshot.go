// Package export produces the durable artifacts of a board: still snapshots,
// frame-sequence recordings and PDF prints of the operation log.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
)

// ErrEncode wraps every failure to encode an artifact.
var ErrEncode = errors.New("encode artifact")

// Format is the raster encoding used for snapshots and frames.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

const jpegQuality = 90

// ParseFormat accepts png, jpeg and jpg.
func ParseFormat(v string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "png", "":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("unsupported image format %q", v)
}

// Ext is the file extension, without the dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// ContentType is the MIME type of the encoding.
func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Artifact is a finished export ready to be saved or downloaded.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// WriteTo writes the artifact payload.
func (a Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.Data)
	return int64(n), err
}

// Encode writes img in the given format.
func Encode(w io.Writer, img image.Image, f Format) error {
	var err error
	switch f {
	case FormatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(w, img)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncode, f, err)
	}
	return nil
}

// Snapshot encodes a single still of the board.
func Snapshot(img image.Image, f Format) (Artifact, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f); err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Name:        "whiteboard_snapshot." + f.Ext(),
		ContentType: f.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}
