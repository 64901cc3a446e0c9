package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrUnsupportedFormat is returned for image data or format names the codec
// cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Format names an encoded image format.
type Format string

// Supported formats. The values match the names image.Decode reports.
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatWebP Format = "webp"
)

// DefaultFormat is used when the source format is unknown. It is lossless.
const DefaultFormat = FormatPNG

// ParseFormat accepts a format name, a file extension or a MIME type.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "image/")
	s = strings.TrimPrefix(s, ".")
	switch s {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "gif":
		return FormatGIF, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// MimeType returns the MIME type for f, or "application/octet-stream".
func (f Format) MimeType() string {
	switch f {
	case FormatPNG, FormatJPEG, FormatGIF, FormatWebP:
		return "image/" + string(f)
	}
	return "application/octet-stream"
}

// Source is a decoded image together with the format it was stored in.
type Source struct {
	Image image.Image

	// Format is empty when the origin format is unknown, for example for
	// images built in memory.
	Format Format
}

// Decode reads an encoded image from data.
//
// The registered standard decoders are tried first; WebP variants the
// x/image decoder rejects fall back to the libwebp-based decoder.
func Decode(data []byte) (*Source, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return &Source{Image: img, Format: Format(name)}, nil
	}

	if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return &Source{Image: wimg, Format: FormatWebP}, nil
	}
	return nil, fmt.Errorf("failed to decode image: %w", err)
}

// DecodeString decodes a data URL ("data:image/png;base64,...") or a bare
// base64 payload.
func DecodeString(s string) (*Source, error) {
	s = strings.TrimSpace(s)
	payload := s
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, fmt.Errorf("invalid data URL: missing payload")
		}
		meta := s[len("data:"):comma]
		if !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("invalid data URL: only base64 payloads are supported")
		}
		payload = s[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return Decode(data)
}

// EncodeOptions tunes lossy encoders.
type EncodeOptions struct {
	// Quality is used for JPEG and lossy WebP, 1-100. Zero means 90.
	Quality int

	// Lossless switches WebP output to lossless mode.
	Lossless bool
}

// Encode writes img in format f. An empty format uses DefaultFormat.
func Encode(img image.Image, f Format, opts EncodeOptions) ([]byte, error) {
	if f == "" {
		f = DefaultFormat
	}
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 90
	}

	var buf bytes.Buffer
	var err error
	switch f {
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case FormatJPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatGIF:
		err = imaging.Encode(&buf, img, imaging.GIF)
	case FormatWebP:
		err = webp.Encode(&buf, img, &webp.Options{Lossless: opts.Lossless, Quality: float32(quality)})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s image: %w", f, err)
	}
	return buf.Bytes(), nil
}

// DataURL builds a base64 data URL for data.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
