// Package imaging prepares customer photo uploads for submission to the
// generation provider: decoding, downscaling oversized photos, and
// encoding to base64 data URIs.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	_ "image/gif"

	"golang.org/x/image/draw"
)

// Image preparation errors
var (
	ErrEmptyImage        = errors.New("imaging: empty image data")
	ErrInvalidImage      = errors.New("imaging: invalid image data")
	ErrUnsupportedFormat = errors.New("imaging: unsupported image format")
	ErrTooLarge          = errors.New("imaging: image exceeds size limit")
	ErrInvalidDataURI    = errors.New("imaging: invalid data URI")
)

// Encoder converts uploaded photos into transportable data URIs.
// Oversized photos are downscaled before encoding: generation providers
// cap request payload sizes, and portrait sources do not need more than
// MaxEdge pixels on their longest side.
type Encoder struct {
	// MaxBytes is the maximum accepted upload size in bytes (0 = no limit).
	MaxBytes int64

	// MaxEdge is the maximum pixel length of the longest side after
	// preparation (0 = never downscale).
	MaxEdge int

	// JPEGQuality is used when re-encoding downscaled photos.
	// Default: 90.
	JPEGQuality int
}

// NewEncoder creates an Encoder with the given limits.
func NewEncoder(maxBytes int64, maxEdge int) *Encoder {
	return &Encoder{
		MaxBytes:    maxBytes,
		MaxEdge:     maxEdge,
		JPEGQuality: 90,
	}
}

// EncodeUpload validates, optionally downscales, and encodes raw upload
// bytes into a data URI suitable for the generation request.
//
// Photos already within the edge limit are passed through byte-for-byte
// (no recompression). Downscaled photos are re-encoded as JPEG, except
// PNG sources which stay PNG to preserve transparency.
func (e *Encoder) EncodeUpload(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if e.MaxBytes > 0 && int64(len(data)) > e.MaxBytes {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(data), e.MaxBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	if e.MaxEdge <= 0 || (bounds.Dx() <= e.MaxEdge && bounds.Dy() <= e.MaxEdge) {
		return EncodeDataURI(mimeTypeFor(format), data), nil
	}

	scaled := Downscale(img, e.MaxEdge)

	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, scaled); err != nil {
			return "", fmt.Errorf("imaging: failed to re-encode png: %w", err)
		}
		return EncodeDataURI("image/png", buf.Bytes()), nil
	default:
		quality := e.JPEGQuality
		if quality <= 0 {
			quality = 90
		}
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
			return "", fmt.Errorf("imaging: failed to re-encode jpeg: %w", err)
		}
		return EncodeDataURI("image/jpeg", buf.Bytes()), nil
	}
}

// Downscale resizes an image so its longest side equals maxEdge,
// preserving aspect ratio, using high-quality Catmull-Rom interpolation.
// Images already within the limit are returned unchanged.
func Downscale(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	longest := width
	if height > longest {
		longest = height
	}
	if maxEdge <= 0 || longest <= maxEdge {
		return img
	}

	scale := float64(maxEdge) / float64(longest)
	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// EncodeDataURI encodes raw bytes as a base64 data URI with the given
// MIME type.
func EncodeDataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ParseDataURI splits a base64 data URI into its MIME type and decoded
// bytes. Returns ErrInvalidDataURI for anything that is not a well-formed
// base64 data URI.
func ParseDataURI(uri string) (mimeType string, data []byte, err error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, ErrInvalidDataURI
	}

	rest := uri[len("data:"):]
	sep := strings.Index(rest, ",")
	if sep < 0 {
		return "", nil, ErrInvalidDataURI
	}

	meta := rest[:sep]
	payload := rest[sep+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("%w: only base64 data URIs are supported", ErrInvalidDataURI)
	}
	mimeType = strings.TrimSuffix(meta, ";base64")

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return mimeType, data, nil
}

// IsDataURI reports whether the string looks like a data URI rather than
// a remote URL.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// Base64Payload returns just the base64 payload of a data URI, without
// decoding it. The ImgBB side channel submits this form directly.
func Base64Payload(uri string) (string, error) {
	if !IsDataURI(uri) {
		return "", ErrInvalidDataURI
	}
	sep := strings.Index(uri, ",")
	if sep < 0 {
		return "", ErrInvalidDataURI
	}
	return uri[sep+1:], nil
}

// mimeTypeFor maps an image.Decode format name to a MIME type.
func mimeTypeFor(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
