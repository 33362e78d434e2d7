package image

import (
	"bytes"
	"fmt"
	"strings"
)

// Format is an image encoding recognised by its leading bytes.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	WebP Format = "webp"
)

var (
	jpegSignature = []byte{0xFF, 0xD8}
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47}
	riffSignature = []byte("RIFF")
	webpSignature = []byte("WEBP")
)

// Detect identifies the format of buf from its magic bytes.
func Detect(buf []byte) (Format, bool) {
	switch {
	case bytes.HasPrefix(buf, jpegSignature):
		return JPEG, true
	case bytes.HasPrefix(buf, pngSignature):
		return PNG, true
	case len(buf) >= 12 && bytes.Equal(buf[0:4], riffSignature) && bytes.Equal(buf[8:12], webpSignature):
		return WebP, true
	}
	return "", false
}

// ParseFormat maps a configured type name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "jpeg", "jpg", "image/jpeg":
		return JPEG, nil
	case "png", "image/png":
		return PNG, nil
	case "webp", "image/webp":
		return WebP, nil
	}
	return "", fmt.Errorf("unsupported image type %q", name)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// Extension returns the file extension used for stored objects.
func (f Format) Extension() string {
	if f == JPEG {
		return ".jpg"
	}
	return "." + string(f)
}
