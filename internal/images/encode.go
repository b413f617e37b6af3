// Package images downloads listing photos and re-encodes them as JPEG for
// inline upload.
package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	// Registered decoders for photos served by marketplace CDNs
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// JPEGQuality is the quality images are re-encoded at.
const JPEGQuality = 80

// EncodedImage is a listing photo re-encoded as JPEG.
type EncodedImage struct {
	SourceURL string
	Data      []byte
}

// Base64 returns the payload without any data URL prefix.
func (e EncodedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(e.Data)
}

// Encode decodes JPEG, PNG, GIF or WebP data and re-encodes it as JPEG at
// JPEGQuality. Transparent pixels become black.
func Encode(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode %s image as jpeg: %w", format, err)
	}
	return buf.Bytes(), nil
}
