// Package normalizer re-encodes arbitrary input images into a bounded-quality
// JPEG payload before they enter the record store.
package normalizer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/mkarlsen/keepsake/internal/apperr"
)

// MIMEType is the type of every normalized payload.
const MIMEType = "image/jpeg"

// jpegQuality keeps re-encoded photos visually lossless without storing
// camera-original sizes.
const jpegQuality = 92

// Normalize decodes raw image bytes (png, jpeg, gif, webp) and re-encodes
// them as JPEG, preserving the original pixel dimensions. A failure for one
// file never affects siblings; callers skip and log.
func Normalize(raw []byte) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("normalizer: %w: %v", apperr.ErrDecode, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("normalizer: %w: %v", apperr.ErrEncode, err)
	}
	return buf.Bytes(), MIMEType, nil
}
