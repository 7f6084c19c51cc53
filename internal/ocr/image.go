package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/kapu/baselink-bot/internal/domain"
)

// decodeImage checks that data is a decodable image and returns its format
// and dimensions.
func decodeImage(data []byte) (string, image.Config, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", image.Config{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return "", image.Config{}, fmt.Errorf("image has no pixels")
	}
	return format, cfg, nil
}

// sniffMIME prefers the decoded format over the declared content type.
func sniffMIME(att *domain.ImageAttachment) string {
	if format, _, err := decodeImage(att.Data); err == nil {
		return "image/" + format
	}
	return att.MIMEType()
}
