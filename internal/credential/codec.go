package credential

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	Prefix    = "QR-"
	imageSize = 256
	dataURL   = "data:image/png;base64,"
)

// NewID returns a fresh credential identifier.
func NewID() string {
	return Prefix + uuid.NewString()
}

// Encode renders id as a PNG QR code wrapped in a data URL.
func Encode(id string) (string, error) {
	png, err := qrcode.Encode(id, qrcode.Medium, imageSize)
	if err != nil {
		return "", fmt.Errorf("encode credential: %w", err)
	}
	return dataURL + base64.StdEncoding.EncodeToString(png), nil
}
