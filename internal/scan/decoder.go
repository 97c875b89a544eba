package scan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"agriflow/internal/model"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

var (
	// ErrNoCode is returned when a frame holds no readable QR code.
	ErrNoCode = errors.New("no QR code in frame")
	// ErrEmptyPayload is returned for a QR code with no text in it.
	ErrEmptyPayload = errors.New("empty QR code")
)

// DecodeQR returns the text of the QR code in an encoded image.
func DecodeQR(frame []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return "", fmt.Errorf("decode frame: %w", err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize frame: %w", err)
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCode, err)
	}
	return result.GetText(), nil
}

// Payload is the content of a farmer QR code: either the farmer itself,
// as printed on generated cards, or an opaque code the server resolves.
type Payload struct {
	Farmer *model.Farmer
	Code   string
}

// ParsePayload interprets QR text.
func ParsePayload(text string) (Payload, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Payload{}, ErrEmptyPayload
	}
	if strings.HasPrefix(text, "{") {
		var f model.Farmer
		if err := json.Unmarshal([]byte(text), &f); err == nil && f.ID != "" {
			return Payload{Farmer: &f}, nil
		}
	}
	return Payload{Code: text}, nil
}
