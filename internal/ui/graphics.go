package ui

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/qeesung/image2ascii/convert"
)

// RenderPhotoPreview renders encoded image bytes as colored ASCII art.
func RenderPhotoPreview(data []byte, targetWidth, targetHeight int) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode photo: %w", err)
	}
	return convertToASCII(img, targetWidth, targetHeight), nil
}

// convertToASCII converts an image to colored ASCII art.
func convertToASCII(img image.Image, targetWidth, targetHeight int) string {
	converter := convert.NewImageConverter()

	opts := convert.DefaultOptions
	opts.FixedWidth = targetWidth
	opts.FixedHeight = targetHeight
	opts.Colored = true
	// Terminal cells are about twice as tall as wide.
	opts.Ratio = 0.5

	return converter.Image2ASCIIString(img, &opts)
}
