package docx

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
)

// LoadImage reads an image file and sizes it to widthEMU, keeping its aspect
// ratio.
func LoadImage(path string, widthEMU int64) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return NewImage(data, widthEMU)
}

// NewImage decodes the header of data to learn its format and dimensions.
func NewImage(data []byte, widthEMU int64) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if widthEMU <= 0 {
		return nil, fmt.Errorf("image width must be positive, got %d", widthEMU)
	}

	return &Image{
		Data:   data,
		Format: format,
		Width:  widthEMU,
		Height: widthEMU * int64(cfg.Height) / int64(cfg.Width),
		Align:  AlignCenter,
	}, nil
}

func contentType(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	}
	return "application/octet-stream"
}

func extension(format string) string {
	if format == "jpeg" {
		return "jpeg"
	}
	return format
}
