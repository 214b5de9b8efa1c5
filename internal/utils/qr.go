package utils

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// GenerateQRCode renders data as a QR code PNG at path. fill and back are
// hex RGB colors ("#RRGGBB"). moduleSize is the pixel width of a single QR
// module; callers validate it against the 1..40 range before reaching here.
func GenerateQRCode(data, path, fill, back string, moduleSize int) error {
	fg, err := ParseHexColor(fill)
	if err != nil {
		return fmt.Errorf("fill color: %w", err)
	}
	bg, err := ParseHexColor(back)
	if err != nil {
		return fmt.Errorf("back color: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// A version-1 symbol is 21 modules wide plus the quiet zone, so the
	// raster edge is moduleSize*29 pixels at minimum.
	px := moduleSize * 29
	return qrcode.WriteColorFile(data, qrcode.Medium, px, bg, fg, path)
}

// ParseHexColor converts "#RRGGBB" (case-insensitive, leading '#' optional)
// into an opaque RGBA color.
func ParseHexColor(s string) (color.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return nil, fmt.Errorf("invalid hex color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return nil, fmt.Errorf("invalid hex color %q", s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
