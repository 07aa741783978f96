// Package terminal draws book covers inline on terminals that speak an
// image protocol.
package terminal

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/BourgeoisBear/rasterm"
)

// Mode represents the terminal's image display capability
type Mode int

const (
	// ModeNone indicates no image support
	ModeNone Mode = iota
	// ModeKitty indicates Kitty graphics protocol support
	ModeKitty
	// ModeIterm indicates iTerm2 graphics protocol support
	ModeIterm
	// ModeSixel indicates Sixel graphics protocol support
	ModeSixel
)

// String returns the name accepted by ParseMode
func (m Mode) String() string {
	switch m {
	case ModeKitty:
		return "kitty"
	case ModeIterm:
		return "iterm"
	case ModeSixel:
		return "sixel"
	default:
		return "none"
	}
}

// ParseMode reads a mode name. "auto" and "" detect the terminal.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return Detect(), nil
	case "none":
		return ModeNone, nil
	case "kitty":
		return ModeKitty, nil
	case "iterm":
		return ModeIterm, nil
	case "sixel":
		return ModeSixel, nil
	}
	return ModeNone, fmt.Errorf("unknown image mode %q", s)
}

// Detect checks which image protocol the terminal supports
func Detect() Mode {
	if rasterm.IsKittyCapable() {
		return ModeKitty
	}
	if rasterm.IsItermCapable() {
		return ModeIterm
	}
	if capable, _ := rasterm.IsSixelCapable(); capable {
		return ModeSixel
	}
	return ModeNone
}

// Decode decodes a GIF, JPEG or PNG image
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// toPaletted converts an image to the paletted form Sixel requires
func toPaletted(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	paletted := image.NewPaletted(bounds, palette.Plan9)
	draw.Draw(paletted, bounds, img, bounds.Min, draw.Src)
	return paletted
}

// Write draws img to w using mode. Nothing is written for ModeNone.
func Write(w io.Writer, img image.Image, mode Mode) error {
	switch mode {
	case ModeKitty:
		return rasterm.KittyWriteImage(w, img, rasterm.KittyImgOpts{})
	case ModeIterm:
		return rasterm.ItermWriteImage(w, img)
	case ModeSixel:
		return rasterm.SixelWriteImage(w, toPaletted(img))
	}
	return nil
}
