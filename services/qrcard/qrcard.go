// Package qrcard renders the QR cards kiosks scan: a QR code of the student's LRN over a caption
// with their display name.
package qrcard

import (
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/trezcool/libkiosk/core/student"
)

const (
	DefaultSize   = 256
	MinSize       = 128
	MaxSize       = 1024
	captionHeight = 40
)

var ErrInvalidSize = errors.Errorf("size must be between %d and %d", MinSize, MaxSize)

// Encode returns the PNG QR code of content, without caption.
func Encode(content string, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	return png, errors.Wrap(err, "encoding QR code")
}

// Card returns the card image of s, size pixels wide. A size of 0 means DefaultSize.
func Card(s student.Student, size int) (*image.NRGBA, error) {
	if size == 0 {
		size = DefaultSize
	}
	if size < MinSize || size > MaxSize {
		return nil, ErrInvalidSize
	}

	qr, err := qrcode.New(s.LRN, qrcode.Medium)
	if err != nil {
		return nil, errors.Wrap(err, "encoding QR code")
	}

	card := imaging.New(size, size+captionHeight, color.White)
	card = imaging.Paste(card, qr.Image(size), image.Pt(0, 0))

	lines := []string{s.DisplayName(), "LRN " + s.LRN}
	for i, line := range lines {
		line = fit(line, size)
		width := font.MeasureString(basicfont.Face7x13, line).Ceil()
		d := &font.Drawer{
			Dst:  card,
			Src:  image.NewUniform(color.Black),
			Face: basicfont.Face7x13,
			Dot:  fixed.P((size-width)/2, size+14+i*16),
		}
		d.DrawString(line)
	}
	return card, nil
}

// Render writes the PNG card of s to w.
func Render(w io.Writer, s student.Student, size int) error {
	card, err := Card(s, size)
	if err != nil {
		return err
	}
	return errors.Wrap(imaging.Encode(w, card, imaging.PNG), "encoding QR card")
}

// fit truncates text to the number of glyphs that fit in width pixels.
func fit(text string, width int) string {
	glyph := basicfont.Face7x13.Advance
	runes := []rune(text)
	if n := width / glyph; len(runes) > n && n > 3 {
		return string(runes[:n-3]) + "..."
	}
	return text
}
