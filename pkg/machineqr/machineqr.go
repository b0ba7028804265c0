// Package machineqr renders the QR code printed on a machine's report page.
//
// The code uses ECC level H so a status-colored badge can cover the middle
// without making it unreadable. Scaling and drawing are done in memory with
// the standard image packages.
package machineqr

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	qrcode "github.com/skip2/go-qrcode"

	"forest-machine-map/pkg/machines"
)

type Options struct {
	// Output size in px.
	Size int

	Fg color.RGBA
	Bg color.RGBA

	// BadgeFrac is the side of the central badge relative to the image, clamped to 0.15..0.30.
	BadgeFrac float64
}

// DefaultSize is used when Options.Size is not set.
const DefaultSize = 512

// StatusRGBA maps the status palette to the badge color.
func StatusRGBA(c machines.Color) color.RGBA {
	switch c {
	case machines.ColorGreen:
		return color.RGBA{0x2E, 0x7D, 0x32, 0xFF}
	case machines.ColorGold:
		return color.RGBA{0xD4, 0xA0, 0x17, 0xFF}
	case machines.ColorRed:
		return color.RGBA{0xC6, 0x28, 0x28, 0xFF}
	}
	return color.RGBA{0x75, 0x75, 0x75, 0xFF}
}

func (o *Options) defaults() {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.BadgeFrac <= 0 {
		o.BadgeFrac = 0.24
	}
	o.BadgeFrac = math.Min(math.Max(o.BadgeFrac, 0.15), 0.30)
	if (o.Fg == color.RGBA{}) {
		o.Fg = color.RGBA{0, 0, 0, 0xFF}
	}
	if (o.Bg == color.RGBA{}) {
		o.Bg = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	}
}

// Render builds the QR image for content with a badge in the color of status.
func Render(content string, status machines.Status, opt Options) (*image.RGBA, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	opt.defaults()

	qr, err := qrcode.New(content, qrcode.Highest)
	if err != nil {
		return nil, fmt.Errorf("build qr: %w", err)
	}
	qr.ForegroundColor = opt.Fg
	qr.BackgroundColor = opt.Bg

	src := qr.Image(opt.Size)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{opt.Bg}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)

	box := int(opt.BadgeFrac * float64(min(w, h)))
	if box%2 == 1 {
		box--
	}
	cx, cy := w/2, h/2
	fillRect(dst, cx-box/2, cy-box/2, box, box, opt.Bg)

	// Ring in the foreground color around a disc in the status color.
	outer := int(0.46 * float64(box))
	fillCircle(dst, cx, cy, outer, opt.Fg)
	fillCircle(dst, cx, cy, int(0.84*float64(outer)), StatusRGBA(machines.ColorOf(status)))
	if status.Blinks() {
		fillCircle(dst, cx, cy, int(0.28*float64(outer)), opt.Bg)
	}
	return dst, nil
}

// EncodePNG writes the QR for content to w as PNG.
func EncodePNG(w io.Writer, content string, status machines.Status, opt Options) error {
	img, err := Render(content, status, opt)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}

func fillRect(img *image.RGBA, x, y, w, h int, col color.RGBA) {
	draw.Draw(img, image.Rect(x, y, x+w, y+h), &image.Uniform{col}, image.Point{}, draw.Src)
}

func fillCircle(img *image.RGBA, cx, cy, r int, col color.RGBA) {
	if r <= 0 {
		return
	}
	r2 := r * r
	b := img.Bounds()
	minY := max(cy-r, b.Min.Y)
	maxY := min(cy+r, b.Max.Y-1)
	for y := minY; y <= maxY; y++ {
		dy := y - cy
		xx := int(math.Sqrt(float64(r2 - dy*dy)))
		x1 := max(cx-xx, b.Min.X)
		x2 := min(cx+xx, b.Max.X-1)
		for x := x1; x <= x2; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
