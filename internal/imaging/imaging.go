// internal/imaging/imaging.go
// Package imaging prepares photographed problem statements for the
// multimodal generation path: decode, downscale to a bounded size, and
// re-encode so oversized phone photos never blow the request budget.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// MaxDimension bounds the longest edge of a prepared image in pixels.
const MaxDimension = 1024

const jpegQuality = 85

// Attachment is an image ready to ship inline with a generation request.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Prepare decodes raw PNG or JPEG bytes, proportionally downscales anything
// larger than MaxDimension on its longest edge, and re-encodes as JPEG.
func Prepare(raw []byte) (*Attachment, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("image %s has empty bounds", format)
	}

	if scaled := targetSize(w, h); scaled != (image.Point{X: w, Y: h}) {
		dst := image.NewRGBA(image.Rect(0, 0, scaled.X, scaled.Y))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return &Attachment{MIMEType: "image/jpeg", Data: buf.Bytes()}, nil
}

// targetSize returns the proportional size whose longest edge is at most
// MaxDimension. Images already within bounds keep their size.
func targetSize(w, h int) image.Point {
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= MaxDimension {
		return image.Point{X: w, Y: h}
	}
	scale := float64(MaxDimension) / float64(longest)
	out := image.Point{
		X: int(float64(w)*scale + 0.5),
		Y: int(float64(h)*scale + 0.5),
	}
	if out.X < 1 {
		out.X = 1
	}
	if out.Y < 1 {
		out.Y = 1
	}
	return out
}
