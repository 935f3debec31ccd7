// Package imaging decodes uploaded images into model input tensors.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	DefaultSize = 224
	// DefaultMaxPixels caps the declared width*height accepted for decoding.
	DefaultMaxPixels = 40_000_000
	channels         = 3
)

// Normalizer decodes, resizes and lays out images for a fixed model input.
// The zero value is usable and produces [1,224,224,3] tensors of raw 0-255
// intensities.
type Normalizer struct {
	Size      int
	Layout    Layout
	Scale     float32
	MaxPixels int64
}

func NewNormalizer(size int, layout Layout) *Normalizer {
	return &Normalizer{Size: size, Layout: layout, Scale: 1}
}

// Normalize decodes raw image bytes and returns a batch-of-one tensor.
func (n *Normalizer) Normalize(raw []byte) (Tensor, error) {
	// The upload limit bounds bytes, not pixels; check the header before
	// the decoder allocates the full pixel buffer.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Tensor{}, &DecodeError{Err: err}
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > n.maxPixels() {
		return Tensor{}, &DecodeError{Err: fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height)}
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Tensor{}, &DecodeError{Err: err}
	}
	return n.normalizeImage(img, format)
}

func (n *Normalizer) normalizeImage(img image.Image, format string) (Tensor, error) {
	if img.Bounds().Empty() {
		return Tensor{}, &DecodeError{Err: errEmptyImage}
	}
	if !hasColorChannels(img.ColorModel()) {
		return Tensor{}, &UnsupportedFormatError{Format: format, ColorModel: fmt.Sprintf("%T", img)}
	}

	size := n.size()
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	scale := n.scale()

	data := make([]float32, channels*plane)
	nchw := n.Layout == NCHW

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			rgb := [channels]float32{float32(c.R), float32(c.G), float32(c.B)}

			pixelIndex := y*width + x
			for ch, v := range rgb {
				if nchw {
					data[ch*plane+pixelIndex] = v * scale
				} else {
					data[pixelIndex*channels+ch] = v * scale
				}
			}
		}
	}

	shape := []int64{1, int64(height), int64(width), channels}
	if nchw {
		shape = []int64{1, channels, int64(height), int64(width)}
	}
	return Tensor{Shape: shape, Data: data}, nil
}

func (n *Normalizer) size() int {
	if n.Size <= 0 {
		return DefaultSize
	}
	return n.Size
}

func (n *Normalizer) maxPixels() int64 {
	if n.MaxPixels <= 0 {
		return DefaultMaxPixels
	}
	return n.MaxPixels
}

func (n *Normalizer) scale() float32 {
	if n.Scale == 0 {
		return 1
	}
	return n.Scale
}

// Alpha-only images carry no color information to replicate into RGB. None
// of the decoders registered here produce them; this guards decoders that
// importers of the package register themselves.
func hasColorChannels(m color.Model) bool {
	switch m {
	case color.AlphaModel, color.Alpha16Model:
		return false
	}
	return true
}
