package filter

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif"
)

// PNG artifacts above this size are re-encoded as JPEG for transport.
const maxPNGBytes = 500_000

const jpegQuality = 75

// BGRImage is a 24-bit pixel buffer in blue, green, red channel order,
// the layout the convolution kernels operate on.
type BGRImage struct {
	Width  int
	Height int
	Pix    []byte // len = Width*Height*3
}

// NewBGRImage allocates a zeroed buffer.
func NewBGRImage(width, height int) *BGRImage {
	return &BGRImage{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// At returns the channel value at (x, y); c is 0=blue, 1=green, 2=red.
func (b *BGRImage) At(x, y, c int) byte {
	return b.Pix[(y*b.Width+x)*3+c]
}

// Set writes the channel value at (x, y).
func (b *BGRImage) Set(x, y, c int, v byte) {
	b.Pix[(y*b.Width+x)*3+c] = v
}

// Clone returns a deep copy with the same dimensions.
func (b *BGRImage) Clone() *BGRImage {
	out := NewBGRImage(b.Width, b.Height)
	copy(out.Pix, b.Pix)
	return out
}

// DecodeImage parses encoded image bytes into a BGR pixel buffer.
func DecodeImage(data []byte) (*BGRImage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	out := NewBGRImage(bounds.Dx(), bounds.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := (y*out.Width + x) * 3
			out.Pix[i] = byte(b >> 8)
			out.Pix[i+1] = byte(g >> 8)
			out.Pix[i+2] = byte(r >> 8)
		}
	}

	return out, nil
}

// toRGBA converts the BGR buffer to the stdlib image type for encoding.
func (b *BGRImage) toRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			src := (y*b.Width + x) * 3
			dst := img.PixOffset(x, y)
			img.Pix[dst] = b.Pix[src+2]
			img.Pix[dst+1] = b.Pix[src+1]
			img.Pix[dst+2] = b.Pix[src]
			img.Pix[dst+3] = 0xff
		}
	}
	return img
}

// EncodeForTransport encodes the buffer as PNG, falling back to JPEG at
// quality 75 when the PNG artifact would exceed the transport budget.
// It returns the encoded bytes and the format actually used.
func EncodeForTransport(b *BGRImage) ([]byte, string, error) {
	return encodeWithLimit(b, maxPNGBytes)
}

func encodeWithLimit(b *BGRImage, limit int) ([]byte, string, error) {
	img := b.toRGBA()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to encode png: %w", err)
	}
	if buf.Len() <= limit {
		return buf.Bytes(), "png", nil
	}

	buf.Reset()
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), "jpeg", nil
}
