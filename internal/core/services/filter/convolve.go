package filter

// mirrorIndex reflects an out-of-range coordinate back into [0, bound):
// negative values reflect to -v, values at or past the bound reflect to
// 2*bound - v - 1.
func mirrorIndex(v, bound int) int {
	if v < 0 {
		return -v
	}
	if v >= bound {
		return 2*bound - v - 1
	}
	return v
}

// clampIndex pins an out-of-range coordinate to the nearest edge.
func clampIndex(v, bound int) int {
	if v < 0 {
		return 0
	}
	if v >= bound {
		return bound - 1
	}
	return v
}

// clampByte truncates a float channel sum into [0, 255].
func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// Convolve runs one convolution pass over the image with mirror
// boundary handling and returns a new buffer. Each output channel is
// the kernel-weighted sum of the mirrored neighborhood, truncated and
// clamped to [0, 255].
func Convolve(src *BGRImage, kernel [][]float64) *BGRImage {
	return convolve(src, kernel, mirrorIndex)
}

// ConvolveClamp is Convolve with edge-clamp boundary handling, used by
// the sharpen stage.
func ConvolveClamp(src *BGRImage, kernel [][]float64) *BGRImage {
	return convolve(src, kernel, clampIndex)
}

func convolve(src *BGRImage, kernel [][]float64, boundary func(v, bound int) int) *BGRImage {
	size := len(kernel)
	center := size / 2
	out := NewBGRImage(src.Width, src.Height)

	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			var sums [3]float64
			for ky := 0; ky < size; ky++ {
				sy := boundary(y+ky-center, src.Height)
				for kx := 0; kx < size; kx++ {
					sx := boundary(x+kx-center, src.Width)
					weight := kernel[ky][kx]
					i := (sy*src.Width + sx) * 3
					sums[0] += float64(src.Pix[i]) * weight
					sums[1] += float64(src.Pix[i+1]) * weight
					sums[2] += float64(src.Pix[i+2]) * weight
				}
			}
			o := (y*src.Width + x) * 3
			out.Pix[o] = clampByte(sums[0])
			out.Pix[o+1] = clampByte(sums[1])
			out.Pix[o+2] = clampByte(sums[2])
		}
	}

	return out
}

// AdjustContrast scales every channel away from the midpoint:
// out = clamp(((in/255 - 0.5) * factor + 0.5) * 255).
func AdjustContrast(src *BGRImage, factor float64) *BGRImage {
	out := NewBGRImage(src.Width, src.Height)
	for i, v := range src.Pix {
		out.Pix[i] = clampByte(((float64(v)/255-0.5)*factor + 0.5) * 255)
	}
	return out
}

// ScaleBrightness multiplies every channel: out = clamp(in * factor).
func ScaleBrightness(src *BGRImage, factor float64) *BGRImage {
	out := NewBGRImage(src.Width, src.Height)
	for i, v := range src.Pix {
		out.Pix[i] = clampByte(float64(v) * factor)
	}
	return out
}
