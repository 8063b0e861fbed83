package transform

import (
	"image"

	"github.com/pkg/errors"
)

// Tensor is a dense float32 array in CHW order.
type Tensor struct {
	Shape []int
	Data  []float32
}

func (t *Tensor) Channels() int { return t.Shape[0] }

func (t *Tensor) At(c, y, x int) float32 {
	return t.Data[(c*t.Shape[1]+y)*t.Shape[2]+x]
}

// ToTensor packs an image into CHW with values in [0,1]. Gray images give one
// channel, everything else gives RGB.
func ToTensor(img image.Image) *Tensor {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h

	if g, ok := img.(*image.Gray); ok {
		data := make([]float32, plane)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				data[y*w+x] = float32(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y) / 255.0
			}
		}
		return &Tensor{Shape: []int{1, h, w}, Data: data}
	}

	data := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()

			i := y*w + x
			data[i] = float32(r) / 65535.0
			data[plane+i] = float32(g) / 65535.0
			data[2*plane+i] = float32(bl) / 65535.0
		}
	}
	return &Tensor{Shape: []int{3, h, w}, Data: data}
}

// Normalize applies (x-mean)/std per channel in place. A single mean/std pair
// is broadcast to every channel.
func Normalize(t *Tensor, mean, std []float32) error {
	c := t.Channels()
	if len(mean) != len(std) || (len(mean) != 1 && len(mean) != c) {
		return errors.Errorf("normalize: %d means and %d stds for %d channels", len(mean), len(std), c)
	}
	plane := len(t.Data) / c
	for ch := 0; ch < c; ch++ {
		m, s := mean[0], std[0]
		if len(mean) > 1 {
			m, s = mean[ch], std[ch]
		}
		if s == 0 {
			return errors.Errorf("normalize: zero std for channel %d", ch)
		}
		vals := t.Data[ch*plane : (ch+1)*plane]
		for i := range vals {
			vals[i] = (vals[i] - m) / s
		}
	}
	return nil
}
