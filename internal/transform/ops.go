package transform

import (
	"image"
	"image/color"
	"math/rand"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Grayscale converts to 8-bit luma using the ITU-R 601 weights.
func Grayscale() Transform {
	return Func(func(img image.Image) (image.Image, error) {
		if g, ok := img.(*image.Gray); ok {
			return g, nil
		}
		b := img.Bounds()
		out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.SetGray(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
			}
		}
		return out, nil
	})
}

// RGB drops alpha and converts any image to opaque 8-bit RGB.
func RGB() Transform {
	return Func(func(img image.Image) (image.Image, error) {
		return ToRGB(img), nil
	})
}

func ToRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 0xff
			out.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return out
}

// Resize scales to exactly width x height with bilinear interpolation.
func Resize(width, height int) Transform {
	return Func(func(img image.Image) (image.Image, error) {
		if width <= 0 || height <= 0 {
			return nil, errors.Errorf("invalid resize target %dx%d", width, height)
		}
		b := img.Bounds()
		if b.Dx() == width && b.Dy() == height && b.Min == (image.Point{}) {
			return img, nil
		}
		return resize.Resize(uint(width), uint(height), img, resize.Bilinear), nil
	})
}

func HorizontalFlip() Transform {
	return Func(func(img image.Image) (image.Image, error) {
		return flip(img), nil
	})
}

// RandomHorizontalFlip flips with probability p. rng must not be shared
// across goroutines.
func RandomHorizontalFlip(p float64, rng *rand.Rand) Transform {
	return Func(func(img image.Image) (image.Image, error) {
		if rng.Float64() < p {
			return flip(img), nil
		}
		return img, nil
	})
}

func flip(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if g, ok := img.(*image.Gray); ok {
		out := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.SetGray(w-1-x, y, g.GrayAt(b.Min.X+x, b.Min.Y+y))
			}
		}
		return out
	}
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(w-1-x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
