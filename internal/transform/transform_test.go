package transform

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestGrayscale(t *testing.T) {
	img := solid(2, 2, color.NRGBA{R: 255, A: 255})

	out, err := Grayscale().Apply(img)
	require.NoError(t, err)

	g, ok := out.(*image.Gray)
	require.True(t, ok)
	// 0.299 * 255
	assert.EqualValues(t, 76, g.GrayAt(1, 1).Y)
}

func TestToRGBDropsAlpha(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 200})

	out := ToRGB(img)
	assert.Equal(t, color.NRGBA{R: 200, G: 200, B: 200, A: 255}, out.NRGBAAt(0, 0))
}

func TestResize(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 96, 64))

	out, err := Resize(48, 48).Apply(img)
	require.NoError(t, err)
	assert.Equal(t, 48, out.Bounds().Dx())
	assert.Equal(t, 48, out.Bounds().Dy())

	_, err = Resize(0, 48).Apply(img)
	assert.Error(t, err)
}

func TestHorizontalFlip(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.SetGray(0, 0, color.Gray{Y: 10})
	img.SetGray(2, 0, color.Gray{Y: 30})

	out, err := HorizontalFlip().Apply(img)
	require.NoError(t, err)

	g := out.(*image.Gray)
	assert.EqualValues(t, 30, g.GrayAt(0, 0).Y)
	assert.EqualValues(t, 10, g.GrayAt(2, 0).Y)
}

func TestRandomHorizontalFlip(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{Y: 1})

	never := RandomHorizontalFlip(0, rand.New(rand.NewSource(1)))
	out, err := never.Apply(img)
	require.NoError(t, err)
	assert.Same(t, img, out)

	always := RandomHorizontalFlip(1, rand.New(rand.NewSource(1)))
	out, err = always.Apply(img)
	require.NoError(t, err)
	assert.EqualValues(t, 1, out.(*image.Gray).GrayAt(1, 0).Y)
}

func TestToTensor(t *testing.T) {
	t.Run("gray", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 2, 3))
		img.SetGray(1, 2, color.Gray{Y: 255})

		ten := ToTensor(img)
		assert.Equal(t, []int{1, 3, 2}, ten.Shape)
		assert.Len(t, ten.Data, 6)
		assert.InDelta(t, 1.0, ten.At(0, 2, 1), 1e-6)
		assert.InDelta(t, 0.0, ten.At(0, 0, 0), 1e-6)
	})

	t.Run("rgb", func(t *testing.T) {
		img := solid(2, 2, color.NRGBA{R: 255, B: 255, A: 255})

		ten := ToTensor(img)
		assert.Equal(t, []int{3, 2, 2}, ten.Shape)
		assert.InDelta(t, 1.0, ten.At(0, 1, 1), 1e-6)
		assert.InDelta(t, 0.0, ten.At(1, 1, 1), 1e-6)
		assert.InDelta(t, 1.0, ten.At(2, 0, 0), 1e-6)
	})
}

func TestNormalize(t *testing.T) {
	ten := &Tensor{Shape: []int{1, 1, 3}, Data: []float32{0, 0.5, 1}}
	require.NoError(t, Normalize(ten, []float32{0.5}, []float32{0.5}))
	assert.InDeltaSlice(t, []float32{-1, 0, 1}, ten.Data, 1e-6)

	assert.Error(t, Normalize(ten, []float32{0.5, 0.5}, []float32{0.5}))
	assert.Error(t, Normalize(ten, []float32{0.5}, []float32{0}))
}

func TestNormalise(t *testing.T) {
	img := solid(96, 96, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	ten, err := Normalise(48).Run(img)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 48, 48}, ten.Shape)
	for _, v := range ten.Data {
		assert.InDelta(t, 1.0, v, 1e-5)
	}
}

func TestPipelineWithAugmentation(t *testing.T) {
	var calls []string
	step := func(name string) Transform {
		return Func(func(img image.Image) (image.Image, error) {
			calls = append(calls, name)
			return img, nil
		})
	}

	base := NewPipeline(step("base"))
	aug := base.WithAugmentation(step("aug"))

	_, err := aug.Run(image.NewGray(image.Rect(0, 0, 1, 1)))
	require.NoError(t, err)
	assert.Equal(t, []string{"aug", "base"}, calls)

	calls = nil
	_, err = base.Run(image.NewGray(image.Rect(0, 0, 1, 1)))
	require.NoError(t, err)
	assert.Equal(t, []string{"base"}, calls)

	assert.Same(t, base, base.WithAugmentation(nil))
}

func TestComposeError(t *testing.T) {
	boom := errors.New("boom")
	c := Compose(nil, Grayscale(), Func(func(image.Image) (image.Image, error) { return nil, boom }))

	_, err := c.Apply(image.NewGray(image.Rect(0, 0, 1, 1)))
	require.Error(t, err)
	assert.Equal(t, boom, errors.Cause(err))
}
