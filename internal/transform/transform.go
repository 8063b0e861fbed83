// Package transform holds the image preprocessing steps shared by the FER+
// dataset and the classifier: image-to-image transforms, tensor conversion
// and normalisation.
package transform

import (
	"image"

	"github.com/pkg/errors"
)

// Transform maps one image to another.
type Transform interface {
	Apply(img image.Image) (image.Image, error)
}

// Func adapts a plain function to Transform.
type Func func(img image.Image) (image.Image, error)

func (f Func) Apply(img image.Image) (image.Image, error) {
	return f(img)
}

type composed []Transform

// Compose chains transforms left to right. Nil entries are skipped.
func Compose(ts ...Transform) Transform {
	out := make(composed, 0, len(ts))
	for _, t := range ts {
		if t == nil {
			continue
		}
		if c, ok := t.(composed); ok {
			out = append(out, c...)
			continue
		}
		out = append(out, t)
	}
	return out
}

func (c composed) Apply(img image.Image) (image.Image, error) {
	var err error
	for i, t := range c {
		img, err = t.Apply(img)
		if err != nil {
			return nil, errors.Wrapf(err, "transform %d", i)
		}
	}
	return img, nil
}

// Pipeline turns an image into a normalised tensor.
type Pipeline struct {
	transforms []Transform
	mean       []float32
	std        []float32
}

func NewPipeline(ts ...Transform) *Pipeline {
	return &Pipeline{transforms: ts}
}

// WithNormalize sets per-channel mean and std applied after tensor conversion.
func (p *Pipeline) WithNormalize(mean, std []float32) *Pipeline {
	cp := p.clone()
	cp.mean = append([]float32(nil), mean...)
	cp.std = append([]float32(nil), std...)
	return cp
}

// WithAugmentation returns a copy of p with aug applied before the existing
// transforms.
func (p *Pipeline) WithAugmentation(aug Transform) *Pipeline {
	if aug == nil {
		return p
	}
	cp := p.clone()
	cp.transforms = append([]Transform{aug}, cp.transforms...)
	return cp
}

func (p *Pipeline) clone() *Pipeline {
	return &Pipeline{
		transforms: append([]Transform(nil), p.transforms...),
		mean:       p.mean,
		std:        p.std,
	}
}

func (p *Pipeline) Run(img image.Image) (*Tensor, error) {
	img, err := Compose(p.transforms...).Apply(img)
	if err != nil {
		return nil, err
	}

	t := ToTensor(img)
	if p.mean != nil {
		if err := Normalize(t, p.mean, p.std); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Normalise is the fixed FER+ preprocessing: single-channel grayscale,
// size x size, scaled to [0,1] then normalised with mean 0.5 and std 0.5.
func Normalise(size int) *Pipeline {
	return NewPipeline(Grayscale(), Resize(size, size)).
		WithNormalize([]float32{0.5}, []float32{0.5})
}
