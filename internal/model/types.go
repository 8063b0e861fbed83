package model

import (
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const (
	OutputLogits        = "logits"
	OutputProbabilities = "probabilities"
)

type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	// OutputType is OutputLogits (default) or OutputProbabilities.
	OutputType string `json:"output_type"`
	// PixelScale multiplies the [0,1] pixel values of 3-channel inputs.
	// Models exported from the browser demo expect 255.
	PixelScale float32 `json:"pixel_scale"`
}

func LoadMetadata(path string) (Metadata, error) {
	var md Metadata

	raw, err := os.ReadFile(path)
	if err != nil {
		return md, errors.Wrap(err, "failed to read metadata")
	}
	if err := jsoniter.Unmarshal(raw, &md); err != nil {
		return md, errors.Wrap(err, "failed to parse metadata")
	}
	if err := md.normalize(); err != nil {
		return md, err
	}
	return md, nil
}

func (m *Metadata) normalize() error {
	if len(m.InputShape) != 4 {
		return errors.Errorf("input shape must be NCHW, got %v", m.InputShape)
	}
	if len(m.Classes) == 0 {
		return errors.New("metadata lists no classes")
	}
	if m.InputName == "" {
		m.InputName = "input"
	}
	if m.OutputName == "" {
		m.OutputName = "output"
	}
	if m.OutputType == "" {
		m.OutputType = OutputLogits
	}
	if m.OutputType != OutputLogits && m.OutputType != OutputProbabilities {
		return errors.Errorf("unknown output type %q", m.OutputType)
	}
	if m.ImageSize == 0 {
		m.ImageSize = int(m.InputShape[2])
	}
	if m.PixelScale == 0 {
		m.PixelScale = 1
	}
	return nil
}

// Channels is the C dimension of the NCHW input.
func (m *Metadata) Channels() int {
	return int(m.InputShape[1])
}

// InputSize is the number of float32 values one inference consumes.
func (m *Metadata) InputSize() int {
	size := 1
	for _, dim := range m.InputShape {
		size *= int(dim)
	}
	return size
}

type PredictionRequest struct {
	Image []float32 `json:"image"`
}

type PredictionResponse struct {
	Class       string             `json:"class"`
	ClassIndex  int                `json:"class_index"`
	Confidence  float32            `json:"confidence"`
	Predictions map[string]float32 `json:"predictions"`
}
