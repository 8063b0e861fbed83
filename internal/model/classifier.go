package model

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/tonipenya/learn-emotion-detection/internal/transform"
)

// Predictor is what the HTTP handlers and the CLI need from a classifier.
type Predictor interface {
	Info() Metadata
	Predict(input []float32) (*PredictionResponse, error)
	PredictImage(img image.Image) (*PredictionResponse, error)
}

// Classifier runs an emotion model exported to ONNX. The session reuses
// fixed input and output tensors, so calls are serialised.
type Classifier struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	pipeline     *transform.Pipeline
	log          *logrus.Logger
}

// NewClassifier expects InitRuntime to have been called.
func NewClassifier(modelPath, metadataPath string, logger *logrus.Logger) (*Classifier, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	inputShape := ort.NewShape(metadata.InputShape...)
	outputShape := ort.NewShape(metadata.OutputShape...)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "failed to create output tensor")
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "failed to create ONNX session")
	}

	logger.WithFields(logrus.Fields{
		"model":   modelPath,
		"input":   metadata.InputShape,
		"classes": metadata.Classes,
	}).Info("classifier loaded")

	return &Classifier{
		session:      session,
		metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		pipeline:     NewPreprocessor(metadata),
		log:          logger,
	}, nil
}

// NewPreprocessor picks the image pipeline matching the model input. Single
// channel models get the FER+ training normalisation, RGB models get
// resized [0,1] pixels multiplied by PixelScale.
func NewPreprocessor(md Metadata) *transform.Pipeline {
	if md.Channels() == 1 {
		return transform.Normalise(md.ImageSize)
	}
	scale := md.PixelScale
	if scale == 0 {
		scale = 1
	}
	return transform.NewPipeline(transform.RGB(), transform.Resize(md.ImageSize, md.ImageSize)).
		WithNormalize([]float32{0}, []float32{1 / scale})
}

func (c *Classifier) Info() Metadata {
	return c.metadata
}

func (c *Classifier) Predict(inputData []float32) (*PredictionResponse, error) {
	if len(inputData) != c.metadata.InputSize() {
		return nil, errors.Errorf("expected %d values, got %d", c.metadata.InputSize(), len(inputData))
	}

	c.mu.Lock()
	copy(c.inputTensor.GetData(), inputData)
	if err := c.session.Run(); err != nil {
		c.mu.Unlock()
		return nil, errors.Wrap(err, "inference failed")
	}
	outputData := append([]float32(nil), c.outputTensor.GetData()...)
	c.mu.Unlock()

	probs := outputData
	if c.metadata.OutputType == OutputLogits {
		probs = Softmax(outputData)
	}
	return NewPredictionResponse(probs, c.metadata.Classes), nil
}

func (c *Classifier) PredictImage(img image.Image) (*PredictionResponse, error) {
	t, err := c.pipeline.Run(img)
	if err != nil {
		return nil, errors.Wrap(err, "failed to preprocess image")
	}

	c.log.WithFields(logrus.Fields{
		"shape": t.Shape,
	}).Debug("preprocessed image")

	return c.Predict(t.Data)
}

func (c *Classifier) Close() {
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	if c.session != nil {
		c.session.Destroy()
	}
}
