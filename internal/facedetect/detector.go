// Package facedetect finds faces with an UltraFace ONNX model.
package facedetect

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/tonipenya/learn-emotion-detection/internal/transform"
)

const (
	InputWidth  = 320
	InputHeight = 240

	DefaultScoreThreshold = 0.7
	DefaultIoUThreshold   = 0.3
	DefaultMaxFaces       = 3
)

type Detection struct {
	Box   Box     `json:"box"`
	Score float32 `json:"score"`
}

type Config struct {
	ScoreThreshold float32
	IoUThreshold   float32
	MaxFaces       int
	// NumPriors is the number of anchor boxes the model emits.
	NumPriors int64
}

func DefaultConfig() Config {
	return Config{
		ScoreThreshold: DefaultScoreThreshold,
		IoUThreshold:   DefaultIoUThreshold,
		MaxFaces:       DefaultMaxFaces,
		NumPriors:      4420,
	}
}

type Detector struct {
	mu       sync.Mutex
	cfg      Config
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	scores   *ort.Tensor[float32]
	boxes    *ort.Tensor[float32]
	pipeline *transform.Pipeline
	log      *logrus.Logger
}

// NewDetector expects the ONNX runtime to be initialised.
func NewDetector(modelPath string, cfg Config, logger *logrus.Logger) (*Detector, error) {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, InputHeight, InputWidth))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}
	scores, err := ort.NewEmptyTensor[float32](ort.NewShape(1, cfg.NumPriors, 2))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "failed to create scores tensor")
	}
	boxes, err := ort.NewEmptyTensor[float32](ort.NewShape(1, cfg.NumPriors, 4))
	if err != nil {
		input.Destroy()
		scores.Destroy()
		return nil, errors.Wrap(err, "failed to create boxes tensor")
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"scores", "boxes"},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{scores, boxes},
		nil)
	if err != nil {
		input.Destroy()
		scores.Destroy()
		boxes.Destroy()
		return nil, errors.Wrap(err, "failed to create ONNX session")
	}

	logger.WithField("model", modelPath).Info("face detector loaded")

	// UltraFace expects (v - 127) / 128 on 0-255 pixels.
	pipeline := transform.NewPipeline(transform.RGB(), transform.Resize(InputWidth, InputHeight)).
		WithNormalize([]float32{127.0 / 255}, []float32{128.0 / 255})

	return &Detector{
		cfg:      cfg,
		session:  session,
		input:    input,
		scores:   scores,
		boxes:    boxes,
		pipeline: pipeline,
		log:      logger,
	}, nil
}

// Detect returns up to MaxFaces boxes in img's pixel coordinates.
func (d *Detector) Detect(img image.Image) ([]Detection, error) {
	t, err := d.pipeline.Run(img)
	if err != nil {
		return nil, errors.Wrap(err, "failed to preprocess image")
	}

	d.mu.Lock()
	copy(d.input.GetData(), t.Data)
	if err := d.session.Run(); err != nil {
		d.mu.Unlock()
		return nil, errors.Wrap(err, "face detection failed")
	}
	scores := append([]float32(nil), d.scores.GetData()...)
	boxes := append([]float32(nil), d.boxes.GetData()...)
	d.mu.Unlock()

	b := img.Bounds()
	found, err := Decode(boxes, scores, d.cfg, float32(b.Dx()), float32(b.Dy()))
	if err != nil {
		return nil, err
	}

	d.log.WithField("faces", len(found)).Debug("face detection done")
	return found, nil
}

// Decode filters raw UltraFace outputs. scores interleave [no_face, face]
// per prior and boxes are normalised corners. Kept boxes are scaled to
// width x height.
func Decode(boxes, scores []float32, cfg Config, width, height float32) ([]Detection, error) {
	all, err := Boxes(boxes)
	if err != nil {
		return nil, err
	}
	if len(scores) != 2*len(all) {
		return nil, errors.Errorf("%d scores for %d boxes", len(scores), len(all))
	}

	var kept []Box
	var keptScores []float32
	for i, box := range all {
		face := scores[2*i+1]
		if face > cfg.ScoreThreshold {
			kept = append(kept, box)
			keptScores = append(keptScores, face)
		}
	}

	dets := NMS(kept, keptScores, cfg.IoUThreshold, cfg.MaxFaces)
	for i := range dets {
		dets[i].Box = dets[i].Box.Scale(width, height)
	}
	return dets, nil
}

func (d *Detector) Close() {
	if d.input != nil {
		d.input.Destroy()
	}
	if d.scores != nil {
		d.scores.Destroy()
	}
	if d.boxes != nil {
		d.boxes.Destroy()
	}
	if d.session != nil {
		d.session.Destroy()
	}
}
