// Package ferplus loads the FER+ facial-expression dataset: the
// fer2013new.csv vote annotations together with the images they describe.
package ferplus

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gonum.org/v1/gonum/mat"

	"github.com/tonipenya/learn-emotion-detection/internal/log"
	"github.com/tonipenya/learn-emotion-detection/internal/transform"
)

const DefaultImageSize = 48

var ErrIndexOutOfRange = errors.New("index out of range")

// Sample is one preprocessed image and its soft label.
type Sample struct {
	Image  *transform.Tensor
	Target []float32
}

type Dataset struct {
	split     Split
	filenames []string
	images    []image.Image
	targets   *mat.Dense
	pipeline  *transform.Pipeline
}

type options struct {
	fs      afero.Fs
	size    int
	augment transform.Transform
	logger  *logrus.Logger
}

type Option func(*options)

// WithFs reads the CSV and images from fs instead of the OS file system.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

func WithImageSize(size int) Option {
	return func(o *options) { o.size = size }
}

// WithAugmentation runs t on every image before the fixed normalisation.
func WithAugmentation(t transform.Transform) Option {
	return func(o *options) { o.augment = t }
}

func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New reads the annotations for split and loads every referenced image from
// imgRoot/<split dir>. Images are decoded up front, so a missing file fails
// here rather than in Get.
func New(csvPath, imgRoot string, split Split, opts ...Option) (*Dataset, error) {
	o := options{
		fs:     afero.NewOsFs(),
		size:   DefaultImageSize,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.size <= 0 {
		return nil, errors.Errorf("invalid image size %d", o.size)
	}

	splitDir, err := split.Dir()
	if err != nil {
		return nil, err
	}

	all, err := ReadAnnotations(o.fs, csvPath)
	if err != nil {
		return nil, err
	}
	rows := FilterAnnotations(all, split)

	o.logger.WithFields(log.Fields{
		"split": split,
		"rows":  len(all),
		"kept":  len(rows),
	}).Debug("filtered annotations")

	dir := filepath.Join(imgRoot, splitDir)
	filenames := make([]string, len(rows))
	images := make([]image.Image, len(rows))
	for i, r := range rows {
		img, err := loadImage(o.fs, filepath.Join(dir, r.ImageName))
		if err != nil {
			return nil, err
		}
		filenames[i] = r.ImageName
		images[i] = transform.ToRGB(img)
	}

	o.logger.WithFields(log.Fields{
		"split":  split,
		"images": len(images),
		"dir":    dir,
	}).Info("loaded FER+ split")

	return &Dataset{
		split:     split,
		filenames: filenames,
		images:    images,
		targets:   SoftLabels(rows),
		pipeline:  transform.Normalise(o.size).WithAugmentation(o.augment),
	}, nil
}

func loadImage(fs afero.Fs, path string) (image.Image, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open image %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode image %s", path)
	}
	return img, nil
}

func (d *Dataset) Len() int { return len(d.images) }

func (d *Dataset) Split() Split { return d.split }

func (d *Dataset) Classes() []string { return ClassNames() }

// Get preprocesses image idx and returns it with its soft label.
func (d *Dataset) Get(idx int) (*Sample, error) {
	if idx < 0 || idx >= len(d.images) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "%d of %d", idx, len(d.images))
	}

	t, err := d.pipeline.Run(d.images[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "transform %s", d.filenames[idx])
	}

	row := d.targets.RawRowView(idx)
	target := make([]float32, len(row))
	for i, v := range row {
		target[i] = float32(v)
	}

	return &Sample{Image: t, Target: target}, nil
}

func (d *Dataset) Filenames() []string {
	return append([]string(nil), d.filenames...)
}

// Targets returns a copy of the [N, NumClasses] soft-label matrix, or nil for
// an empty dataset.
func (d *Dataset) Targets() *mat.Dense {
	if d.targets == nil {
		return nil
	}
	return mat.DenseCopyOf(d.targets)
}

// Labels returns the majority-vote class of every sample.
func (d *Dataset) Labels() []int {
	labels := make([]int, len(d.images))
	for i := range labels {
		labels[i] = Argmax(d.targets.RawRowView(i))
	}
	return labels
}
