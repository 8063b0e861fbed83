package ferplus

import (
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gonum.org/v1/gonum/mat"
)

// Annotation is one row of fer2013new.csv.
type Annotation struct {
	Usage     string  `csv:"Usage"`
	ImageName string  `csv:"Image name"`
	Neutral   float64 `csv:"neutral"`
	Happiness float64 `csv:"happiness"`
	Surprise  float64 `csv:"surprise"`
	Sadness   float64 `csv:"sadness"`
	Anger     float64 `csv:"anger"`
	Disgust   float64 `csv:"disgust"`
	Fear      float64 `csv:"fear"`
	Contempt  float64 `csv:"contempt"`
	Unknown   float64 `csv:"unknown"`
	NF        float64 `csv:"NF"`
}

// Votes returns the emotion vote counts in Classes order. Unknown and NF are
// not part of the label space.
func (a *Annotation) Votes() []float64 {
	return []float64{
		a.Neutral,
		a.Happiness,
		a.Surprise,
		a.Sadness,
		a.Anger,
		a.Disgust,
		a.Fear,
		a.Contempt,
	}
}

func ReadAnnotations(fs afero.Fs, csvPath string) ([]*Annotation, error) {
	f, err := fs.Open(csvPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open annotations %s", csvPath)
	}
	defer f.Close()

	var rows []*Annotation
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, errors.Wrapf(err, "parse annotations %s", csvPath)
	}
	return rows, nil
}

// FilterAnnotations keeps rows of the given split that name an image, in file
// order.
func FilterAnnotations(rows []*Annotation, split Split) []*Annotation {
	var out []*Annotation
	for _, r := range rows {
		if r.ImageName == "" {
			continue
		}
		if Split(r.Usage) != split {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SoftLabels converts vote counts into per-row probability distributions.
// Rows without votes stay all zero.
func SoftLabels(rows []*Annotation) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	votes := mat.NewDense(len(rows), NumClasses, nil)
	sums := make([]float64, len(rows))
	for i, r := range rows {
		votes.SetRow(i, r.Votes())
		sums[i] = mat.Sum(votes.RowView(i))
		if sums[i] == 0 {
			sums[i] = 1
		}
	}

	targets := mat.NewDense(len(rows), NumClasses, nil)
	targets.Apply(func(i, _ int, v float64) float64 {
		return v / sums[i]
	}, votes)
	return targets
}

// Argmax returns the index of the largest value, lowest index on ties.
func Argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
