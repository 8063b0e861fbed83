package ferplus

import (
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Prediction is one row of a predictions CSV: the image file name and the
// predicted class index.
type Prediction struct {
	Filename   string `csv:"filename"`
	Prediction int    `csv:"prediction"`
}

func ReadPredictions(fs afero.Fs, path string) ([]*Prediction, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open predictions %s", path)
	}
	defer f.Close()

	var rows []*Prediction
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, errors.Wrapf(err, "parse predictions %s", path)
	}
	return rows, nil
}

func WritePredictions(fs afero.Fs, path string, rows []*Prediction) error {
	f, err := fs.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create predictions %s", path)
	}
	defer f.Close()

	if err := gocsv.Marshal(rows, f); err != nil {
		return errors.Wrapf(err, "write predictions %s", path)
	}
	return nil
}

// Pairs holds aligned ground-truth and predicted labels.
type Pairs struct {
	Filenames []string
	True      []int
	Pred      []int
	// Missing counts annotated images without a prediction.
	Missing int
	// Unvoted counts annotated images with no emotion votes, which have no
	// ground truth.
	Unvoted int
}

// Align matches predictions to annotations by file name. Ground truth is the
// majority vote of each annotation. Output follows annotation order.
func Align(annotations []*Annotation, preds []*Prediction) *Pairs {
	byName := make(map[string]int, len(preds))
	for _, p := range preds {
		byName[p.Filename] = p.Prediction
	}

	out := &Pairs{}
	for _, a := range annotations {
		pred, ok := byName[a.ImageName]
		if !ok {
			out.Missing++
			continue
		}

		votes := a.Votes()
		total := 0.0
		for _, v := range votes {
			total += v
		}
		if total == 0 {
			out.Unvoted++
			continue
		}

		out.Filenames = append(out.Filenames, a.ImageName)
		out.True = append(out.True, Argmax(votes))
		out.Pred = append(out.Pred, pred)
	}
	return out
}
