// Package metrics computes classification scores for hard label predictions.
package metrics

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const Macro = "macro"

const (
	Accuracy  = "accuracy"
	Precision = "precision"
	Recall    = "recall"
	F1        = "f1"
)

var (
	ErrEmpty           = errors.New("no labels")
	ErrLengthMismatch  = errors.New("true and predicted labels differ in length")
	ErrLabelOutOfRange = errors.New("label out of range")
)

// Scores maps a metric name to its value.
type Scores map[string]float64

// Report holds the macro scores under Macro and per-class scores under each
// class name.
type Report map[string]Scores

// Calculate scores yPred against yTrue. Labels are indices into classNames.
// Any ratio with a zero denominator is reported as zero. Macro averages are
// taken over the labels that occur in either yTrue or yPred.
func Calculate(yTrue, yPred []int, classNames []string) (Report, error) {
	cm, err := ConfusionMatrix(yTrue, yPred, len(classNames))
	if err != nil {
		return nil, err
	}

	n := len(classNames)
	var correct float64
	for i := 0; i < n; i++ {
		correct += cm.At(i, i)
	}

	report := Report{}
	var precisions, recalls, f1s []float64
	for i, name := range classNames {
		tp := cm.At(i, i)
		predicted := mat.Sum(cm.ColView(i))
		actual := mat.Sum(cm.RowView(i))

		p := ratio(tp, predicted)
		r := ratio(tp, actual)
		f := ratio(2*p*r, p+r)
		report[name] = Scores{Precision: p, Recall: r, F1: f}

		if predicted > 0 || actual > 0 {
			precisions = append(precisions, p)
			recalls = append(recalls, r)
			f1s = append(f1s, f)
		}
	}

	macro := Scores{Accuracy: correct / float64(len(yTrue))}
	for name, vals := range map[string][]float64{Precision: precisions, Recall: recalls, F1: f1s} {
		m, err := stats.Mean(vals)
		if err != nil {
			return nil, errors.Wrapf(err, "macro %s", name)
		}
		macro[name] = m
	}
	report[Macro] = macro

	return report, nil
}

// ConfusionMatrix counts label pairs in an n x n matrix. Rows are true labels,
// columns are predictions.
func ConfusionMatrix(yTrue, yPred []int, n int) (*mat.Dense, error) {
	if len(yTrue) != len(yPred) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d != %d", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 || n == 0 {
		return nil, ErrEmpty
	}

	cm := mat.NewDense(n, n, nil)
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= n || p < 0 || p >= n {
			return nil, errors.Wrapf(ErrLabelOutOfRange, "position %d: true %d, predicted %d, %d classes", i, t, p, n)
		}
		cm.Set(t, p, cm.At(t, p)+1)
	}
	return cm, nil
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
