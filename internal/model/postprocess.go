package model

import "math"

// Softmax returns exp(x-max) normalised to sum to one.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}

	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - max))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// Argmax returns the index of the largest value, lowest index on ties.
func Argmax(v []float32) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// NewPredictionResponse maps a probability vector onto class names.
func NewPredictionResponse(probs []float32, classes []string) *PredictionResponse {
	n := len(probs)
	if len(classes) < n {
		n = len(classes)
	}
	probs = probs[:n]

	predictions := make(map[string]float32, n)
	for i, p := range probs {
		predictions[classes[i]] = p
	}

	idx := Argmax(probs)
	return &PredictionResponse{
		Class:       classes[idx],
		ClassIndex:  idx,
		Confidence:  probs[idx],
		Predictions: predictions,
	}
}
