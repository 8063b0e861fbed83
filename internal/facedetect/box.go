package facedetect

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Box is an axis-aligned rectangle given by two corners.
type Box struct {
	X0 float32 `json:"x0"`
	Y0 float32 `json:"y0"`
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
}

func (b Box) Width() float32  { return float32(math.Abs(float64(b.X1 - b.X0))) }
func (b Box) Height() float32 { return float32(math.Abs(float64(b.Y1 - b.Y0))) }
func (b Box) Area() float32   { return b.Width() * b.Height() }

func (b Box) Scale(sx, sy float32) Box {
	return Box{X0: b.X0 * sx, Y0: b.Y0 * sy, X1: b.X1 * sx, Y1: b.Y1 * sy}
}

// Boxes groups a flat [x0, y0, x1, y1, ...] slice into boxes.
func Boxes(flat []float32) ([]Box, error) {
	if len(flat)%4 != 0 {
		return nil, errors.Errorf("%d coordinates is not a multiple of 4", len(flat))
	}
	out := make([]Box, 0, len(flat)/4)
	for i := 0; i < len(flat); i += 4 {
		out = append(out, Box{X0: flat[i], Y0: flat[i+1], X1: flat[i+2], Y1: flat[i+3]})
	}
	return out, nil
}

// IoU is the intersection over union of a and b, 0 when they do not overlap.
func IoU(a, b Box) float32 {
	x0 := max32(a.X0, b.X0)
	y0 := max32(a.Y0, b.Y0)
	x1 := min32(a.X1, b.X1)
	y1 := min32(a.Y1, b.Y1)

	intersection := max32(0, x1-x0) * max32(0, y1-y0)
	if intersection == 0 {
		return 0
	}
	return intersection / (a.Area() + b.Area() - intersection)
}

// NMS walks boxes by descending score and keeps each one whose IoU with every
// kept box is at most threshold, stopping at maxBoxes.
func NMS(boxes []Box, scores []float32, threshold float32, maxBoxes int) []Detection {
	order := make([]int, len(boxes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	var keep []Detection
	for _, idx := range order {
		if len(keep) >= maxBoxes {
			break
		}
		candidate := boxes[idx]

		suppressed := false
		for _, k := range keep {
			if IoU(candidate, k.Box) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			keep = append(keep, Detection{Box: candidate, Score: scores[idx]})
		}
	}
	return keep
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
