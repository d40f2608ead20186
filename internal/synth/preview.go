// SPDX-License-Identifier: MIT
package synth

// Point is a sampled (x, y) pair in drawing units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Preview samples steps points of a shape across width drawing units.
// frequency is the number of cycles across the whole width and amplitude
// scales the [-1, 1] shape value, so y lies in [-amplitude, amplitude].
func Preview(shape Shape, frequency, amplitude float64, steps int, width float64) []Point {
	if steps < 1 {
		return nil
	}

	points := make([]Point, steps)
	for i := range points {
		t := float64(i) / float64(steps)
		points[i] = Point{
			X: t * width,
			Y: amplitude * shape.Value(frequency*t),
		}
	}
	return points
}
