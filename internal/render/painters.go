// SPDX-License-Identifier: MIT
package render

import (
	"vlabsound/internal/doppler"
	"vlabsound/internal/synth"
)

// PaintSpectrum draws byte-scaled magnitudes as bars along the bottom edge.
// Each bar is 2.5 bins wide with a one pixel gap; a bar's height is half of
// twice its value and it reddens with height.
func PaintSpectrum(c Canvas, spectrum []float64) {
	w, h := c.Size()
	c.Clear(White)
	if len(spectrum) == 0 {
		return
	}

	barWidth := w / float64(len(spectrum)) * 2.5
	x := 0.0
	for _, v := range spectrum {
		if x >= w {
			break
		}
		barHeight := v * 2
		c.FillRect(x, h-barHeight/2, barWidth, barHeight/2, RGB(int(barHeight)+100, 50, 50))
		x += barWidth + 1
	}
}

// PaintWaveform draws time-domain samples in [-1, 1] as one line across the
// surface, zero at mid height. scratch is reused for the path points.
func PaintWaveform(c Canvas, samples []float64, scratch []Point) []Point {
	w, h := c.Size()
	c.Clear(White)
	scratch = scratch[:0]
	if len(samples) < 2 {
		return scratch
	}

	step := w / float64(len(samples)-1)
	mid := h / 2
	for i, v := range samples {
		scratch = append(scratch, Point{X: float64(i) * step, Y: mid - v*mid})
	}
	c.StrokePath(scratch, Blue, 2)
	return scratch
}

// DopplerPainter draws the track, observer, moving source and the
// frequency-over-time plot. The top third holds the track; the rest holds
// the plot. It keeps a scratch buffer, so use one painter per loop.
type DopplerPainter struct {
	TrackWidth float64
	scratch    []Point
}

// Paint draws one snapshot.
func (p *DopplerPainter) Paint(c Canvas, snap doppler.Snapshot) {
	w, h := c.Size()
	c.Clear(White)

	trackY := h / 6
	scale := 1.0
	if p.TrackWidth > 0 {
		scale = w / p.TrackWidth
	}
	c.StrokePath([]Point{{0, trackY}, {w, trackY}}, Grid, 2)
	c.FillCircle(snap.Observer*scale, trackY, 8, Blue)

	plotTop, plotBottom := h/3+10, h-10
	c.StrokePath([]Point{{0, plotBottom}, {w, plotBottom}}, Grid, 1)

	if snap.State != doppler.Playing {
		return
	}
	c.FillCircle(snap.Position*scale, trackY, 6, SourceRed)

	// The plot spans the audible range of the model for this base frequency.
	base := snap.Scene.BaseFrequency
	lo, hi := base*0.75, base*1.5
	p.scratch = p.scratch[:0]
	for _, pt := range snap.Trace {
		f := min(max(pt.Frequency, lo), hi)
		y := plotBottom - (f-lo)/(hi-lo)*(plotBottom-plotTop)
		p.scratch = append(p.scratch, Point{X: pt.Position * scale, Y: y})
	}
	c.StrokePath(p.scratch, SourceRed, 2)
}

// PaintWave draws a wave-generator preview: axes through the centre and the
// wave scaled so amplitude 100 reaches the edges. span is the preview width
// the points were sampled across.
func PaintWave(c Canvas, points []synth.Point, span float64) {
	w, h := c.Size()
	c.Clear(White)

	mid := h / 2
	c.StrokePath([]Point{{0, mid}, {w, mid}}, Black, 1)
	c.StrokePath([]Point{{0, 0}, {0, h}}, Black, 1)

	path := make([]Point, len(points))
	for i, pt := range points {
		path[i] = Point{X: pt.X / span * w, Y: mid - pt.Y/100*mid}
	}
	c.StrokePath(path, Blue, 2)
}
