// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands splits the audible range the way the spectrum plot is read.
var DefaultBands = []FrequencyBand{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: math.Inf(1)},
}

// Levels summarises one analysis snapshot. It is what a finished Sound
// Analysis run stores alongside the recording metadata.
type Levels struct {
	RMS           float64            `json:"rms"`            // RMS of the time-domain window, 0..1.
	Peak          float64            `json:"peak"`           // Largest absolute sample, 0..1.
	PeakFrequency float64            `json:"peak_frequency"` // Centre of the loudest bin, Hz.
	Bands         map[string]float64 `json:"bands"`          // Share of spectral energy per band, 0..1.
}

// Measure reads one waveform and one unsmoothed magnitude snapshot from r
// and reduces them to Levels. It allocates and is meant for run summaries,
// not frames.
func Measure(r FrameReader) Levels {
	wave := r.ReadFrame(make([]float64, 0, r.WindowSize()), ModeWaveform)
	mags := r.ReadFrame(make([]float64, 0, r.BinCount()), ModeMagnitude)

	lv := Levels{
		RMS:   calculateRMS(wave),
		Bands: make(map[string]float64, len(DefaultBands)),
	}
	if len(wave) > 0 {
		lv.Peak = math.Max(floats.Max(wave), -floats.Min(wave))
	}
	if len(mags) == 0 {
		return lv
	}
	if floats.Max(mags) > 0 {
		lv.PeakFrequency = r.FrequencyForBin(floats.MaxIdx(mags))
	}

	total := floats.Dot(mags, mags)
	if total == 0 {
		return lv
	}
	for _, band := range DefaultBands {
		var energy float64
		for i, m := range mags {
			f := r.FrequencyForBin(i)
			if f >= band.LowHz && f < band.HighHz {
				energy += m * m
			}
		}
		lv.Bands[band.Name] = energy / total
	}
	return lv
}

// calculateRMS calculates the Root Mean Square level of the samples.
func calculateRMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0.0
	}
	return math.Sqrt(floats.Dot(samples, samples) / float64(len(samples)))
}
