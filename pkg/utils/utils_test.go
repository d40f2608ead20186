// SPDX-License-Identifier: MIT
package utils

import (
	"errors"
	"math"
	"os"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 44100
	testFrequency  = 440.0 // A4 note
)

var testMagnitudes []float64

func TestMain(m *testing.M) {
	testMagnitudes = make([]float64, testSize)

	// Create a peaked distribution with a known peak.
	for i := range testMagnitudes {
		// Creates a "hill" with peak at position testSize/4.
		testMagnitudes[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	os.Exit(m.Run())
}

func TestMockTransport(t *testing.T) {
	tests := []struct {
		name      string
		inputData []float64
	}{
		{"Empty Data", []float64{}},
		{"Single Value", []float64{0.5}},
		{"Multiple Values", []float64{0.1, 0.2, 0.3, 0.4, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := &MockTransport{}

			if err := mt.Send(tt.inputData); err != nil {
				t.Fatalf("MockTransport.Send() error = %v", err)
			}

			got, ok := mt.Last().([]float64)
			if !ok {
				t.Fatalf("MockTransport.Last() = %T, want []float64", mt.Last())
			}
			if len(got) != len(tt.inputData) {
				t.Errorf("stored length = %d, want %d", len(got), len(tt.inputData))
			}

			if len(tt.inputData) > 0 {
				tt.inputData[0] = 999.999 // Modify original.
				if got[0] == 999.999 {
					t.Errorf("MockTransport.Send() stored reference instead of copy")
				}
			}
		})
	}

	mt := &MockTransport{SendErr: errors.New("boom")}
	if err := mt.Send("x"); err == nil {
		t.Errorf("expected SendErr to be returned")
	}
	if len(mt.Messages()) != 0 {
		t.Errorf("failed send must not be recorded")
	}
	mt.Close()
	if !mt.Closed() {
		t.Errorf("Closed() = false after Close")
	}
}

func TestGenerateComplexWave(t *testing.T) {
	for _, size := range []int{16, 1024, 8192} {
		result := GenerateComplexWave(size, testSampleRate)
		if len(result) != size {
			t.Errorf("GenerateComplexWave() buffer size = %d, want %d", len(result), size)
		}
		for _, v := range result {
			if v < -1 || v > 1 {
				t.Fatalf("sample %f outside [-1, 1]", v)
			}
		}
	}
}

func TestGenerateSineWave(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 44100, testFrequency},
		{"Middle C", 44100, 261.63},
		{"High Sample Rate", 192000, testFrequency},
		{"Low Sample Rate", 8000, testFrequency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSineWave(testSize, tt.sampleRate, tt.frequency)
			if len(result) != testSize {
				t.Fatalf("GenerateSineWave() buffer size = %d, want %d", len(result), testSize)
			}

			samplesPerCycle := tt.sampleRate / tt.frequency
			crossCount := 0
			for i := 1; i < testSize; i++ {
				if (result[i-1] < 0) != (result[i] < 0) {
					crossCount++
				}
			}

			// Two crossings per cycle, with 20% margin for phase alignment.
			expected := float64(testSize) / (samplesPerCycle / 2)
			if math.Abs(float64(crossCount)-expected) > 0.2*expected {
				t.Errorf("zero crossings = %d, expected approximately %.1f", crossCount, expected)
			}
		})
	}
}

func TestInterleave(t *testing.T) {
	out := Interleave([]float32{0.1, -0.2}, 2)
	want := []float32{0.1, 0.1, -0.2, -0.2}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %f, want %f", i, out[i], want[i])
		}
	}
}

func TestScale(t *testing.T) {
	out := Scale([]float32{0.5, -1}, 0.1)
	if math.Abs(float64(out[0])-0.05) > 1e-7 || math.Abs(float64(out[1])+0.1) > 1e-7 {
		t.Errorf("Scale = %v, want [0.05 -0.1]", out)
	}
}

func TestFindPeakBin(t *testing.T) {
	tests := []struct {
		name     string
		mags     []float64
		start    int
		end      int
		expected int
	}{
		{"Full Range", testMagnitudes, 0, testSize - 1, testSize / 4},
		{"Partial Range Start", testMagnitudes, testSize / 8, testSize - 1, testSize / 4},
		{"Partial Range End", testMagnitudes, 0, testSize / 3, testSize / 4},
		{"Negative Start", testMagnitudes, -10, testSize - 1, testSize / 4},
		{"Out of Range End", testMagnitudes, 0, testSize * 2, testSize / 4},
		{"Empty Slice", []float64{}, 0, 10, 0},
		{"Single Value", []float64{1.0}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := FindPeakBin(tt.mags, tt.start, tt.end); result != tt.expected {
				t.Errorf("FindPeakBin() = %d, want %d", result, tt.expected)
			}
		})
	}

	allocs := testing.AllocsPerRun(100, func() {
		FindPeakBin(testMagnitudes, 0, len(testMagnitudes)-1)
	})
	if allocs > 0 {
		t.Errorf("FindPeakBin allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkGenerateComplexWave(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		GenerateComplexWave(1024, testSampleRate)
	}
}
