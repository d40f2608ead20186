// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkLogLifecycle(t *testing.T) {
	var l ChunkLog

	assert.False(t, l.Append([]byte{1}), "inactive log drops chunks")
	require.True(t, l.Begin())
	assert.False(t, l.Begin(), "second Begin reports already recording")

	l.Append([]byte{1, 2})
	l.Append([]byte{3})
	l.Append([]byte{4, 5, 6})
	l.End()
	assert.False(t, l.Append([]byte{7}))

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 6, l.Size())
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, l.Concat())

	require.True(t, l.Begin(), "a new recording starts after End")
	assert.Zero(t, l.Len(), "Begin clears the previous run")
	assert.Empty(t, l.Concat())
}

func TestPCM16RoundTrip(t *testing.T) {
	in := []float32{0, 1, -1, 0.5, 2, -3}
	blob := encodePCM16(in)
	require.Len(t, blob, 2*len(in))

	// Little-endian: 1.0 is 0x7fff.
	assert.Equal(t, []byte{0xff, 0x7f}, blob[2:4])

	got := decodePCM16(blob, nil)
	want := []int{0, math.MaxInt16, -math.MaxInt16, 16384, math.MaxInt16, -math.MaxInt16}
	assert.Equal(t, want, got)

	assert.Len(t, decodePCM16([]byte{1, 2, 3}, nil), 1, "trailing odd byte dropped")
}
