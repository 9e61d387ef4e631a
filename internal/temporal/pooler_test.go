// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jontte/CortiCL/internal/device"
	"github.com/Jontte/CortiCL/internal/htmerr"
	"github.com/Jontte/CortiCL/internal/topology"
)

func newTestPooler(t *testing.T) *Pooler {
	t.Helper()
	ctx, err := device.NewContext(device.PreferCPU)
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Close() })

	topo := topology.Line(16, 16, -1, -1)
	args := topology.DefaultArgs()
	p, err := New(ctx, topo, args, device.Seed{7, 11})
	require.NoError(t, err)
	return p
}

func TestWriteRejectsWrongShape(t *testing.T) {
	p := newTestPooler(t)
	_, err := p.Write(make([]byte, 3))
	require.Error(t, err)
	assert.True(t, htmerr.Is(err, htmerr.InvalidShape))
}

func TestWriteAllZerosStaysQuiescent(t *testing.T) {
	p := newTestPooler(t)
	bits := make([]byte, p.topo.Columns())

	_, err := p.Write(bits)
	require.NoError(t, err)
	_, err = p.Write(bits)
	require.NoError(t, err)

	for _, cell := range p.cells.Slice() {
		assert.Zero(t, cell.State&stateActiveNow)
		assert.Zero(t, cell.State&stateLearningNow)
	}
}

func TestWritePredictionsMatchColumnCount(t *testing.T) {
	p := newTestPooler(t)
	bits := make([]byte, p.topo.Columns())
	bits[0], bits[2], bits[4] = 1, 1, 1

	out, err := p.Write(bits)
	require.NoError(t, err)
	assert.Len(t, out, p.topo.Columns())
}

func TestStatePrevMirrorsPreviousNow(t *testing.T) {
	p := newTestPooler(t)
	bits := make([]byte, p.topo.Columns())
	bits[0], bits[2] = 1, 1

	_, err := p.Write(bits)
	require.NoError(t, err)
	var nowSnapshot []uint8
	for _, cell := range p.cells.Slice() {
		nowSnapshot = append(nowSnapshot, cell.State&0x07)
	}

	_, err = p.Write(bits)
	require.NoError(t, err)
	for i, cell := range p.cells.Slice() {
		prev := (cell.State & 0x70) >> 4
		assert.Equal(t, nowSnapshot[i], prev, "cell %d", i)
	}
}

// TestSequenceLearningIncreasesPredictionOverlap is spec.md §8 scenario 3:
// localInhibition2D(32,32,32,32,5,5), temporal pooler trained on the
// repeating sequence A→B→A→B for 5000 steps; feeding A afterwards must
// produce predictions overlapping B's column set by at least 80%.
func TestSequenceLearningIncreasesPredictionOverlap(t *testing.T) {
	ctx, err := device.NewContext(device.PreferCPU)
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Close() })

	topo := topology.LocalInhibition2D(32, 32, 32, 32, 5, 5)
	args := topology.DefaultArgs()
	p, err := New(ctx, topo, args, device.Seed{7, 11})
	require.NoError(t, err)

	columns := topo.Columns()
	sparse := columns / 25 // ~4%, matching TargetSparsity
	a := make([]byte, columns)
	b := make([]byte, columns)
	for i := 0; i < sparse; i++ {
		a[i] = 1
		b[sparse+i] = 1
	}

	for i := 0; i < 5000; i++ {
		if i%2 == 0 {
			_, err = p.Write(a)
		} else {
			_, err = p.Write(b)
		}
		require.NoError(t, err)
	}

	// The loop's final write (i=4999, odd) was b; one more a should now
	// predict b.
	predictions, err := p.Write(a)
	require.NoError(t, err)
	require.Len(t, predictions, columns)

	bActive, overlap := 0, 0
	for i, v := range b {
		if v == 0 {
			continue
		}
		bActive++
		if predictions[i] != 0 {
			overlap++
		}
	}
	require.Greater(t, bActive, 0)
	assert.GreaterOrEqual(t, float64(overlap)/float64(bActive), 0.8)
}

func TestStatsCountsAreNonNegative(t *testing.T) {
	p := newTestPooler(t)
	bits := make([]byte, p.topo.Columns())
	bits[1] = 1
	_, err := p.Write(bits)
	require.NoError(t, err)

	s := p.Stats()
	assert.GreaterOrEqual(t, s.Active, 0)
	assert.GreaterOrEqual(t, s.Predictive, 0)
	assert.GreaterOrEqual(t, s.Learning, 0)
	assert.GreaterOrEqual(t, s.AverageSegmentDutyCycle, float64(0))
}
