// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spatial

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

	topo := topology.Line(64, 32, 2, 4)
	args := topology.DefaultArgs()
	p, err := New(ctx, topo, args, device.Seed{1, 2})
	require.NoError(t, err)
	return p
}

func randomBits(n int, everyOther bool) []byte {
	bits := make([]byte, n)
	for i := range bits {
		if everyOther && i%2 == 0 {
			bits[i] = 1
		} else if !everyOther && i%3 == 0 {
			bits[i] = 1
		}
	}
	return bits
}

func TestWriteRejectsWrongShape(t *testing.T) {
	p := newTestPooler(t)
	_, err := p.Write(make([]byte, 3))
	require.Error(t, err)
	assert.True(t, htmerr.Is(err, htmerr.InvalidShape))
}

func TestBackwardsRejectsWrongShape(t *testing.T) {
	p := newTestPooler(t)
	_, err := p.Backwards(make([]byte, 3))
	require.Error(t, err)
	assert.True(t, htmerr.Is(err, htmerr.InvalidShape))
}

func TestWritePermanencesStayInBounds(t *testing.T) {
	p := newTestPooler(t)
	bits := randomBits(p.topo.InputSize(), true)
	for i := 0; i < 20; i++ {
		_, err := p.Write(bits)
		require.NoError(t, err)
	}
	for _, syn := range p.synapses.Slice() {
		assert.GreaterOrEqual(t, float32(syn.Permanence), float32(0))
		assert.LessOrEqual(t, float32(syn.Permanence), float32(1))
	}
}

func TestWriteProducesSparseActivation(t *testing.T) {
	p := newTestPooler(t)
	// With the default floor of 7 connected-and-set synapses out of 10,
	// no column of a freshly initialized pooler reaches a non-zero
	// overlap; a floor of 3 lets some columns compete.
	p.args.ColumnProximalSynapseMinOverlap = 3
	bits := randomBits(p.topo.InputSize(), true)
	active, err := p.Write(bits)
	require.NoError(t, err)
	require.Len(t, active, p.topo.Columns())

	count := 0
	for _, a := range active {
		if a != 0 {
			count++
		}
	}
	assert.Greater(t, count, 0)
	assert.Less(t, count, p.topo.Columns())
}

func TestRefineRunsOnceEveryRefineEvery(t *testing.T) {
	p := newTestPooler(t)
	bits := randomBits(p.topo.InputSize(), false)

	before := make([]int32, len(p.synapses.Slice()))
	for i, s := range p.synapses.Slice() {
		before[i] = s.Target
	}

	for i := 0; i < refineEvery; i++ {
		_, err := p.Write(bits)
		require.NoError(t, err)
	}
	assert.NotZero(t, p.refineCounter)

	_, err := p.Write(bits)
	require.NoError(t, err)
	assert.Zero(t, p.refineCounter)
}

func TestStatsAveragesColumns(t *testing.T) {
	p := newTestPooler(t)
	bits := randomBits(p.topo.InputSize(), true)
	_, err := p.Write(bits)
	require.NoError(t, err)

	s := p.Stats()
	assert.GreaterOrEqual(t, s.AverageBoost, float64(1))
	assert.GreaterOrEqual(t, s.AverageDutyCycle, float64(0))
}
