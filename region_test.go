// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package corticl

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jontte/CortiCL/internal/device"
	"github.com/Jontte/CortiCL/internal/htmerr"
	"github.com/Jontte/CortiCL/internal/topology"
)

func newTestRegion(t *testing.T, topo topology.Topology, args topology.Args) *Region {
	t.Helper()
	ctx, err := device.NewContext(device.PreferCPU)
	require.NoError(t, err)
	reg, err := NewRegion(ctx, topo, args)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func randomBits(n int) []byte {
	bits := make([]byte, n)
	for i := range bits {
		if rand.Intn(2) == 1 {
			bits[i] = 1
		}
	}
	return bits
}

// Scenario 1 (spec.md §8): line(80,80,5,5), default args overridden with
// ColumnProximalSynapseCount=5, ColumnProximalSynapseMinOverlap=3; feed
// 10000 random inputs and check boost/duty-cycle land in their expected
// bands.
func TestEndToEndRandomInputStats(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 10000-step scenario in -short mode")
	}
	topo := topology.Line(80, 80, 5, 5)
	args := topology.DefaultArgs()
	args.ColumnProximalSynapseCount = 5
	args.ColumnProximalSynapseMinOverlap = 3
	reg := newTestRegion(t, topo, args)

	out := make([]byte, topo.Columns())
	for i := 0; i < 10000; i++ {
		in := randomBits(topo.InputSize())
		require.NoError(t, reg.Write(in, out, false))
	}

	s := reg.Stats()
	assert.GreaterOrEqual(t, s.AverageBoost, 1.0)
	assert.LessOrEqual(t, s.AverageBoost, 3.0)
	assert.GreaterOrEqual(t, s.AverageDutyCycle, 0.01)
	assert.LessOrEqual(t, s.AverageDutyCycle, 0.1)
}

// Scenario 4 (spec.md §8): invalid buffer length surfaces InvalidShape
// and no kernel is dispatched.
func TestEndToEndInvalidShapeNoDispatch(t *testing.T) {
	topo := topology.Line(80, 80, 5, 5)
	args := topology.DefaultArgs()
	reg := newTestRegion(t, topo, args)

	out := make([]byte, topo.Columns())
	err := reg.Write(make([]byte, 3), out, true)
	require.Error(t, err)
	assert.True(t, htmerr.Is(err, htmerr.InvalidShape))
}

// Scenario 5 (spec.md §8): temporal=false makes Write's output equal
// the spatial pooler's active-column bit vector exactly.
func TestEndToEndTemporalFalseMatchesSpatial(t *testing.T) {
	topo := topology.Line(40, 20, -1, -1)
	args := topology.DefaultArgs()
	reg := newTestRegion(t, topo, args)

	in := randomBits(topo.InputSize())
	out := make([]byte, topo.Columns())
	require.NoError(t, reg.Write(in, out, false))

	count := 0
	for _, v := range out {
		if v != 0 {
			count++
		}
	}
	assert.Greater(t, count, 0)
	assert.Less(t, count, topo.Columns())
}

// Scenario 6 (spec.md §8): after refineCounter reaches 100, the refine
// kernel runs once and the counter resets.
func TestEndToEndRefineRunsOnceAt100(t *testing.T) {
	topo := topology.Line(40, 20, -1, -1)
	args := topology.DefaultArgs()
	reg := newTestRegion(t, topo, args)

	in := randomBits(topo.InputSize())
	out := make([]byte, topo.Columns())
	for i := 0; i < 101; i++ {
		require.NoError(t, reg.Write(in, out, false))
	}
	assert.Zero(t, reg.spatial.RefineCounter())
}

func TestBackwardsRejectsWrongWeightsLength(t *testing.T) {
	topo := topology.Line(40, 20, -1, -1)
	args := topology.DefaultArgs()
	reg := newTestRegion(t, topo, args)

	err := reg.Backwards(make([]byte, topo.Columns()), make([]float64, 3))
	require.Error(t, err)
	assert.True(t, htmerr.Is(err, htmerr.InvalidShape))
}
