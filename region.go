// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package corticl

import (
	"math/rand"

	"github.com/Jontte/CortiCL/internal/device"
	"github.com/Jontte/CortiCL/internal/htmerr"
	"github.com/Jontte/CortiCL/internal/spatial"
	"github.com/Jontte/CortiCL/internal/temporal"
	"github.com/Jontte/CortiCL/internal/topology"
)

func randomSeed() device.Seed {
	return device.Seed{rand.Uint32(), rand.Uint32()}
}

// Stats merges both poolers' statistics into one struct (spec.md §4.3):
// spatial boost/duty-cycle averages plus temporal active/predictive/
// learning counts and average segment duty cycle.
type Stats struct {
	AverageBoost            float64
	AverageDutyCycle        float64
	Active                  int
	Predictive              int
	Learning                int
	AverageSegmentDutyCycle float64
}

// Region composes a spatial pooler and a temporal pooler behind one
// façade (spec.md §4.3), ported from CLRegion. It owns both poolers;
// callers own the input/output buffers they pass to Write/Backwards.
type Region struct {
	ctx      *device.Context
	topo     topology.Topology
	spatial  *spatial.Pooler
	temporal *temporal.Pooler
}

// NewRegion constructs a Region, seeding both poolers' initialization
// from the process-wide math/rand source, ported from CLRegion's
// constructor chaining CLSpatialPooler and CLTemporalPooler.
func NewRegion(ctx *device.Context, topo topology.Topology, args topology.Args) (*Region, error) {
	sp, err := spatial.New(ctx, topo, args, randomSeed())
	if err != nil {
		return nil, err
	}
	tp, err := temporal.New(ctx, topo, args, randomSeed())
	if err != nil {
		return nil, err
	}
	return &Region{ctx: ctx, topo: topo, spatial: sp, temporal: tp}, nil
}

// Write pipes input through the spatial pooler and, if temporal is
// true, through the temporal pooler, writing the result into out
// (spec.md §4.3). With temporal=false, out is exactly the spatial
// pooler's active-column bit vector.
func (r *Region) Write(input []byte, out []byte, temporal bool) error {
	if len(out) != r.topo.Columns() {
		return htmerr.New(htmerr.InvalidShape, "Region.Write: out has %d columns, want %d", len(out), r.topo.Columns())
	}

	active, err := r.spatial.Write(input)
	if err != nil {
		return err
	}

	if !temporal {
		copy(out, active)
		return nil
	}

	predictions, err := r.temporal.Write(active)
	if err != nil {
		return err
	}
	copy(out, predictions)
	return nil
}

// Backwards delegates to the spatial pooler (spec.md §4.3). weights
// must already be sized to topology.InputSize(); Go slices, unlike the
// original's std::vector, cannot be resized by the callee.
func (r *Region) Backwards(activations []byte, weights []float64) error {
	if len(weights) != r.topo.InputSize() {
		return htmerr.New(htmerr.InvalidShape, "Region.Backwards: weights has %d entries, want %d", len(weights), r.topo.InputSize())
	}
	w, err := r.spatial.Backwards(activations)
	if err != nil {
		return err
	}
	copy(weights, w)
	return nil
}

// Stats merges both poolers' statistics (spec.md §4.3).
func (r *Region) Stats() Stats {
	ss := r.spatial.Stats()
	ts := r.temporal.Stats()
	return Stats{
		AverageBoost:            ss.AverageBoost,
		AverageDutyCycle:        ss.AverageDutyCycle,
		Active:                  ts.Active,
		Predictive:              ts.Predictive,
		Learning:                ts.Learning,
		AverageSegmentDutyCycle: ts.AverageSegmentDutyCycle,
	}
}

// Close releases the Region's shared compute context.
func (r *Region) Close() error {
	return r.ctx.Close()
}
