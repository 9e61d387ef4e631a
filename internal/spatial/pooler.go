// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spatial implements the spatial pooler (spec.md §4.1): it maps
// dense binary input patterns into sparse column activations and adapts
// proximal synapse permanences and per-column boost so columns become
// selective for recurring input patterns. Ported from CLSpatialPooler
// (clspatial.h/.cpp).
package spatial

import (
	"math/rand"

	"github.com/Jontte/CortiCL/internal/device"
	"github.com/Jontte/CortiCL/internal/htmerr"
	"github.com/Jontte/CortiCL/internal/slbool"
	"github.com/Jontte/CortiCL/internal/sltype"
	"github.com/Jontte/CortiCL/internal/topology"
)

// refineEvery is how many write()s elapse between periodic refine
// kernel runs, ported from CLSpatialPooler::write's
// "if (++m_refineCounter > 100)".
const refineEvery = 100

// Synapse is a proximal synapse: a connection from a column to an input
// bit (spec.md §3). Permanence is clamped to [0,1]; Target indexes into
// the input vector.
type Synapse struct {
	Permanence sltype.Float
	Target     int32
}

// Column is one spatial-pooler column (spec.md §3). Active is backed by
// slbool.Bool rather than a native bool so every field of this struct-of-
// flat-array element stays a 32-bit-aligned type, per Design Note
// "Struct-of-flat-arrays".
type Column struct {
	Boost   sltype.Float
	Overlap sltype.Float
	Active  slbool.Bool

	ActiveDutyCycle  sltype.Float
	MinDutyCycle     sltype.Float
	OverlapDutyCycle sltype.Float
}

// Stats is the spatial pooler's contribution to Region.Stats()
// (spec.md §4.3): boost and active-duty-cycle averaged over columns.
type Stats struct {
	AverageBoost     float64
	AverageDutyCycle float64
}

// Pooler owns the column and proximal-synapse device buffers and the
// four spatial-pooler kernels.
type Pooler struct {
	ctx  *device.Context
	topo topology.Topology
	args topology.Args

	columns  *device.Buffer[Column]
	synapses *device.Buffer[Synapse] // stride = args.ColumnProximalSynapseCount
	input    *device.Buffer[byte]

	program       device.Program
	refineCounter int
	refineSeed    device.Seed

	// dutyCycleSnapshot holds ActiveDutyCycle as of the start of the
	// updatePermanences phase, read by updatePermanencesKernel's
	// MinDutyCycle computation so concurrent work items never observe a
	// neighbour's value mid-update.
	dutyCycleSnapshot []sltype.Float
}

// New constructs a spatial pooler and runs the one-time initRegion
// kernel, ported from CLSpatialPooler's constructor.
func New(ctx *device.Context, topo topology.Topology, args topology.Args, seed device.Seed) (*Pooler, error) {
	p := &Pooler{
		ctx:      ctx,
		topo:     topo,
		args:     args,
		columns:  device.NewBuffer[Column](ctx, topo.Columns()),
		synapses: device.NewBuffer[Synapse](ctx, topo.Columns()*args.ColumnProximalSynapseCount),
		input:    device.NewBuffer[byte](ctx, topo.InputSize()),
	}

	kernels := device.KernelSet{
		"computeOverlap":    p.overlapKernel,
		"inhibitNeighbours": p.inhibitKernel,
		"updatePermanences": p.updatePermanencesKernel,
		"refineRegion":      p.refineKernel,
	}
	prog, err := ctx.Build("spatial", args.Serialize()+topo.Serialize(), spatialKernelSource, kernels)
	if err != nil {
		return nil, err
	}
	p.program = prog

	p.initRegion(seed)
	return p, nil
}

// initRegion ported from CLSpatialPooler's constructor body: every
// proximal synapse gets permanence ~ clamp(Normal(0.2,0.2),0,1) and a
// target uniform over the input (or the receptive-field square centred
// on the column's projected input coordinate, if ReceptiveFieldRadius
// >= 0).
func (p *Pooler) initRegion(seed device.Seed) {
	stride := p.args.ColumnProximalSynapseCount
	cols := p.columns.Slice()
	syns := p.synapses.Slice()
	for c := range cols {
		cols[c] = Column{Boost: 1, MinDutyCycle: 0}
		rng := device.ForItem(seed, c)
		for a := 0; a < stride; a++ {
			syns[c*stride+a] = Synapse{
				Permanence: rng.NormFloat32Clamped(0.2, 0.2, 0, 1),
				Target:     int32(p.sampleTarget(c, rng)),
			}
		}
	}
}

func (p *Pooler) sampleTarget(c int, rng *device.Rand) int {
	if p.args.ColumnProximalSynapseCount == 0 {
		return 0
	}
	if p.topo.ReceptiveFieldRadius < 0 {
		return rng.Intn(p.topo.InputSize())
	}
	cx, cy := p.topo.ProjectColumnToInput(c)
	r := p.topo.ReceptiveFieldRadius
	x := cx + rng.Intn(2*r+1) - r
	y := cy + rng.Intn(2*r+1) - r
	if x < 0 {
		x = 0
	}
	if x >= p.topo.InputWidth {
		x = p.topo.InputWidth - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= p.topo.InputHeight {
		y = p.topo.InputHeight - 1
	}
	return y*p.topo.InputWidth + x
}

// Write runs the four-phase pipeline and returns the per-column active
// flag, ported from CLSpatialPooler::write.
func (p *Pooler) Write(bits []byte) ([]byte, error) {
	if len(bits) != p.topo.InputSize() {
		return nil, htmerr.New(htmerr.InvalidShape, "spatial.Write: got %d bits, want %d", len(bits), p.topo.InputSize())
	}
	if err := p.input.UploadFrom(false, bits); err != nil {
		return nil, err
	}

	columns := p.topo.Columns()
	if err := p.program.Dispatch("computeOverlap", columns); err != nil {
		return nil, err
	}
	if err := p.program.Dispatch("inhibitNeighbours", columns); err != nil {
		return nil, err
	}

	p.dutyCycleSnapshot = make([]sltype.Float, columns)
	for i, col := range p.columns.Slice() {
		p.dutyCycleSnapshot[i] = col.ActiveDutyCycle
	}
	if err := p.program.Dispatch("updatePermanences", columns); err != nil {
		return nil, err
	}

	p.refineCounter++
	if p.refineCounter > refineEvery {
		seed := device.Seed{rand.Uint32(), rand.Uint32()}
		p.refineSeed = seed
		if err := p.program.Dispatch("refineRegion", columns); err != nil {
			return nil, err
		}
		p.refineCounter = 0
	}

	if err := p.columns.Download(true); err != nil {
		return nil, err
	}
	ret := make([]byte, columns)
	for i, col := range p.columns.Slice() {
		if col.Active != 0 {
			ret[i] = 1
		}
	}
	return ret, nil
}

// Backwards ported from CLSpatialPooler::backwards: sums one for each
// connected proximal synapse belonging to an active column onto the
// input index it targets, using the most recently downloaded synapse
// buffer.
func (p *Pooler) Backwards(activations []byte) ([]float64, error) {
	if len(activations) != p.topo.Columns() {
		return nil, htmerr.New(htmerr.InvalidShape, "spatial.Backwards: got %d activations, want %d", len(activations), p.topo.Columns())
	}
	if err := p.synapses.Download(true); err != nil {
		return nil, err
	}
	result := make([]float64, p.topo.InputSize())
	stride := p.args.ColumnProximalSynapseCount
	syns := p.synapses.Slice()
	for c, active := range activations {
		if active == 0 {
			continue
		}
		for a := 0; a < stride; a++ {
			syn := syns[c*stride+a]
			if syn.Permanence >= p.args.ConnectedPermanence {
				result[syn.Target]++
			}
		}
	}
	return result, nil
}

// RefineCounter exposes the periodic-refine write counter, a test probe
// for spec.md §8 scenario 6 ("after refineCounter reaches 100, the
// refine kernel runs once and then the counter resets").
func (p *Pooler) RefineCounter() int { return p.refineCounter }

// Stats ported from CLSpatialPooler::getStats.
func (p *Pooler) Stats() Stats {
	p.columns.Download(true)
	var s Stats
	n := len(p.columns.Slice())
	for _, col := range p.columns.Slice() {
		s.AverageBoost += float64(col.Boost)
		s.AverageDutyCycle += float64(col.ActiveDutyCycle)
	}
	if n > 0 {
		s.AverageBoost /= float64(n)
		s.AverageDutyCycle /= float64(n)
	}
	return s
}
