// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package temporal implements the temporal pooler (spec.md §4.2): over the
// stream of column activations the spatial pooler produces, it learns
// transitions between successive sparse patterns, maintains per-cell
// predictive state, and outputs per-column "is-predicted" bits for the
// next step. Ported from CLTemporalPooler (cltemporal.h/.cpp); the
// original's temporal.cl kernel bodies were not present in the retrieved
// source and are reconstructed here from spec.md §4.2's phase
// descriptions rather than transcribed.
package temporal

import (
	"math/rand"

	"github.com/Jontte/CortiCL/internal/device"
	"github.com/Jontte/CortiCL/internal/htmerr"
	"github.com/Jontte/CortiCL/internal/slbool"
	"github.com/Jontte/CortiCL/internal/sltype"
	"github.com/Jontte/CortiCL/internal/topology"
)

// Cell state bits (spec.md §3): 0=active-now, 1=predictive-now,
// 2=learning-now, 4=active-prev, 5=predictive-prev, 6=learning-prev.
const (
	stateActiveNow      = 1 << 0
	statePredictiveNow  = 1 << 1
	stateLearningNow    = 1 << 2
	stateActivePrev     = 1 << 4
	statePredictivePrev = 1 << 5
	stateLearningPrev   = 1 << 6
)

// Activity/FullActivity indices: kind selects active-state vs
// learn-state counts, time selects this step vs the previous one.
const (
	kindActive = 0
	kindLearn  = 1
	timeNow    = 0
	timePrev   = 1
)

// Synapse is a distal synapse: a connection from a segment to another
// cell (spec.md §3). TargetColumn < 0 marks an unused slot.
// TargetCellState is a snapshot of the target cell's State byte, taken
// once per Write after Phase 1 completes, so Phase 2's per-segment
// activity recompute reads a value that is never concurrently mutated
// by another work item — the same snapshot discipline the spatial
// pooler uses for neighbour duty cycles.
type Synapse struct {
	Permanence       sltype.Float
	PermanenceQueued sltype.Float
	TargetColumn     int32
	TargetCell       int32
	TargetCellState  uint8
}

// Segment is a distal segment (spec.md §3): a dendritic sub-unit that
// accumulates evidence from other cells' distal synapses.
// SynapseCount of 0 marks a never-grown, unused segment slot.
type Segment struct {
	Activity     [2][2]uint8
	FullActivity [2][2]uint8

	SequenceSegment       slbool.Bool
	SequenceSegmentQueued slbool.Bool
	HasQueuedChanges      slbool.Bool

	ActiveDutyCycle sltype.Float
	SynapseCount    int32
}

// Cell is one temporal-pooler cell (spec.md §3). SegmentCount tracks
// how many of the CellSegmentCount segment slots owned by this cell
// are in use; segments are appended, never reclaimed,
// ported from CLCell::segmentCount.
type Cell struct {
	State        uint8
	SegmentCount int32
}

// Stats is the temporal pooler's contribution to Region.Stats()
// (spec.md §4.3): counts of cells in each state plus the average
// segment active-duty-cycle.
type Stats struct {
	Active                  int
	Predictive              int
	Learning                int
	AverageSegmentDutyCycle float64
}

// Pooler owns the cell, segment, and distal-synapse device buffers and
// the four temporal-pooler kernels.
type Pooler struct {
	ctx  *device.Context
	topo topology.Topology
	args topology.Args

	cells    *device.Buffer[Cell]
	segments *device.Buffer[Segment] // stride = args.CellSegmentCount
	synapses *device.Buffer[Synapse] // stride additionally * args.SegmentSynapseCount
	input    *device.Buffer[byte]    // column activations in, column predictions out

	program device.Program

	// writeSeed is the (u32,u32) host-supplied PRNG seed for the
	// current Write call, consumed by activeStateKernel's new-segment
	// synapse sampling, per spec.md §9's PRNG design note.
	writeSeed device.Seed

	// learningPrevTargets lists every cell's flat index that carried
	// the learning-prev bit at the start of the current Write call,
	// refreshed host-side before Phase 1 dispatches; reinforceSegment
	// samples its new distal synapse targets from this list.
	learningPrevTargets []int32

	// RefineSegments is left declared and unwired, per spec.md §9's
	// explicit instruction not to guess a behaviour for the temporal
	// pooler's segment "refine" hook. Nothing in this package calls it.
	RefineSegments func(*Pooler)
}

func (p *Pooler) cellStride() int { return p.args.ColumnCellCount }
func (p *Pooler) segStride() int  { return p.args.CellSegmentCount }
func (p *Pooler) synStride() int  { return p.args.SegmentSynapseCount }

// New constructs a temporal pooler and zero-initializes its buffers,
// ported from CLTemporalPooler's constructor.
func New(ctx *device.Context, topo topology.Topology, args topology.Args, seed device.Seed) (*Pooler, error) {
	columns := topo.Columns()
	cellCount := columns * args.ColumnCellCount
	segCount := cellCount * args.CellSegmentCount
	synCount := segCount * args.SegmentSynapseCount

	p := &Pooler{
		ctx:      ctx,
		topo:     topo,
		args:     args,
		cells:    device.NewBuffer[Cell](ctx, cellCount),
		segments: device.NewBuffer[Segment](ctx, segCount),
		synapses: device.NewBuffer[Synapse](ctx, synCount),
		input:    device.NewBuffer[byte](ctx, columns),
	}

	kernels := device.KernelSet{
		"timeStep":               p.timeStepKernel,
		"computeActiveState":     p.activeStateKernel,
		"computePredictiveState": p.predictiveStateKernel,
		"updateSynapses":         p.updateSynapsesKernel,
	}
	prog, err := ctx.Build("temporal", args.Serialize()+topo.Serialize(), temporalKernelSource, kernels)
	if err != nil {
		return nil, err
	}
	p.program = prog

	p.initRegion(seed)
	return p, nil
}

// initRegion ported from CLTemporalPooler's constructor body: segments
// and synapses start entirely unused (SegmentCount = 0, every synapse
// slot's TargetColumn = -1); the original's temporal initRegion kernel
// body was not recovered from the source pack, so this follows the
// only initialization behaviour spec.md §4.2 documents — segments are
// grown lazily by Phase 1.
func (p *Pooler) initRegion(seed device.Seed) {
	for i := range p.cells.Slice() {
		p.cells.Slice()[i] = Cell{}
	}
	syns := p.synapses.Slice()
	for i := range syns {
		syns[i].TargetColumn = -1
	}
	_ = seed // no randomness consumed; kept for constructor-signature parity
}

// Write runs the four-phase pipeline and returns the per-column
// prediction bit vector, ported from CLTemporalPooler::write.
func (p *Pooler) Write(columnActivations []byte) ([]byte, error) {
	columns := p.topo.Columns()
	if len(columnActivations) != columns {
		return nil, htmerr.New(htmerr.InvalidShape, "temporal.Write: got %d activations, want %d", len(columnActivations), columns)
	}
	if err := p.input.UploadFrom(true, columnActivations); err != nil {
		return nil, err
	}

	seed := device.Seed{rand.Uint32(), rand.Uint32()}
	p.writeSeed = seed

	if err := p.program.Dispatch("timeStep", columns); err != nil {
		return nil, err
	}

	p.refreshLearningPrevTargets()
	if err := p.program.Dispatch("computeActiveState", columns); err != nil {
		return nil, err
	}

	p.refreshTargetCellState()
	if err := p.program.Dispatch("computePredictiveState", columns); err != nil {
		return nil, err
	}
	if err := p.program.Dispatch("updateSynapses", columns); err != nil {
		return nil, err
	}

	if err := p.input.Download(true); err != nil {
		return nil, err
	}
	out := make([]byte, columns)
	copy(out, p.input.Slice())
	return out, nil
}

// refreshLearningPrevTargets rebuilds the learning-prev candidate list
// host-side, sequentially, before Phase 1 dispatch — a plain read of
// state Phase 0 already finished writing, so no concurrent work item
// can observe it mid-update.
func (p *Pooler) refreshLearningPrevTargets() {
	p.learningPrevTargets = p.learningPrevTargets[:0]
	for i, cell := range p.cells.Slice() {
		if cell.State&stateLearningPrev != 0 {
			p.learningPrevTargets = append(p.learningPrevTargets, int32(i))
		}
	}
}

// refreshTargetCellState snapshots every in-use synapse's target
// cell's State byte after Phase 1 completes, host-side and
// sequentially — see Synapse.TargetCellState's doc comment.
func (p *Pooler) refreshTargetCellState() {
	cellStride := p.cellStride()
	cells := p.cells.Slice()
	syns := p.synapses.Slice()
	for i, syn := range syns {
		if syn.TargetColumn < 0 {
			continue
		}
		idx := int(syn.TargetColumn)*cellStride + int(syn.TargetCell)
		syns[i].TargetCellState = cells[idx].State
	}
}

// Stats ported from CLTemporalPooler::getStats; the original's method
// body was commented out in the source pack, but spec.md §4.2's
// contract ("counts cells currently active/predictive/learning, and
// averages segment active-duty-cycle") is a mandated operation, so it
// is fully implemented here rather than left inert.
func (p *Pooler) Stats() Stats {
	p.cells.Download(true)
	p.segments.Download(true)

	var s Stats
	for _, cell := range p.cells.Slice() {
		if cell.State&stateActiveNow != 0 {
			s.Active++
		}
		if cell.State&statePredictiveNow != 0 {
			s.Predictive++
		}
		if cell.State&stateLearningNow != 0 {
			s.Learning++
		}
	}

	var sum float64
	var n int
	for _, seg := range p.segments.Slice() {
		if seg.SynapseCount == 0 {
			continue
		}
		sum += float64(seg.ActiveDutyCycle)
		n++
	}
	if n > 0 {
		s.AverageSegmentDutyCycle = sum / float64(n)
	}
	return s
}
