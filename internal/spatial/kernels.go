// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spatial

import (
	"github.com/Jontte/CortiCL/internal/device"
	"github.com/Jontte/CortiCL/internal/sltype"
)

// spatialKernelSource is carried into Context.Build as the kernelSrc
// argument, the way CLSpatialPooler passes its .cl source text into
// cl::Program::Sources. Nothing here reads it back: it is informational
// text an online-compiling backend would need and a precompiled one
// ignores, kept for parity with the original's constructor signature.
const spatialKernelSource = `
// computeOverlap, inhibitNeighbours, updatePermanences, refineRegion:
// one goroutine-dispatched work item per column, ported from
// clspatial.cl's four phases.
`

// overlapKernel is phase 1 (spec.md §4.1): each column counts its
// connected proximal synapses whose target input bit is set, then
// scales the count by Boost. Ported from clspatial.cl's
// computeOverlap.
func (p *Pooler) overlapKernel(c int) {
	stride := p.args.ColumnProximalSynapseCount
	syns := p.synapses.Slice()
	in := p.input.Slice()

	var overlap sltype.Float
	for a := 0; a < stride; a++ {
		syn := syns[c*stride+a]
		if syn.Permanence >= p.args.ConnectedPermanence && in[syn.Target] != 0 {
			overlap++
		}
	}
	if int(overlap) < p.args.ColumnProximalSynapseMinOverlap {
		overlap = 0
	}

	cols := p.columns.Slice()
	col := cols[c]
	col.Overlap = overlap * col.Boost
	cols[c] = col
}

// inhibitKernel is phase 2 (spec.md §4.1): a column stays active only
// if its overlap is among the TargetSparsity-fraction highest in its
// inhibition neighbourhood, equal overlaps ranked by lower column index
// first. Ported from clspatial.cl's inhibitNeighbours.
func (p *Pooler) inhibitKernel(c int) {
	cols := p.columns.Slice()
	neighbors := p.topo.Neighbors(c, p.topo.InhibitionRadius)

	rank := 0
	mine := cols[c].Overlap
	for _, n := range neighbors {
		if cols[n].Overlap > mine || (cols[n].Overlap == mine && n < c) {
			rank++
		}
	}

	winners := maxInt(1, int(float32(len(neighbors))*p.args.TargetSparsity))
	col := cols[c]
	if mine > col.MinDutyCycle && rank < winners {
		col.Active = 1
	} else {
		col.Active = 0
	}
	cols[c] = col
}

// updatePermanencesKernel is phase 3 (spec.md §4.1): active columns
// reinforce synapses whose input bit is set and punish the rest by
// PermanenceStep, then duty cycles, boost, and the column-rescue
// permanence bump are recomputed. Boost rises when ActiveDutyCycle
// falls below MinDutyCycle; the separate rescue bump (applied to every
// proximal synapse regardless of this step's activation) triggers when
// OverlapDutyCycle falls below MinDutyCycle — two distinct neglect
// signals, not one. Ported from clspatial.cl's updatePermanences.
//
// MinDutyCycle depends on every neighbour's ActiveDutyCycle, which
// this same phase also overwrites; each work item reads a neighbour
// snapshot taken before any column in this dispatch is touched, so no
// goroutine ever observes a neighbour's partially updated value — the
// CPU-backend analogue of the original kernel's well-definedness under
// unsynchronized, one-work-item-per-column GPU execution.
func (p *Pooler) updatePermanencesKernel(c int) {
	cols := p.columns.Slice()
	snapshot := p.dutyCycleSnapshot

	col := cols[c]
	if col.Active != 0 {
		stride := p.args.ColumnProximalSynapseCount
		syns := p.synapses.Slice()
		in := p.input.Slice()
		for a := 0; a < stride; a++ {
			idx := c*stride + a
			syn := syns[idx]
			if in[syn.Target] != 0 {
				syn.Permanence += p.args.PermanenceStep
			} else {
				syn.Permanence -= p.args.PermanenceStep
			}
			if syn.Permanence < 0 {
				syn.Permanence = 0
			}
			if syn.Permanence > 1 {
				syn.Permanence = 1
			}
			syns[idx] = syn
		}
	}

	active := float32(0)
	if col.Active != 0 {
		active = 1
	}
	overlapped := float32(0)
	if col.Overlap > 0 {
		overlapped = 1
	}
	persist := p.args.DutyCyclePersistence
	col.ActiveDutyCycle = col.ActiveDutyCycle*persist + active*(1-persist)
	col.OverlapDutyCycle = col.OverlapDutyCycle*persist + overlapped*(1-persist)

	var maxNeighborDuty sltype.Float
	for _, n := range p.topo.Neighbors(c, p.topo.InhibitionRadius) {
		if n == c {
			continue
		}
		if d := snapshot[n]; d > maxNeighborDuty {
			maxNeighborDuty = d
		}
	}
	col.MinDutyCycle = maxNeighborDuty * 0.01

	if col.ActiveDutyCycle < col.MinDutyCycle {
		col.Boost += p.args.BoostStep
	} else {
		col.Boost -= p.args.BoostStep
		if col.Boost < 1 {
			col.Boost = 1
		}
	}
	cols[c] = col

	// Column rescue: a column whose overlap duty cycle has fallen below
	// its neighbourhood's minimum gets every proximal synapse nudged up
	// by a small permanence bump, regardless of whether it was active
	// this step, so chronically-unselected columns still get a chance
	// to become connected.
	if col.OverlapDutyCycle < col.MinDutyCycle {
		stride := p.args.ColumnProximalSynapseCount
		syns := p.synapses.Slice()
		for a := 0; a < stride; a++ {
			idx := c*stride + a
			syn := syns[idx]
			syn.Permanence += p.args.PermanenceStep
			if syn.Permanence > 1 {
				syn.Permanence = 1
			}
			syns[idx] = syn
		}
	}
}

// refineKernel is the periodic phase run every refineEvery writes
// (spec.md §4.1): each column's weakest proximal synapse is re-rolled
// onto a freshly sampled target, giving columns a chance to discover
// more useful receptive-field bits. Ported from clspatial.cl's
// refineRegion.
func (p *Pooler) refineKernel(c int) {
	stride := p.args.ColumnProximalSynapseCount
	if stride == 0 {
		return
	}
	syns := p.synapses.Slice()

	weakest := 0
	for a := 1; a < stride; a++ {
		if syns[c*stride+a].Permanence < syns[c*stride+weakest].Permanence {
			weakest = a
		}
	}

	rng := device.ForItem(p.refineSeed, c)
	idx := c*stride + weakest
	syns[idx] = Synapse{
		Permanence: rng.NormFloat32Clamped(0.2, 0.2, 0, 1),
		Target:     int32(p.sampleTarget(c, rng)),
	}
}
