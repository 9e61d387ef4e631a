// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package temporal

import (
	"github.com/Jontte/CortiCL/internal/device"
	"github.com/Jontte/CortiCL/internal/slbool"
	"github.com/Jontte/CortiCL/internal/sltype"
)

// temporalKernelSource is carried into Context.Build as informational
// kernel source text, mirroring spatial.spatialKernelSource's role.
const temporalKernelSource = `
// timeStep, computeActiveState, computePredictiveState, updateSynapses:
// one goroutine-dispatched work item per column, reconstructed from
// spec.md §4.2's phase descriptions.
`

// timeStepKernel is Phase 0 (spec.md §4.2): copies state bits 0-2 into
// bits 4-6 for every cell of column c, and shifts every owned
// segment's activity grids one time slot into the past. Ported from
// the "timeStep" phase description.
func (p *Pooler) timeStepKernel(c int) {
	cellStride := p.cellStride()
	segStride := p.segStride()
	cells := p.cells.Slice()
	segments := p.segments.Slice()

	for cl := 0; cl < cellStride; cl++ {
		idx := c*cellStride + cl
		cell := cells[idx]
		prevBits := (cell.State & 0x07) << 4
		cell.State = (cell.State &^ 0x77) | prevBits
		cells[idx] = cell

		for sl := 0; sl < segStride; sl++ {
			sidx := idx*segStride + sl
			seg := segments[sidx]
			seg.Activity[kindActive][timePrev] = seg.Activity[kindActive][timeNow]
			seg.Activity[kindLearn][timePrev] = seg.Activity[kindLearn][timeNow]
			seg.Activity[kindActive][timeNow] = 0
			seg.Activity[kindLearn][timeNow] = 0
			seg.FullActivity[kindActive][timePrev] = seg.FullActivity[kindActive][timeNow]
			seg.FullActivity[kindLearn][timePrev] = seg.FullActivity[kindLearn][timeNow]
			seg.FullActivity[kindActive][timeNow] = 0
			seg.FullActivity[kindLearn][timeNow] = 0
			segments[sidx] = seg
		}
	}
}

// activeStateKernel is Phase 1 (spec.md §4.2). For an inactive column,
// nothing further happens this step. For an active column: cells that
// own a qualifying sequence segment (one whose prior-step activity met
// SegmentActivationThreshold) become active alone; otherwise every
// cell in the column bursts active, and one learning cell is chosen —
// by best distal match, falling back to fewest existing segments — to
// reinforce a matching segment or grow a fresh one onto cells that
// were learning the previous step.
func (p *Pooler) activeStateKernel(c int) {
	cellStride := p.cellStride()
	segStride := p.segStride()
	cells := p.cells.Slice()
	segments := p.segments.Slice()

	if p.input.Slice()[c] == 0 {
		return
	}

	type qualifier struct {
		cl    int
		learn bool
	}
	var qualifying []qualifier
	for cl := 0; cl < cellStride; cl++ {
		idx := c*cellStride + cl
		for sl := 0; sl < segStride; sl++ {
			seg := segments[idx*segStride+sl]
			if seg.SynapseCount == 0 || !slbool.IsTrue(seg.SequenceSegment) {
				continue
			}
			if int(seg.Activity[kindActive][timePrev]) >= p.args.SegmentActivationThreshold {
				learn := int(seg.Activity[kindLearn][timePrev]) >= p.args.SegmentActivationThreshold
				qualifying = append(qualifying, qualifier{cl, learn})
			}
		}
	}

	if len(qualifying) > 0 {
		seen := map[int]bool{}
		for _, q := range qualifying {
			if seen[q.cl] {
				continue
			}
			seen[q.cl] = true
			idx := c*cellStride + q.cl
			cell := cells[idx]
			cell.State |= stateActiveNow
			if q.learn {
				cell.State |= stateLearningNow
			}
			cells[idx] = cell
		}
		return
	}

	// Bursting: every cell in the column becomes active.
	for cl := 0; cl < cellStride; cl++ {
		idx := c*cellStride + cl
		cell := cells[idx]
		cell.State |= stateActiveNow
		cells[idx] = cell
	}

	bestCell, bestSeg, bestVal := -1, -1, -1
	for cl := 0; cl < cellStride; cl++ {
		idx := c*cellStride + cl
		for sl := 0; sl < segStride; sl++ {
			seg := segments[idx*segStride+sl]
			if seg.SynapseCount == 0 {
				continue
			}
			v := int(seg.FullActivity[kindActive][timePrev])
			if v >= p.args.SegmentMinThreshold && v > bestVal {
				bestVal, bestCell, bestSeg = v, cl, sl
			}
		}
	}

	learnCell := bestCell
	if learnCell < 0 {
		fewest := segStride + 1
		for cl := 0; cl < cellStride; cl++ {
			sc := int(cells[c*cellStride+cl].SegmentCount)
			if sc < fewest {
				fewest, learnCell = sc, cl
			}
		}
	}

	cellIdx := c*cellStride + learnCell
	cell := cells[cellIdx]
	cell.State |= stateLearningNow
	cells[cellIdx] = cell

	rng := device.ForItem(p.writeSeed, c)
	if bestSeg >= 0 {
		sidx := cellIdx*segStride + bestSeg
		p.reinforceSegment(sidx, rng)
		return
	}

	cell = cells[cellIdx]
	if int(cell.SegmentCount) >= segStride {
		return // cannot grow more, per spec.md §4.2 Failure semantics
	}
	newSegIdx := int(cell.SegmentCount)
	p.reinforceSegment(cellIdx*segStride+newSegIdx, rng)
	cell.SegmentCount++
	cells[cellIdx] = cell
}

// reinforceSegment is Phase 1's per-selected-segment learning update,
// shared by the reused-best-match branch and the freshly grown one:
// every existing synapse gets a queued permanence change (positive if
// its target was in the learning state the previous step, negative
// otherwise), and new synapses are grown onto not-yet-connected
// learning-prev cells up to SegmentSynapseCount capacity, ported from
// Phase 1's "queued new segment" description generalized to apply
// regardless of whether the segment is new or reused.
func (p *Pooler) reinforceSegment(sidx int, rng *device.Rand) {
	cellStride := p.cellStride()
	synStride := p.synStride()
	segments := p.segments.Slice()
	syns := p.synapses.Slice()
	seg := segments[sidx]
	base := sidx * synStride
	n := int(seg.SynapseCount)

	learning := make(map[int32]bool, len(p.learningPrevTargets))
	for _, t := range p.learningPrevTargets {
		learning[t] = true
	}
	connected := make(map[int32]bool, n)
	for sy := 0; sy < n; sy++ {
		syn := syns[base+sy]
		target := syn.TargetColumn*int32(cellStride) + syn.TargetCell
		connected[target] = true
		if learning[target] {
			syn.PermanenceQueued = syn.Permanence + p.args.PermanenceStep
		} else {
			syn.PermanenceQueued = syn.Permanence - p.args.PermanenceStep
		}
		syns[base+sy] = syn
	}

	want := p.args.SegmentSynapseCount - n
	if want > len(p.learningPrevTargets) {
		want = len(p.learningPrevTargets)
	}
	added := 0
	for attempts := 0; attempts < want*4 && added < want; attempts++ {
		target := p.learningPrevTargets[rng.Intn(len(p.learningPrevTargets))]
		if connected[target] {
			continue
		}
		connected[target] = true
		syns[base+n+added] = Synapse{
			Permanence:       p.args.ConnectedPermanence,
			PermanenceQueued: p.args.ConnectedPermanence,
			TargetColumn:     target / int32(cellStride),
			TargetCell:       target % int32(cellStride),
		}
		added++
	}

	seg.SynapseCount = int32(n + added)
	seg.SequenceSegmentQueued = slbool.True
	seg.HasQueuedChanges = slbool.True
	segments[sidx] = seg
}

// predictiveStateKernel is Phase 2 (spec.md §4.2): recomputes every
// segment's activity and full-activity against this step's active
// cells (via the TargetCellState snapshot refreshed after Phase 1),
// promotes a cell to predictive when a segment meets
// SegmentActivationThreshold, and queues permanence reinforcement for
// segments meeting either threshold.
func (p *Pooler) predictiveStateKernel(c int) {
	cellStride := p.cellStride()
	segStride := p.segStride()
	synStride := p.synStride()
	cells := p.cells.Slice()
	segments := p.segments.Slice()
	syns := p.synapses.Slice()

	for cl := 0; cl < cellStride; cl++ {
		idx := c*cellStride + cl
		predictive := false
		for sl := 0; sl < segStride; sl++ {
			sidx := idx*segStride + sl
			seg := segments[sidx]
			if seg.SynapseCount == 0 {
				continue
			}

			var activeCount, fullCount, learnActive, learnFull uint8
			base := sidx * synStride
			for sy := 0; sy < int(seg.SynapseCount); sy++ {
				syn := syns[base+sy]
				isActive := syn.TargetCellState&stateActiveNow != 0
				isLearning := syn.TargetCellState&stateLearningNow != 0
				connected := syn.Permanence >= p.args.ConnectedPermanence
				if isActive {
					fullCount++
					if connected {
						activeCount++
					}
				}
				if isLearning {
					learnFull++
					if connected {
						learnActive++
					}
				}
			}
			seg.Activity[kindActive][timeNow] = activeCount
			seg.FullActivity[kindActive][timeNow] = fullCount
			seg.Activity[kindLearn][timeNow] = learnActive
			seg.FullActivity[kindLearn][timeNow] = learnFull

			switch {
			case int(activeCount) >= p.args.SegmentActivationThreshold:
				predictive = true
				p.queueReinforcement(base, int(seg.SynapseCount), syns)
				seg.HasQueuedChanges = slbool.True
			case int(fullCount) >= p.args.SegmentMinThreshold:
				p.queueReinforcement(base, int(seg.SynapseCount), syns)
				seg.HasQueuedChanges = slbool.True
			}
			segments[sidx] = seg
		}
		cell := cells[idx]
		if predictive {
			cell.State |= statePredictiveNow
		}
		cells[idx] = cell
	}
}

// queueReinforcement ported from Phase 2's queued-change rule:
// synapses whose target cell is active-now get a positive permanence
// bump queued, the rest a negative one.
func (p *Pooler) queueReinforcement(base, n int, syns []Synapse) {
	for sy := 0; sy < n; sy++ {
		syn := syns[base+sy]
		if syn.TargetCellState&stateActiveNow != 0 {
			syn.PermanenceQueued = syn.Permanence + p.args.PermanenceStep
		} else {
			syn.PermanenceQueued = syn.Permanence - p.args.PermanenceStep
		}
		syns[base+sy] = syn
	}
}

// updateSynapsesKernel is Phase 3 (spec.md §4.2), the commit phase:
// queued changes are applied for learning cells, reverted (punished)
// for cells that falsely predicted last step, permanences clamped,
// active-duty-cycle updated, and the per-column OR of predictive-now
// bits written back into the shared input/output buffer.
func (p *Pooler) updateSynapsesKernel(c int) {
	cellStride := p.cellStride()
	segStride := p.segStride()
	synStride := p.synStride()
	cells := p.cells.Slice()
	segments := p.segments.Slice()
	syns := p.synapses.Slice()

	predictedAny := false
	for cl := 0; cl < cellStride; cl++ {
		idx := c*cellStride + cl
		cell := cells[idx]
		isLearningNow := cell.State&stateLearningNow != 0
		isPredictiveNow := cell.State&statePredictiveNow != 0
		wasPredictivePrev := cell.State&statePredictivePrev != 0

		for sl := 0; sl < segStride; sl++ {
			sidx := idx*segStride + sl
			seg := segments[sidx]
			if !slbool.IsTrue(seg.HasQueuedChanges) {
				continue
			}
			base := sidx * synStride
			for sy := 0; sy < int(seg.SynapseCount); sy++ {
				syn := syns[base+sy]
				switch {
				case isLearningNow:
					syn.Permanence = syn.PermanenceQueued
				case !isPredictiveNow && wasPredictivePrev && syn.PermanenceQueued > syn.Permanence:
					// Only synapses queued for a positive bump get
					// punished for the failed prediction; synapses
					// already queued negative are left alone.
					syn.Permanence -= p.args.PermanenceStep
				}
				if syn.Permanence < 0 {
					syn.Permanence = 0
				}
				if syn.Permanence > 1 {
					syn.Permanence = 1
				}
				syns[base+sy] = syn
			}

			if isLearningNow && slbool.IsTrue(seg.SequenceSegmentQueued) {
				seg.SequenceSegment = slbool.True
			}
			seg.HasQueuedChanges = slbool.False
			seg.SequenceSegmentQueued = slbool.False

			var caused sltype.Float
			if int(seg.Activity[kindActive][timeNow]) >= p.args.SegmentActivationThreshold {
				caused = 1
			}
			persist := p.args.DutyCyclePersistence
			seg.ActiveDutyCycle = seg.ActiveDutyCycle*persist + caused*(1-persist)
			segments[sidx] = seg
		}

		if isPredictiveNow {
			predictedAny = true
		}
		cells[idx] = cell
	}

	in := p.input.Slice()
	if predictedAny {
		in[c] = 1
	} else {
		in[c] = 0
	}
}
