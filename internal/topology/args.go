// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import "fmt"

// Args holds the learning hyper-parameters (spec.md §3), immutable after
// construction, ported from clargs.h/.cpp.
type Args struct {
	ConnectedPermanence float32
	PermanenceStep      float32

	// Spatial pooler
	ColumnProximalSynapseCount      int
	ColumnProximalSynapseMinOverlap int
	BoostStep                       float32
	DutyCyclePersistence            float32
	// TargetSparsity is the fraction of columns inhibition admits as
	// active, promoted onto Args per spec.md §9's Open Question (the
	// original hard-codes 0.04 in one variant).
	TargetSparsity float32

	// Temporal pooler
	ColumnCellCount           int
	CellSegmentCount          int
	SegmentSynapseCount       int
	SegmentActivationThreshold int
	SegmentMinThreshold        int
}

// DefaultArgs mirrors CLArgs's default member initializers.
func DefaultArgs() Args {
	return Args{
		ConnectedPermanence: 0.2,
		PermanenceStep:      0.05,

		ColumnProximalSynapseCount:      10,
		ColumnProximalSynapseMinOverlap: 7,
		BoostStep:                       0.01,
		DutyCyclePersistence:            0.99,
		TargetSparsity:                  0.04,

		ColumnCellCount:            4,
		CellSegmentCount:           10,
		SegmentSynapseCount:        10,
		SegmentActivationThreshold: 5,
		SegmentMinThreshold:        3,
	}
}

// Serialize ported from CLArgs::serialize.
func (a Args) Serialize() string {
	return fmt.Sprintf(
		"constant int COLUMN_PROXIMAL_SYNAPSE_COUNT = %d;"+
			"constant int COLUMN_PROXIMAL_SYNAPSE_MIN_OVERLAP = %d;"+
			"constant float BOOST_STEP = %g;"+
			"constant float DUTY_CYCLE_PERSISTENCE = %g;"+
			"constant float TARGET_SPARSITY = %g;"+
			"constant int COLUMN_CELL_COUNT = %d;"+
			"constant int CELL_SEGMENT_COUNT = %d;"+
			"constant int SEGMENT_SYNAPSE_COUNT = %d;"+
			"constant int SEGMENT_ACTIVATION_THRESHOLD = %d;"+
			"constant int SEGMENT_MIN_THRESHOLD = %d;"+
			"constant float CONNECTED_PERMANENCE = %g;"+
			"constant float PERMANENCE_STEP = %g;",
		a.ColumnProximalSynapseCount, a.ColumnProximalSynapseMinOverlap,
		a.BoostStep, a.DutyCyclePersistence, a.TargetSparsity,
		a.ColumnCellCount, a.CellSegmentCount, a.SegmentSynapseCount,
		a.SegmentActivationThreshold, a.SegmentMinThreshold,
		a.ConnectedPermanence, a.PermanenceStep)
}
