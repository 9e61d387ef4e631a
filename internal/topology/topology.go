// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package topology holds the input/region geometry and the learning
// hyper-parameters (spec.md §3), both serializable as `constant TYPE NAME
// = VALUE;` kernel-source declarations, ported from cltopology.h/.cpp and
// clargs.h/.cpp.
package topology

import "fmt"

// Topology is immutable after Region construction.
type Topology struct {
	InputWidth  int
	InputHeight int

	RegionWidth  int
	RegionHeight int

	// InhibitionRadius is how far a column's neighbourhood spans, or -1
	// for global inhibition.
	InhibitionRadius int
	// ReceptiveFieldRadius is how far columns extend their receptive
	// field into the input space, or -1 for unlimited.
	ReceptiveFieldRadius int
}

// InputSize ported from CLTopology::getInputSize.
func (t Topology) InputSize() int { return t.InputWidth * t.InputHeight }

// Columns ported from CLTopology::getColumns.
func (t Topology) Columns() int { return t.RegionWidth * t.RegionHeight }

// GlobalInhibition2D ported from CLTopology::globalInhibition2D.
func GlobalInhibition2D(inputWidth, inputHeight, regionWidth, regionHeight int) Topology {
	return Topology{
		InputWidth: inputWidth, InputHeight: inputHeight,
		RegionWidth: regionWidth, RegionHeight: regionHeight,
		InhibitionRadius: -1, ReceptiveFieldRadius: -1,
	}
}

// LocalInhibition2D ported from CLTopology::localInhibition2D.
func LocalInhibition2D(inputWidth, inputHeight, regionWidth, regionHeight, inhibitionRadius, receptiveFieldRadius int) Topology {
	return Topology{
		InputWidth: inputWidth, InputHeight: inputHeight,
		RegionWidth: regionWidth, RegionHeight: regionHeight,
		InhibitionRadius: inhibitionRadius, ReceptiveFieldRadius: receptiveFieldRadius,
	}
}

// Line ported from CLTopology::line: a 1-D region over a 1-D input.
func Line(inputLength, regionLength, inhibitionRadius, receptiveFieldRadius int) Topology {
	return Topology{
		InputWidth: inputLength, InputHeight: 1,
		RegionWidth: regionLength, RegionHeight: 1,
		InhibitionRadius: inhibitionRadius, ReceptiveFieldRadius: receptiveFieldRadius,
	}
}

// ColumnCoord returns the 2D grid coordinate of column index c.
func (t Topology) ColumnCoord(c int) (x, y int) {
	return c % t.RegionWidth, c / t.RegionWidth
}

// InputCoord returns the 2D grid coordinate of input bit index i.
func (t Topology) InputCoord(i int) (x, y int) {
	return i % t.InputWidth, i / t.InputWidth
}

// ProjectColumnToInput maps a column's grid position onto the input
// grid, proportionally scaling by the ratio of region to input extents —
// the centre a column's receptive field is built around when
// ReceptiveFieldRadius >= 0.
func (t Topology) ProjectColumnToInput(c int) (x, y int) {
	cx, cy := t.ColumnCoord(c)
	x = cx * t.InputWidth / maxInt(t.RegionWidth, 1)
	y = cy * t.InputHeight / maxInt(t.RegionHeight, 1)
	return
}

// Neighbors returns the column indices within radius of column c on the
// region grid (Chebyshev distance, a square neighbourhood), including c
// itself. radius < 0 means global inhibition: every column is a
// neighbour of every other, spec.md §4.1.
func (t Topology) Neighbors(c, radius int) []int {
	if radius < 0 {
		all := make([]int, t.Columns())
		for i := range all {
			all[i] = i
		}
		return all
	}
	cx, cy := t.ColumnCoord(c)
	var out []int
	for dy := -radius; dy <= radius; dy++ {
		ny := cy + dy
		if ny < 0 || ny >= t.RegionHeight {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			nx := cx + dx
			if nx < 0 || nx >= t.RegionWidth {
				continue
			}
			out = append(out, ny*t.RegionWidth+nx)
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Serialize ported from CLTopology::serialize: writes the constants to a
// single source line so any line numbers the kernel compiler reports
// stay valid.
func (t Topology) Serialize() string {
	return fmt.Sprintf(
		"constant int INPUT_WIDTH = %d;constant int INPUT_HEIGHT = %d;"+
			"constant int REGION_WIDTH = %d;constant int REGION_HEIGHT = %d;"+
			"constant int INHIBITION_RADIUS = %d;constant int RECEPTIVE_FIELD_RADIUS = %d;",
		t.InputWidth, t.InputHeight, t.RegionWidth, t.RegionHeight,
		t.InhibitionRadius, t.ReceptiveFieldRadius)
}
