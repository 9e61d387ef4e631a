// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package corticl implements a two-stage Hierarchical Temporal Memory (HTM)
cortical learning engine: a spatial pooler that maps dense binary input
patterns into sparse, noise-tolerant column activations, and a temporal
pooler that learns sequences over those activations and predicts which
columns will be active next.

Every column, cell, segment, and synapse advances concurrently per time
step. The engine is built around a compute-kernel pipeline (package
internal/device) with a GPU-device backend and a CPU goroutine-pool
backend; both currently execute every kernel on the CPU goroutine pool.
A host-side Region orchestrates the two poolers.

	ctx, err := device.NewContext(device.PreferAuto)
	topo := topology.Line(80, 80, 5, 5)
	args := topology.DefaultArgs()
	reg, err := corticl.NewRegion(ctx, topo, args)

	out := make([]byte, topo.Columns())
	err = reg.Write(input, out, true)

See DESIGN.md for how each package fits together.
*/
package corticl
