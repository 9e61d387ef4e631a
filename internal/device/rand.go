// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import "math"

// Seed is the host-supplied (u32, u32) randomness seed passed into any
// kernel invocation needing randomness (refine, init, active-state
// synapse sampling), per Design Note "PRNG inside kernels": no kernel
// relies on a device-side stateful RNG, every invocation is reseeded by
// the host.
type Seed [2]uint32

// Rand is a counter-based pseudo-random stream: its output is a pure
// function of (Seed, work item index, draw index), so the same seed fed
// to the same work item always reproduces the same sequence regardless
// of which backend executed it. This is a simplified, Go-native stand-in
// for the Philox4x32 counter-based generator gosl's slrand package
// documents (itself chosen over a stateful RNG for the same reason: GPU
// kernels have no safe place to keep RNG state between invocations).
type Rand struct {
	seed  Seed
	item  uint32
	draws uint32
}

// ForItem returns the Rand substream for work item i under seed.
func ForItem(seed Seed, item int) *Rand {
	return &Rand{seed: seed, item: uint32(item)}
}

// splitmix32 is the mixing step; cheap, good avalanche, no state beyond
// its single input, suitable for a counter-based generator.
func splitmix32(x uint32) uint32 {
	x += 0x9e3779b9
	x = (x ^ (x >> 16)) * 0x21f0aaad
	x = (x ^ (x >> 15)) * 0x735a2d97
	x = x ^ (x >> 15)
	return x
}

func (r *Rand) next() uint32 {
	r.draws++
	h := r.seed[0] ^ (r.seed[1] * 0x9e3779b9) ^ (r.item * 0x85ebca6b) ^ (r.draws * 0xc2b2ae35)
	return splitmix32(h)
}

// Float32 returns a uniform value in [0, 1).
func (r *Rand) Float32() float32 {
	return float32(r.next()>>8) / float32(1<<24)
}

// Float32Range returns a uniform value in [lo, hi).
func (r *Rand) Float32Range(lo, hi float32) float32 {
	return lo + r.Float32()*(hi-lo)
}

// Intn returns a uniform value in [0, n).
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.next() % uint32(n))
}

// NormFloat32 draws from Normal(mean, std) via Box-Muller, consuming two
// uniform draws.
func (r *Rand) NormFloat32(mean, std float32) float32 {
	u1 := math.Max(float64(r.Float32()), 1e-12)
	u2 := float64(r.Float32())
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + std*float32(z)
}

// NormFloat32Clamped draws from Normal(mean, std) and clamps into [lo, hi],
// the initialization rule spec.md §4.1 specifies for proximal synapse
// permanence: clamp(Normal(0.2, 0.2), 0, 1).
func (r *Rand) NormFloat32Clamped(mean, std, lo, hi float32) float32 {
	v := r.NormFloat32(mean, std)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
