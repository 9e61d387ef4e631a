// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package device owns the compute context, the typed device buffer, and
// the backend abstraction the spatial and temporal poolers dispatch
// their kernels through. It is the Go rendering of CLContext/CLBuffer
// from the original CortiCL (clcontext.h, clbuffer.h).
package device

import (
	"sync"

	"github.com/emer/emergent/v2/timer"

	"github.com/Jontte/CortiCL/internal/htmerr"
)

// BackendPreference selects which Backend NewContext tries to construct.
type BackendPreference int

const (
	// PreferAuto tries the GPU backend first and silently falls back to
	// the CPU backend if no device is available.
	PreferAuto BackendPreference = iota
	// PreferGPU requires a real GPU compute device; NewContext returns
	// htmerr.NoDevice if none is available.
	PreferGPU
	// PreferCPU always uses the CPU goroutine-pool backend. Every test
	// in this module requests PreferCPU, since CI hosts are not
	// guaranteed a Vulkan-capable device.
	PreferCPU
)

// Context owns a chosen device, a context, and a command queue for the
// parallel backend (spec.md §2.1), rendered here as one Backend
// implementation shared by every Buffer and Program it creates.
type Context struct {
	backend Backend

	mu      sync.Mutex
	timings map[string]*timer.Time
}

// NewContext constructs a Context honoring pref, exactly as
// CLContext::CLContext() picks the first available OpenCL platform and
// device, except it can additionally fall back to a CPU-side backend.
func NewContext(pref BackendPreference) (*Context, error) {
	ctx := &Context{timings: map[string]*timer.Time{}}
	switch pref {
	case PreferCPU:
		ctx.backend = newCPUBackend()
		return ctx, nil
	case PreferGPU:
		gb, err := newGPUBackend()
		if err != nil {
			return nil, err
		}
		ctx.backend = gb
		return ctx, nil
	default: // PreferAuto
		if gb, err := newGPUBackend(); err == nil {
			ctx.backend = gb
			return ctx, nil
		}
		ctx.backend = newCPUBackend()
		return ctx, nil
	}
}

// BackendName reports which backend this Context ended up using.
func (c *Context) BackendName() string { return c.backend.Name() }

// Build installs one pooler's kernel program (CLSpatialPooler/
// CLTemporalPooler's cl::Program construction + cl::Kernel lookups).
func (c *Context) Build(label, constants, kernelSrc string, kernels KernelSet) (Program, error) {
	prog, err := c.backend.Build(label, constants, kernelSrc, kernels)
	if err != nil {
		return nil, htmerr.New(htmerr.KernelBuildFailure, "%s: %v", label, err)
	}
	return &timedProgram{ctx: c, label: label, inner: prog}, nil
}

func (c *Context) record(name string, d func() error) error {
	c.mu.Lock()
	t, ok := c.timings[name]
	if !ok {
		t = &timer.Time{}
		c.timings[name] = t
	}
	c.mu.Unlock()

	t.Start()
	err := d()
	t.Stop()
	return err
}

// PhaseTimings returns the cumulative wall-clock time spent dispatching
// each kernel so far, keyed "<label>.<kernel>" — a diagnostic in the
// spirit of examples/axon/main.go's cpuTmr/gpuTmr instrumentation, not a
// spec.md-mandated operation.
func (c *Context) PhaseTimings() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64, len(c.timings))
	for k, t := range c.timings {
		out[k] = t.TotalSecs()
	}
	return out
}

// timedProgram wraps a backend Program so every dispatch is timed
// without each backend having to instrument itself.
type timedProgram struct {
	ctx   *Context
	label string
	inner Program
}

func (p *timedProgram) Dispatch(kernel string, workItems int) error {
	name := p.label + "." + kernel
	return p.ctx.record(name, func() error {
		return p.inner.Dispatch(kernel, workItems)
	})
}

// Close releases the underlying backend's device resources.
func (c *Context) Close() error {
	return c.backend.Close()
}
