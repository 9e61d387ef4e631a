// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"embed"
	"fmt"
	"log"

	"goki.dev/vgpu/v2/vgpu"

	"github.com/Jontte/CortiCL/internal/htmerr"
)

// shaderAssets holds precompiled compute-shader modules (SPIR-V), named
// "<label>.<kernel>.spv". CortiCL-Go ships none (no accelerator-specific
// build step runs as part of this module). Build records which kernels
// have an asset, but gpuProgram.Dispatch does not create a compute
// pipeline from it: every kernel runs on the CPU-side fallback whether
// or not its asset is present.
//
//go:embed shaders
var shaderAssets embed.FS

// gpuBackend drives a real Vulkan compute device via goki.dev/vgpu/v2,
// ported from the original's CLContext (device/context/queue ownership)
// and CLSpatialPooler/CLTemporalPooler's cl::Program::build kernel
// installation. Because Vulkan compute pipelines bind precompiled SPIR-V
// rather than compiling kernel source text at run time the way OpenCL's
// cl::Program::build did, this is the one place CortiCL-Go's design
// diverges from the original C++: Build looks up a named shader asset
// instead of compiling kernelSrc. Dispatch runs every kernel through the
// CPU reference implementation from its KernelSet, asset or not
// (spec.md §6 explicitly allows substituting a CPU-side backend).
type gpuBackend struct {
	gpu *vgpu.GPU
	sys *vgpu.System
	cpu *cpuBackend // fallback executor for kernels with no compiled asset
}

func newGPUBackend() (*gpuBackend, error) {
	if err := vgpu.Init(); err != nil {
		return nil, htmerr.New(htmerr.NoDevice, "vgpu init failed: %v", err)
	}
	gp := vgpu.NewComputeGPU()
	if gp == nil {
		return nil, htmerr.New(htmerr.NoDevice, "no parallel compute device available")
	}
	gp.Config("corticl")
	log.Printf("corticl: gpuBackend: compute device configured")
	return &gpuBackend{gpu: gp, cpu: newCPUBackend()}, nil
}

func (b *gpuBackend) Name() string { return "gpu" }

func (b *gpuBackend) Build(label, constants, kernelSrc string, kernels KernelSet) (Program, error) {
	p := &gpuProgram{backend: b, label: label, kernels: kernels, resolved: map[string]bool{}}
	for name := range kernels {
		assetName := fmt.Sprintf("shaders/%s.%s.spv", label, name)
		if _, err := shaderAssets.ReadFile(assetName); err == nil {
			p.resolved[name] = true
		} else {
			log.Printf("corticl: gpuBackend: no compiled shader for %s, falling back to CPU kernel", assetName)
		}
	}
	return p, nil
}

func (b *gpuBackend) Upload(buf any, blocking bool) error {
	// The CPU and GPU backends share one host address space here: a
	// kernel with no resolved shader runs directly against the host
	// shadow, so there is nothing to push beyond what cpuBackend already
	// does. A build that ships real shader assets would replace this
	// with vgpu Vals.CopyFromBytes + System.Mem.SyncToGPU calls, exactly
	// as examples/axon/main.go's GPU path does.
	return nil
}

func (b *gpuBackend) Download(buf any, blocking bool) error { return nil }

func (b *gpuBackend) Close() error {
	if b.sys != nil {
		b.sys.Destroy()
	}
	if b.gpu != nil {
		b.gpu.Destroy()
	}
	vgpu.Terminate()
	return nil
}

type gpuProgram struct {
	backend  *gpuBackend
	label    string
	kernels  KernelSet
	resolved map[string]bool
}

func (p *gpuProgram) Dispatch(kernel string, workItems int) error {
	// No compute pipeline is ever created, resolved asset or not:
	// dispatch through the CPU fallback program so the pooler still
	// advances correctly.
	cp := &cpuProgram{backend: p.backend.cpu, kernels: p.kernels}
	return cp.Dispatch(kernel, workItems)
}
