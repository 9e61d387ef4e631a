// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"runtime"
	"sync"

	"github.com/Jontte/CortiCL/internal/htmerr"
)

// cpuBackend is the CPU-side data-parallel substitute backend spec.md §6
// explicitly allows. It renders "one work item per column, kernels
// ordered by the host command queue" (spec.md §5) as a bounded
// goroutine-worker-pool dispatch followed by a WaitGroup barrier: the
// pool supplies the data-parallelism, the barrier supplies the
// happens-before edge to the next kernel. This is the backend every test
// in this module exercises.
type cpuBackend struct {
	workers int
}

func newCPUBackend() *cpuBackend {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return &cpuBackend{workers: n}
}

func (b *cpuBackend) Name() string { return "cpu" }

func (b *cpuBackend) Build(label, constants, kernelSrc string, kernels KernelSet) (Program, error) {
	return &cpuProgram{backend: b, kernels: kernels}, nil
}

func (b *cpuBackend) Upload(buf any, blocking bool) error   { return nil }
func (b *cpuBackend) Download(buf any, blocking bool) error { return nil }
func (b *cpuBackend) Close() error                          { return nil }

type cpuProgram struct {
	backend *cpuBackend
	kernels KernelSet
}

func (p *cpuProgram) Dispatch(kernel string, workItems int) error {
	fn, ok := p.kernels[kernel]
	if !ok {
		return htmerr.NewBackend(htmerr.StatusUnknown,
			"%s: dispatch: no kernel named %q in this program (%s)", p.backend.Name(), kernel, htmerr.StatusName(htmerr.StatusUnknown))
	}
	if workItems <= 0 {
		return nil
	}
	nw := p.backend.workers
	if nw > workItems {
		nw = workItems
	}
	var wg sync.WaitGroup
	chunk := (workItems + nw - 1) / nw
	for w := 0; w < nw; w++ {
		lo := w * chunk
		hi := lo + chunk
		if lo >= workItems {
			break
		}
		if hi > workItems {
			hi = workItems
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				fn(i)
			}
		}(lo, hi)
	}
	wg.Wait()
	return nil
}
