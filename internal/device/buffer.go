// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import "github.com/Jontte/CortiCL/internal/htmerr"

// Buffer is a paired host-shadow / device-memory buffer of fixed length,
// ported from CLBuffer<T> (clbuffer.h). Every pooler buffer (columns,
// proximal synapses, cells, segments, distal synapses) is a Buffer of the
// corresponding struct-of-flat-array element type.
type Buffer[T any] struct {
	ctx    *Context
	shadow []T
}

// NewBuffer allocates a Buffer of the given length, zero-valued, exactly
// as CLBuffer<T>'s constructor resizes its std::vector<T> m_data.
func NewBuffer[T any](ctx *Context, length int) *Buffer[T] {
	return &Buffer[T]{ctx: ctx, shadow: make([]T, length)}
}

// Upload pushes the host shadow to the device, CLBuffer<T>::enqueueWrite().
func (b *Buffer[T]) Upload(blocking bool) error {
	return b.ctx.backend.Upload(b.shadow, blocking)
}

// UploadFrom pushes an external slice to the device and leaves the host
// shadow holding it, CLBuffer<T>::enqueueWrite(blocking, data).
func (b *Buffer[T]) UploadFrom(blocking bool, data []T) error {
	if len(data) != len(b.shadow) {
		return htmerr.New(htmerr.InvalidShape, "buffer upload length mismatch: got %d want %d", len(data), len(b.shadow))
	}
	copy(b.shadow, data)
	return b.ctx.backend.Upload(b.shadow, blocking)
}

// Download pulls device memory into the host shadow, CLBuffer<T>::enqueueRead().
func (b *Buffer[T]) Download(blocking bool) error {
	return b.ctx.backend.Download(b.shadow, blocking)
}

// DownloadTo pulls device memory into an external slice,
// CLBuffer<T>::enqueueRead(blocking, data).
func (b *Buffer[T]) DownloadTo(blocking bool, data []T) error {
	if len(data) != len(b.shadow) {
		return htmerr.New(htmerr.InvalidShape, "buffer download length mismatch: got %d want %d", len(data), len(b.shadow))
	}
	if err := b.ctx.backend.Download(b.shadow, blocking); err != nil {
		return err
	}
	copy(data, b.shadow)
	return nil
}

// At returns element i of the host shadow, CLBuffer<T>::operator[].
func (b *Buffer[T]) At(i int) T { return b.shadow[i] }

// Set assigns element i of the host shadow, CLBuffer<T>::operator[].
func (b *Buffer[T]) Set(i int, v T) { b.shadow[i] = v }

// Len returns the buffer length, CLBuffer<T>::size().
func (b *Buffer[T]) Len() int { return len(b.shadow) }

// Slice exposes the host shadow directly for kernels that operate over
// the whole buffer (the flat struct-of-arrays layout Design Note calls
// for) rather than one element at a time.
func (b *Buffer[T]) Slice() []T { return b.shadow }
