// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package htmerr defines the error kinds the core engine surfaces to
// callers (spec.md §7): NoDevice, KernelBuildFailure, InvalidShape and
// BackendError. All errors that leave the engine funnel through a single
// *Error value carrying one of these kinds; none is retried internally.
package htmerr

import (
	"errors"
	"fmt"

	"goki.dev/enums"
)

// Kind enumerates the error kinds a Region, SpatialPooler or
// TemporalPooler can return.
type Kind int32

const (
	// NoDevice means no parallel compute device was available at
	// Context construction.
	NoDevice Kind = iota
	// KernelBuildFailure means kernel source compilation (or, on the GPU
	// backend, compute-shader-module creation) failed. The raw build log
	// is carried in Error.Message.
	KernelBuildFailure
	// InvalidShape means an input or output buffer did not match the
	// topology it was passed against.
	InvalidShape
	// BackendError means a kernel enqueue or buffer transfer failed.
	// Error.Code carries the translated backend status code.
	BackendError
	KindN
)

var _KindValues = []Kind{NoDevice, KernelBuildFailure, InvalidShape, BackendError}

var _KindMap = map[Kind]string{
	NoDevice:           "NoDevice",
	KernelBuildFailure: "KernelBuildFailure",
	InvalidShape:       "InvalidShape",
	BackendError:       "BackendError",
}

var _KindValueMap = map[string]Kind{
	"NoDevice":           NoDevice,
	"KernelBuildFailure": KernelBuildFailure,
	"InvalidShape":       InvalidShape,
	"BackendError":       BackendError,
}

var _KindDescMap = map[Kind]string{
	NoDevice:           "no parallel compute device available at construction",
	KernelBuildFailure: "kernel source failed to compile",
	InvalidShape:       "input or output buffer does not match topology",
	BackendError:       "a kernel enqueue or buffer transfer failed",
}

// String returns the string representation of this Kind value.
func (k Kind) String() string { return enums.String(k, _KindMap) }

// SetString sets the Kind value from its string representation.
func (k *Kind) SetString(s string) error { return enums.SetString(k, s, _KindValueMap, "Kind") }

// Int64 returns the Kind value as an int64.
func (k Kind) Int64() int64 { return int64(k) }

// SetInt64 sets the Kind value from an int64.
func (k *Kind) SetInt64(in int64) { *k = Kind(in) }

// Desc returns the description of the Kind value.
func (k Kind) Desc() string { return enums.Desc(k, _KindDescMap) }

// Values returns all possible Kind values.
func (k Kind) Values() []enums.Enum { return enums.Values(_KindValues) }

// Error is the single error type every engine operation returns.
type Error struct {
	Kind    Kind
	Code    int    // backend status code, only meaningful for BackendError
	Message string // human readable detail, e.g. a kernel build log
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("corticl: %s (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("corticl: %s: %s", e.Kind, e.Message)
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewBackend builds a BackendError carrying a translated status code.
func NewBackend(code int, format string, args ...any) *Error {
	return &Error{Kind: BackendError, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err (or anything it wraps) is a *Error of kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
