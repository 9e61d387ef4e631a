// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package layoutcheck validates that the struct-of-flat-arrays element
// types dispatched one-per-work-item to a kernel (spatial.Column,
// spatial.Synapse, and their temporal equivalents) use only 32-bit
// fields and size out to a multiple of 16 bytes — the GPU-struct
// layout Design Note mandates (spec.md §9, "Struct-of-flat-arrays").
// Adapted from emer-gosl's alignsl, which performed the identical
// check for gosl-translated HLSL structs.
package layoutcheck

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/packages"
)

// Sizes is the target architecture's type-size table, set once per
// CheckPackage call from the loaded package's own TypesSizes.
var Sizes types.Sizes

// Problem is one layout violation found in a single struct type.
type Problem struct {
	TypeName string
	Detail   string
}

// CheckStruct reports every basic-typed field of st that is not
// [U]Int32/Float32, every array whose basic element type is not a
// 32-bit or 8-bit integer or Float32, and every field of another kind
// (pointer, slice, map, ...), plus a final problem if the whole
// struct's size is not a multiple of 16 bytes. Nested struct fields and
// arrays of non-basic elements are not inspected.
func CheckStruct(name string, st *types.Struct) []Problem {
	var problems []Problem
	var flds []*types.Var
	nf := st.NumFields()
	if nf == 0 {
		return nil
	}
	for i := 0; i < nf; i++ {
		fl := st.Field(i)
		flds = append(flds, fl)
		ut := fl.Type().Underlying()
		switch t := ut.(type) {
		case *types.Basic:
			kind := t.Kind()
			if kind != types.Uint32 && kind != types.Int32 && kind != types.Float32 {
				problems = append(problems, Problem{
					TypeName: name,
					Detail:   fmt.Sprintf("field %s: basic type != [U]Int32 or Float32: %s", fl.Name(), t.String()),
				})
			}
		case *types.Struct:
			// Nested structs are assumed to be checked on their own.
		case *types.Array:
			elem := t.Elem().Underlying()
			if bt, isBasic := elem.(*types.Basic); isBasic {
				kind := bt.Kind()
				if kind != types.Uint32 && kind != types.Int32 && kind != types.Float32 &&
					kind != types.Uint8 && kind != types.Int8 {
					problems = append(problems, Problem{
						TypeName: name,
						Detail:   fmt.Sprintf("field %s: array element type unsupported: %s", fl.Name(), bt.String()),
					})
				}
			}
		default:
			problems = append(problems, Problem{
				TypeName: name,
				Detail:   fmt.Sprintf("field %s: unsupported type: %s", fl.Name(), fl.Type().String()),
			})
		}
	}
	offs := Sizes.Offsetsof(flds)
	last := Sizes.Sizeof(flds[nf-1].Type())
	totsz := int(offs[nf-1] + last)
	if totsz%16 != 0 {
		problems = append(problems, Problem{
			TypeName: name,
			Detail:   fmt.Sprintf("total size %d is not a multiple of 16", totsz),
		})
	}
	return problems
}

// CheckPackage walks every named struct type in pkg's top-level scope
// and reports layout problems, ported from alignsl.CheckPackage.
func CheckPackage(pkg *packages.Package) []Problem {
	Sizes = pkg.TypesSizes
	return checkScope(pkg.Types.Scope())
}

func checkScope(sc *types.Scope) []Problem {
	var problems []Problem
	for _, nm := range sc.Names() {
		ob := sc.Lookup(nm)
		tp := ob.Type()
		if tp == nil {
			continue
		}
		nt, is := tp.(*types.Named)
		if !is {
			continue
		}
		ut := nt.Underlying()
		st, is := ut.(*types.Struct)
		if !is {
			continue
		}
		problems = append(problems, CheckStruct(nt.Obj().Name(), st)...)
	}
	return problems
}
