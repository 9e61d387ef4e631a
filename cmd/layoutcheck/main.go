// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command layoutcheck loads the packages named on the command line
// (defaulting to the two packages that define kernel work-item element
// types) and reports every struct whose layout would be unsafe to hand
// to a one-work-item-per-element GPU kernel: a field that isn't a
// 32-bit scalar, or a total size that isn't a multiple of 16 bytes.
//
// Every named struct in each package is checked, host-side types such
// as Pooler and Stats included, so both default packages report
// problems: spatial.Column (24 bytes) and spatial.Synapse (8 bytes) are
// all 32-bit fields but are not padded to a multiple of 16 bytes, and
// temporal's Cell/Segment/Synapse are composite host-side records
// dispatched per-column rather than per-element (see DESIGN.md).
// Reported problems are printed, not turned into a non-zero exit.
package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/tools/go/packages"

	"github.com/Jontte/CortiCL/internal/layoutcheck"
)

func main() {
	patterns := os.Args[1:]
	if len(patterns) == 0 {
		patterns = []string{
			"github.com/Jontte/CortiCL/internal/spatial",
			"github.com/Jontte/CortiCL/internal/temporal",
		}
	}

	cfg := &packages.Config{Mode: packages.NeedTypes | packages.NeedTypesSizes | packages.NeedName}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		log.Fatalf("layoutcheck: load failed: %v", err)
	}

	total := 0
	for _, pkg := range pkgs {
		fmt.Printf("%s\n", pkg.PkgPath)
		problems := layoutcheck.CheckPackage(pkg)
		for _, p := range problems {
			fmt.Printf("  %s: %s\n", p.TypeName, p.Detail)
		}
		total += len(problems)
	}
	if total > 0 {
		fmt.Printf("\n%d layout problem(s) found\n", total)
	}
}
