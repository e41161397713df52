// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import "errors"

var (
	// ErrNoInput is returned when a nil polynomial is passed to a run.
	ErrNoInput = errors.New("nil input polynomial")

	// ErrRingMismatch is returned when the inputs of one run live in
	// different polynomial rings.
	ErrRingMismatch = errors.New("input polynomials belong to different rings")

	// ErrTerminated is returned when a run stops before reaching a fixpoint.
	ErrTerminated = errors.New("groebner run terminated")

	// ErrNotField is returned by operations that need field coefficients.
	ErrNotField = errors.New("coefficient ring is not a field")

	// ErrNotSolvable is returned by left and two-sided operations on rings
	// not built by poly.NewSolvableRing.
	ErrNotSolvable = errors.New("ring is not solvable")

	// ErrInvalidThreads is returned when a parallel run is configured with
	// fewer than one worker.
	ErrInvalidThreads = errors.New("thread count must be positive")
)
