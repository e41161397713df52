// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package poly

import "errors"

// Sentinel errors for the poly package.
var (
	// ErrParse indicates a malformed polynomial expression.
	ErrParse = errors.New("invalid polynomial expression")

	// ErrUnknownVariable indicates a variable name not in the ring.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrTermOrder indicates an unknown term order name.
	ErrTermOrder = errors.New("unknown term order")

	// ErrRelation indicates a malformed commutation relation.
	ErrRelation = errors.New("invalid relation")

	// ErrRingMismatch indicates operands from incompatible rings.
	ErrRingMismatch = errors.New("ring mismatch")
)
