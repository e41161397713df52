// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ring

import "errors"

// Sentinel errors for the ring package.
var (
	// ErrParse indicates a coefficient literal could not be read.
	ErrParse = errors.New("invalid coefficient literal")

	// ErrModulus indicates a modulus smaller than two.
	ErrModulus = errors.New("invalid modulus")

	// ErrComponents indicates a product literal with the wrong arity.
	ErrComponents = errors.New("wrong number of product components")
)
