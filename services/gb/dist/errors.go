// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dist

import "errors"

var (
	// ErrClosed is returned by a Conn after Close.
	ErrClosed = errors.New("connection closed")

	// ErrSetupMismatch is returned by a worker whose ring or variant does
	// not match the coordinator's.
	ErrSetupMismatch = errors.New("setup does not match local ring")

	// ErrProtocol is returned for out-of-order or malformed messages.
	ErrProtocol = errors.New("protocol violation")

	// ErrDecode is returned when a wire polynomial cannot be decoded.
	ErrDecode = errors.New("cannot decode polynomial")

	// ErrAlreadyRun is returned when GB is called twice on one coordinator.
	ErrAlreadyRun = errors.New("coordinator already ran")

	// ErrNotListening is returned by Addr before Start.
	ErrNotListening = errors.New("coordinator is not listening")

	// ErrTaskTimeout is the reason a worker is dropped after holding a
	// task past the pair timeout.
	ErrTaskTimeout = errors.New("task held past the pair timeout")

	// ErrBackpressure is the reason a worker is dropped when its outbox
	// is full.
	ErrBackpressure = errors.New("worker outbox full")
)
