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

import "log/slog"

// Option configures an orchestrator.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	threads int
	minimal bool
}

func defaultOptions() options {
	return options{
		logger:  slog.Default(),
		threads: 2,
		minimal: true,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithThreads sets the number of parallel workers.
func WithThreads(n int) Option {
	return func(o *options) { o.threads = n }
}

// WithoutMinimize returns the raw basis instead of the minimal one.
func WithoutMinimize() Option {
	return func(o *options) { o.minimal = false }
}
