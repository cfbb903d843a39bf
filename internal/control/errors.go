/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package control holds the playback core: per-renderer integrators
// that drive and supervise playback, and the dispatcher that picks a
// renderer for each incoming command.
package control

import "errors"

// Sentinel errors of the command path. Anything not wrapping one of
// these is an upstream failure (renderer or media server misbehaving).
var (
	// ErrRequestInvalid marks commands rejected before any renderer
	// was touched.
	ErrRequestInvalid = errors.New("request invalid")
	// ErrCannotBeHandled marks commands no renderer could take.
	ErrCannotBeHandled = errors.New("request cannot be handled")
	// ErrInternal marks invariant violations in the playback core.
	ErrInternal = errors.New("internal invariant violated")
)
