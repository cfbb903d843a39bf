/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build version information.
package version

// Version is the current version of Skald Cast.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/skald_cast/internal/version.Version=X.Y.Z
var Version = "0.3.1"

// Name is the human-readable application name surfaced on /info.
const Name = "Skald Cast"
