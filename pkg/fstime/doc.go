// SPDX-License-Identifier: MPL-2.0

// Package fstime provides modification-time queries over directory trees,
// plus the small set of host file operations (copy, touch) whose effect on
// those times the build relies on.
//
// Queries are iterative (explicit directory stack) and operate on an [FS] so
// tests can inject fixed timestamps through testing/fstest.MapFS instead of
// touching disk.
package fstime
