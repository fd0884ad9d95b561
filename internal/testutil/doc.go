// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers: a manually driven clock, project
// tree fixtures with controlled modification times, and a semaphore that
// bounds concurrent container-backed tests.
package testutil
