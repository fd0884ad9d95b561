// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks over the hot paths of a build pass,
// for profile-guided optimization:
//   - resource list parsing, normalization and validation
//   - cached resource list lookups
//   - the full pass on a fresh tree and on an up-to-date tree
//
// To generate a profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
