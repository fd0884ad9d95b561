// SPDX-License-Identifier: MPL-2.0

// Package config loads the build configuration using Viper with CUE as the
// file format.
//
// The optional rcbuild.cue file in the project root is validated against an
// embedded CUE schema (config_schema.cue) before being merged over the
// defaults. Environment variables prefixed with RCBUILD_ override file
// values (RCBUILD_JOBS, RCBUILD_WATCH_POLL, ...).
//
// Options is the immutable per-run view built from command-line flags.
package config
