// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for rcbuild.
//
// The root command runs a build. Subcommands inspect the configuration,
// normalize timestamps of a staged tree and deploy the output directory.
package cmd
