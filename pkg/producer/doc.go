// SPDX-License-Identifier: MPL-2.0

// Package producer defines the declarative build step used by the incremental
// executor and the registry that matches source paths to producers.
//
// A Producer claims source paths through ordered regular expressions, derives
// its output paths from the match, and transforms the matched input into
// those outputs. A single source path may be claimed by several producers.
package producer
