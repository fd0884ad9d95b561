// SPDX-License-Identifier: MPL-2.0

// Package build runs one incremental pass over a project tree.
//
// The executor walks the tree once, asks the producer registry which
// producers claim each file, resolves their outputs and extra inputs, and
// consults the staleness oracle before invoking a transform. Activations
// whose output sets overlap are grouped and run sequentially; independent
// groups may run in parallel. Groups that read another group's outputs are
// ordered after it.
package build
