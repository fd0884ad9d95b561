// SPDX-License-Identifier: MPL-2.0

// Package postprocess holds the steps that run once the producers are done:
// plugin publication, the calculator index page, pre-compressed text assets
// and timestamp normalization of the output tree.
package postprocess
