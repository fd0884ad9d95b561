// SPDX-License-Identifier: MPL-2.0

// Package producers declares the producers that build a resource calculator
// site: shared core assets, the compiled and minified calculator script, one
// page per calculator and its item images.
package producers
