// SPDX-License-Identifier: MPL-2.0

// Package resourcelist models a calculator's crafting data: resources, the
// recipes that produce them, and requirement groups.
//
// Parsing is best effort. Parse returns whatever could be decoded together
// with a list of token-level errors carrying YAML line and column, so one bad
// entry does not hide the rest of the document. Normalize rewrites shorthand
// recipes into their canonical form and must run once per fresh parse.
package resourcelist
