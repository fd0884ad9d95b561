// SPDX-License-Identifier: MPL-2.0

package config

import (
	"slices"

	"rcbuild/pkg/producer"
)

type (
	// Flags are the raw build flags as given on the command line.
	Flags struct {
		LimitFiles      []string
		Watch           bool
		Draft           bool
		NoUglifyJS      bool
		NoGzip          bool
		NoIndex         bool
		NoImageCompress bool
		NoPlugins       bool
		ForceHTML       bool
		ForceImage      bool
		Jobs            int
		Verbose         bool
	}

	// Options is the resolved, read-only view of one build invocation.
	// Build it with NewOptions and pass it by value.
	Options struct {
		limitFiles        []string
		watch             bool
		skipUglify        bool
		skipGzip          bool
		skipIndex         bool
		skipImageCompress bool
		skipPlugins       bool
		force             []producer.Category
		jobs              int
		verbose           bool
	}
)

// NewOptions resolves flags against cfg. Draft turns on every skip flag; a
// calculator subset disables the index page; a positive Jobs flag overrides
// the configured job count.
func NewOptions(cfg *Config, f Flags) Options {
	o := Options{
		limitFiles:        slices.Clone(f.LimitFiles),
		watch:             f.Watch,
		skipUglify:        f.NoUglifyJS || f.Draft,
		skipGzip:          f.NoGzip || f.Draft,
		skipIndex:         f.NoIndex || f.Draft || len(f.LimitFiles) > 0,
		skipImageCompress: f.NoImageCompress || f.Draft,
		skipPlugins:       f.NoPlugins || f.Draft,
		jobs:              cfg.Jobs,
		verbose:           f.Verbose,
	}
	if f.Jobs > 0 {
		o.jobs = f.Jobs
	}
	if o.jobs < 1 {
		o.jobs = 1
	}
	if f.ForceHTML {
		o.force = append(o.force, producer.CategoryHTML)
	}
	if f.ForceImage {
		o.force = append(o.force, producer.CategoryImage)
	}
	return o
}

// LimitFiles returns the calculators this run is restricted to. Empty means
// all of them.
func (o Options) LimitFiles() []string { return slices.Clone(o.limitFiles) }

// Includes reports whether calculator calc is part of this run.
func (o Options) Includes(calc string) bool {
	return len(o.limitFiles) == 0 || slices.Contains(o.limitFiles, calc)
}

func (o Options) Watch() bool             { return o.watch }
func (o Options) SkipUglify() bool        { return o.skipUglify }
func (o Options) SkipGzip() bool          { return o.skipGzip }
func (o Options) SkipIndex() bool         { return o.skipIndex }
func (o Options) SkipImageCompress() bool { return o.skipImageCompress }
func (o Options) SkipPlugins() bool       { return o.skipPlugins }
func (o Options) Jobs() int               { return o.jobs }
func (o Options) Verbose() bool           { return o.verbose }

// Force returns the categories rebuilt regardless of timestamps.
func (o Options) Force() []producer.Category { return slices.Clone(o.force) }
