// SPDX-License-Identifier: MPL-2.0

// Package staleness decides whether a producer activation must run by
// comparing modification times of its inputs and outputs.
package staleness

import (
	"fmt"
	"time"

	"rcbuild/pkg/fstime"
	"rcbuild/pkg/producer"
)

const (
	// ReasonUpToDate means every output is newer than or as new as every input.
	ReasonUpToDate Reason = "up-to-date"
	// ReasonMissingOutput means at least one output does not exist.
	ReasonMissingOutput Reason = "missing-output"
	// ReasonInputsNewer means some input was modified after the oldest output.
	ReasonInputsNewer Reason = "inputs-newer"
	// ReasonForced means a force flag covers one of the producer's categories.
	ReasonForced Reason = "forced"
)

type (
	// Reason explains a Verdict.
	Reason string

	// Verdict is the oracle's answer for one activation.
	Verdict struct {
		Due    bool
		Reason Reason
		// Newest is the newest input time considered (zero when not compared).
		Newest time.Time
		// Oldest is the oldest output time considered (zero when not compared).
		Oldest time.Time
	}

	// Oracle compares input and output timestamps on FS.
	Oracle struct {
		// FS is the project tree.
		FS fstime.FS
		// Force lists categories that bypass timestamp comparison.
		Force []producer.Category
		// ToolModTime is the build tool's own modification time. It is an
		// extra input for directory-scoped publication (see DirDue).
		ToolModTime time.Time
		// Ignore lists directory names skipped when scanning aggregate inputs.
		Ignore []string
	}
)

// Due decides whether an activation with the given inputs and outputs must
// run. Any missing output makes it due. Otherwise it is due when the newest
// input (directories scanned recursively) is strictly newer than the oldest
// output. A missing input is an I/O error.
func (o *Oracle) Due(inputs, outputs []string, categories []producer.Category) (Verdict, error) {
	for _, out := range outputs {
		ok, err := fstime.Exists(o.FS, out)
		if err != nil {
			return Verdict{}, fmt.Errorf("stat output %s: %w", out, err)
		}
		if !ok {
			return Verdict{Due: true, Reason: ReasonMissingOutput}, nil
		}
	}

	if o.forced(categories) {
		return Verdict{Due: true, Reason: ReasonForced}, nil
	}

	var newest time.Time
	for _, in := range inputs {
		t, err := fstime.Newest(o.FS, in, o.Ignore...)
		if err != nil {
			return Verdict{}, fmt.Errorf("stat input %s: %w", in, err)
		}
		if t.After(newest) {
			newest = t
		}
	}

	var oldest time.Time
	for i, out := range outputs {
		t, err := fstime.Oldest(o.FS, out)
		if err != nil {
			return Verdict{}, fmt.Errorf("stat output %s: %w", out, err)
		}
		if i == 0 || t.Before(oldest) {
			oldest = t
		}
	}

	v := Verdict{Newest: newest, Oldest: oldest, Reason: ReasonUpToDate}
	if newest.After(oldest) {
		v.Due = true
		v.Reason = ReasonInputsNewer
	}
	return v, nil
}

// DirDue decides whether a source directory must be republished to output.
// It is due when output is missing, or when the newer of ToolModTime and the
// newest entry under source is strictly newer than the output directory's
// own modification time.
func (o *Oracle) DirDue(source, output string) (Verdict, error) {
	ok, err := fstime.Exists(o.FS, output)
	if err != nil {
		return Verdict{}, fmt.Errorf("stat output %s: %w", output, err)
	}
	if !ok {
		return Verdict{Due: true, Reason: ReasonMissingOutput}, nil
	}

	newest, err := fstime.Newest(o.FS, source, o.Ignore...)
	if err != nil {
		return Verdict{}, fmt.Errorf("stat input %s: %w", source, err)
	}
	if o.ToolModTime.After(newest) {
		newest = o.ToolModTime
	}

	outTime, err := fstime.ModTime(o.FS, output)
	if err != nil {
		return Verdict{}, fmt.Errorf("stat output %s: %w", output, err)
	}

	v := Verdict{Newest: newest, Oldest: outTime, Reason: ReasonUpToDate}
	if newest.After(outTime) {
		v.Due = true
		v.Reason = ReasonInputsNewer
	}
	return v, nil
}

func (o *Oracle) forced(categories []producer.Category) bool {
	for _, c := range categories {
		for _, f := range o.Force {
			if c == f {
				return true
			}
		}
	}
	return false
}
