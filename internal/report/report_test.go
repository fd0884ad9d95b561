// SPDX-License-Identifier: MPL-2.0

package report

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"rcbuild/internal/build"
	"rcbuild/internal/site"
	"rcbuild/internal/staleness"
)

func TestMarkdown(t *testing.T) {
	t.Parallel()

	res := &site.Result{
		Summary: &build.Summary{
			Matched:  5,
			Invoked:  2,
			Skipped:  2,
			Duration: 1234 * time.Microsecond,
			Built: []build.Record{
				{Producer: "item image", Path: "resource_lists/b/images/x.png", Reason: staleness.ReasonMissingOutput},
				{Producer: "calculator page", Path: "resource_lists/a/resources.yaml", Reason: staleness.ReasonInputsNewer},
			},
			Failures: []build.Failure{{Producer: "copy ads.txt", Path: "core/ads.txt", Err: errors.New("permission denied")}},
		},
		Calculators: []string{"a", "b"},
		Plugins:     []string{"b"},
		IndexBuilt:  true,
		Compressed:  3,
		Errors:      []error{errors.New("compress output: disk full")},
	}

	md := Markdown(res)
	for _, want := range []string{
		"| 5 | 2 | 2 | 1 | 1ms |",
		"- `resource_lists/a/resources.yaml` via calculator page (inputs-newer)\n- `resource_lists/b/images/x.png` via item image (missing-output)",
		"- `core/ads.txt` via copy ads.txt: permission denied",
		"- Calculators: a, b",
		"- Plugins published: b",
		"- Index page rendered",
		"- Compressed files: 3",
		"- **Error:** compress output: disk full",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdown_TruncatesLongLists(t *testing.T) {
	t.Parallel()

	sum := &build.Summary{}
	for i := range MaxListed + 7 {
		sum.Built = append(sum.Built, build.Record{Producer: "p", Path: fmt.Sprintf("f%03d", i)})
	}
	md := Markdown(&site.Result{Summary: sum})
	if !strings.Contains(md, "... and 7 more") {
		t.Errorf("long list not truncated:\n%s", md)
	}
	if strings.Contains(md, fmt.Sprintf("f%03d", MaxListed)) {
		t.Error("entry past the cap was listed")
	}
}

func TestMarkdown_EmptyResult(t *testing.T) {
	t.Parallel()

	md := Markdown(&site.Result{})
	if !strings.Contains(md, "| 0 | 0 | 0 | 0 | 0s |") {
		t.Errorf("empty report:\n%s", md)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	out, err := Render(&site.Result{Calculators: []string{"factorio"}}, "notty")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(out, "Build summary") || !strings.Contains(out, "factorio") {
		t.Errorf("rendered report:\n%s", out)
	}
}
