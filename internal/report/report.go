// SPDX-License-Identifier: MPL-2.0

// Package report renders the outcome of a build pass as markdown, styled for
// the terminal with glamour.
package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"rcbuild/internal/build"
	"rcbuild/internal/site"
)

// MaxListed caps the built and failed entries listed individually.
const MaxListed = 50

var render = glamour.Render

// Markdown describes res as a markdown document: counters, the activations
// that ran, producer failures and post-processing results.
func Markdown(res *site.Result) string {
	var sb strings.Builder
	sb.WriteString("# Build summary\n\n")

	sum := res.Summary
	if sum == nil {
		sum = &build.Summary{}
	}
	sb.WriteString("| Matched | Built | Up to date | Failed | Duration |\n")
	sb.WriteString("|---:|---:|---:|---:|---:|\n")
	fmt.Fprintf(&sb, "| %d | %d | %d | %d | %s |\n\n",
		sum.Matched, sum.Invoked, sum.Skipped, len(sum.Failures), sum.Duration.Round(time.Millisecond))

	if len(sum.Built) > 0 {
		sb.WriteString("## Built\n\n")
		built := slices.Clone(sum.Built)
		slices.SortStableFunc(built, func(a, b build.Record) int { return strings.Compare(a.Path, b.Path) })
		for i, r := range built {
			if i == MaxListed {
				fmt.Fprintf(&sb, "- ... and %d more\n", len(built)-MaxListed)
				break
			}
			fmt.Fprintf(&sb, "- `%s` via %s (%s)\n", r.Path, r.Producer, r.Reason)
		}
		sb.WriteString("\n")
	}

	if len(sum.Failures) > 0 {
		sb.WriteString("## Failures\n\n")
		for i, f := range sum.Failures {
			if i == MaxListed {
				fmt.Fprintf(&sb, "- ... and %d more\n", len(sum.Failures)-MaxListed)
				break
			}
			fmt.Fprintf(&sb, "- `%s` via %s: %v\n", f.Path, f.Producer, f.Err)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Site\n\n")
	if len(res.Calculators) > 0 {
		fmt.Fprintf(&sb, "- Calculators: %s\n", strings.Join(res.Calculators, ", "))
	}
	if len(res.Plugins) > 0 {
		fmt.Fprintf(&sb, "- Plugins published: %s\n", strings.Join(res.Plugins, ", "))
	}
	if res.IndexBuilt {
		sb.WriteString("- Index page rendered\n")
	}
	fmt.Fprintf(&sb, "- Compressed files: %d\n", res.Compressed)
	for _, err := range res.Errors {
		fmt.Fprintf(&sb, "- **Error:** %v\n", err)
	}
	return sb.String()
}

// Render styles the markdown report with the named glamour style ("dark",
// "light", "notty", ...).
func Render(res *site.Result, style string) (string, error) {
	return render(Markdown(res), style)
}
