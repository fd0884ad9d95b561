// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rcbuild/internal/config"
	"rcbuild/internal/rlcache"
	"rcbuild/internal/site"
	"rcbuild/internal/testutil"
	"rcbuild/pkg/resourcelist"
)

const pageTemplate = `<h1>{{.DisplayName}}</h1>
{{range .Resources}}<div class="{{.SimpleName}}">{{.Name}}{{range .Recipes}}{{range .Requirements}} {{.SimpleName}}={{.Quantity}}{{end}}{{end}}</div>
{{end}}`

// resourceList returns a resources.yaml with n resources, each crafted from
// the two resources before it.
func resourceList(n int) string {
	var sb strings.Builder
	sb.WriteString("index_page_display_name: Benchmark\n")
	sb.WriteString("recipe_types:\n  Raw Resource: \"Mine {IN_CHAINS}\"\n  Assembler: \"Craft {IN_CHAINS}\"\n")
	sb.WriteString("resources:\n")
	for i := range n {
		fmt.Fprintf(&sb, "  Item %d:\n    recipes:\n", i)
		if i < 2 {
			sb.WriteString("      - recipe_type: Raw Resource\n")
			continue
		}
		fmt.Fprintf(&sb, "      - recipe_type: Assembler\n        output: 2\n        requirements:\n          Item %d: 1\n          Item %d: 3\n", i-1, i-2)
	}
	return sb.String()
}

// writeSite lays out calcs calculators of size resources each.
func writeSite(b *testing.B, root string, calcs, size int) {
	b.Helper()
	past := time.Now().Add(-time.Hour)
	files := map[string]string{
		"core/calculator.html": pageTemplate,
		"core/index.html":      `{{range .Calculators}}<a href="{{.Path}}/">{{.DisplayName}}</a>{{end}}`,
		"core/calculator.css":  "body{}",
	}
	for i := range calcs {
		files[fmt.Sprintf("resource_lists/calc%02d/resources.yaml", i)] = resourceList(size)
		files[fmt.Sprintf("resource_lists/calc%02d/plugins/p.js", i)] = "void 0;"
	}
	testutil.WriteTree(b, root, files, past)
}

func newSession(b *testing.B, root string) *site.Session {
	b.Helper()
	cfg := config.DefaultConfig()
	cfg.Commands.TypeScript = ""
	cfg.Commands.Uglify = ""
	cfg.Jobs = 4
	sess, err := site.NewSession(root, cfg, config.NewOptions(cfg, config.Flags{}), nil)
	if err != nil {
		b.Fatal(err)
	}
	sess.ToolModTime = time.Time{}
	return sess
}

// BenchmarkResourceListLoad benchmarks parsing, normalizing and validating
// a resource list.
func BenchmarkResourceListLoad(b *testing.B) {
	data := []byte(resourceList(200))

	b.ResetTimer()
	for b.Loop() {
		if _, errs := resourcelist.Load(data); len(errs) > 0 {
			b.Fatalf("unexpected token errors: %v", errs)
		}
	}
}

// BenchmarkCacheHit benchmarks a cached resource list lookup, the path taken
// by every producer after the first one touching a calculator.
func BenchmarkCacheHit(b *testing.B) {
	root := b.TempDir()
	path := filepath.Join(root, "resources.yaml")
	if err := os.WriteFile(path, []byte(resourceList(200)), 0o644); err != nil {
		b.Fatal(err)
	}
	cache, err := rlcache.New()
	if err != nil {
		b.Fatal(err)
	}
	if _, _, err := cache.Load(path); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for b.Loop() {
		if _, _, err := cache.Load(path); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFullPass benchmarks a pass that builds every output from scratch.
func BenchmarkFullPass(b *testing.B) {
	root := b.TempDir()
	writeSite(b, root, 8, 100)
	sess := newSession(b, root)
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		b.StopTimer()
		if err := os.RemoveAll(filepath.Join(root, "output")); err != nil {
			b.Fatal(err)
		}
		b.StartTimer()
		res, err := sess.Build(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if err := res.Err(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkNoOpPass benchmarks a pass over an up-to-date tree: discovery,
// staleness checks and post-processing gates only. This is the steady state
// of watch mode.
func BenchmarkNoOpPass(b *testing.B) {
	root := b.TempDir()
	writeSite(b, root, 8, 100)
	sess := newSession(b, root)
	ctx := context.Background()
	if _, err := sess.Build(ctx); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for b.Loop() {
		res, err := sess.Build(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if res.Summary.Invoked != 0 {
			b.Fatalf("no-op pass invoked %d producers", res.Summary.Invoked)
		}
	}
}

// BenchmarkConfigLoad benchmarks resolving an rcbuild.cue file.
func BenchmarkConfigLoad(b *testing.B) {
	root := b.TempDir()
	cfg := config.DefaultConfig()
	cfg.Jobs = 4
	if err := os.WriteFile(filepath.Join(root, "rcbuild.cue"), []byte(config.GenerateCUE(cfg)), 0o644); err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		if _, _, err := config.Load(ctx, config.LoadOptions{Root: root}); err != nil {
			b.Fatal(err)
		}
	}
}
