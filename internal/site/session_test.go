// SPDX-License-Identifier: MPL-2.0

package site

import (
	"context"
	"errors"
	"io"
	"slices"
	"testing"
	"time"

	"rcbuild/internal/config"
	"rcbuild/internal/testutil"
)

var past = time.Now().Add(-48 * time.Hour).Truncate(time.Second)

func writeProject(t *testing.T, root string) {
	t.Helper()
	testutil.WriteTree(t, root, map[string]string{
		"core/calculator.css":  "body{}",
		"core/calculator.html": "<h1>{{.DisplayName}}</h1>{{range .Resources}}<p>{{.Name}}</p>{{end}}",
		"core/index.html":      "{{range .Calculators}}<a href=\"{{.Path}}/\">{{.DisplayName}}</a>{{end}}",
		"cache/calculator.js":  "var calc = 1;",

		"resource_lists/A/resources.yaml":     "index_page_display_name: Alpha\nresources:\n  Wood:\n    recipes:\n      - recipe_type: Raw Resource\n",
		"resource_lists/A/icon.png":           "a-icon",
		"resource_lists/A/plugins/extra.js":   "plugin a",
		"resource_lists/B/resources.yaml":     "index_page_display_name: Beta\n",
		"resource_lists/B/icon.png":           "b-icon",
		"resource_lists/B/plugins/helper.js":  "plugin b",
		"resource_lists/B/plugins/sub/x.json": "{}",
	}, past)
	for _, dir := range []string{"resource_lists/A/plugins", "resource_lists/B/plugins", "resource_lists/B/plugins/sub"} {
		testutil.SetModTime(t, root, dir, past)
	}
}

func newTestSession(t *testing.T, root string, flags config.Flags) *Session {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Commands.TypeScript = ""
	s, err := NewSession(root, cfg, config.NewOptions(cfg, flags), nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Stdout, s.Stderr = io.Discard, io.Discard
	s.ToolModTime = past
	return s
}

func mustBuild(t *testing.T, s *Session) *Result {
	t.Helper()
	res, err := s.Build(t.Context())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if err := res.Err(); err != nil {
		t.Fatalf("Build() failures: %v", err)
	}
	return res
}

func TestBuild_FullPass(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProject(t, root)
	s := newTestSession(t, root, config.Flags{NoUglifyJS: true})

	res := mustBuild(t, s)
	if !slices.Equal(res.Calculators, []string{"A", "B"}) {
		t.Errorf("Calculators = %v", res.Calculators)
	}
	if !slices.Equal(res.Plugins, []string{"A", "B"}) {
		t.Errorf("Plugins = %v", res.Plugins)
	}
	if !res.IndexBuilt {
		t.Error("index page not built")
	}
	if got := testutil.ReadFile(t, root, "output/index.html"); got != `<a href="A/">Alpha</a><a href="B/">Beta</a>` {
		t.Errorf("index.html = %q", got)
	}
	for _, rel := range []string{
		"output/A/index.html", "output/B/index.html",
		"output/A/icon.png", "output/B/plugins/sub/x.json",
		"output/calculator.css", "output/calculator.js",
		"output/index.html.gz", "output/A/index.html.gz", "output/calculator.js.gz",
	} {
		if !testutil.Exists(t, root, rel) {
			t.Errorf("%s missing", rel)
		}
	}
	if testutil.Exists(t, root, "output/A/icon.png.gz") {
		t.Error("images must not be compressed")
	}

	again := mustBuild(t, s)
	if again.Summary.Invoked != 0 || len(again.Plugins) != 0 || again.Compressed != 0 {
		t.Errorf("second pass did work: invoked %d, plugins %v, compressed %d",
			again.Summary.Invoked, again.Plugins, again.Compressed)
	}
}

func TestBuild_LimitFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProject(t, root)
	s := newTestSession(t, root, config.Flags{LimitFiles: []string{"A"}, NoUglifyJS: true})

	res := mustBuild(t, s)
	if !slices.Equal(res.Calculators, []string{"A"}) {
		t.Errorf("Calculators = %v", res.Calculators)
	}
	if res.IndexBuilt || testutil.Exists(t, root, "output/index.html") {
		t.Error("index page must not be regenerated for a calculator subset")
	}
	if !testutil.Exists(t, root, "output/A/index.html") || !testutil.Exists(t, root, "output/A/plugins/extra.js") {
		t.Error("calculator A not built")
	}
	if testutil.Exists(t, root, "output/B") {
		t.Error("calculator B must not be touched")
	}
}

func TestBuild_PluginGating(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProject(t, root)
	s := newTestSession(t, root, config.Flags{NoUglifyJS: true, NoGzip: true, NoIndex: true})
	mustBuild(t, s)

	testutil.WriteFile(t, root, "resource_lists/B/plugins/sub/x.json", `{"v":2}`, time.Now().Add(time.Minute))
	res := mustBuild(t, s)
	if !slices.Equal(res.Plugins, []string{"B"}) {
		t.Errorf("Plugins = %v, want only B", res.Plugins)
	}
	if got := testutil.ReadFile(t, root, "output/B/plugins/sub/x.json"); got != `{"v":2}` {
		t.Errorf("republished plugin = %q", got)
	}

	s.ToolModTime = time.Now().Add(time.Hour)
	res = mustBuild(t, s)
	if !slices.Equal(res.Plugins, []string{"A", "B"}) {
		t.Errorf("newer tool republished %v, want all", res.Plugins)
	}
}

func TestBuild_DraftSkipsPostProcessing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProject(t, root)
	res := mustBuild(t, newTestSession(t, root, config.Flags{Draft: true}))

	if res.IndexBuilt || res.Compressed != 0 || len(res.Plugins) != 0 {
		t.Errorf("draft ran post-processing: %+v", res)
	}
	if testutil.Exists(t, root, "output/A/plugins") {
		t.Error("draft must not publish plugins")
	}
	if got := testutil.ReadFile(t, root, "output/calculator.js"); got != "var calc = 1;" {
		t.Errorf("draft should copy the script, got %q", got)
	}
}

func TestBuild_ProducerFailureIsReported(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProject(t, root)
	testutil.WriteFile(t, root, "core/calculator.html", "{{.Missing", past)

	res, err := newTestSession(t, root, config.Flags{NoUglifyJS: true}).Build(t.Context())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if res.Err() == nil || len(res.Summary.Failures) != 2 {
		t.Fatalf("want two page failures, got %v", res.Err())
	}
	if !testutil.Exists(t, root, "output/calculator.css") {
		t.Error("other producers must still run")
	}
}

func TestBuild_Canceled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProject(t, root)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := newTestSession(t, root, config.Flags{}).Build(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}
