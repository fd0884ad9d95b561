// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"rcbuild/internal/issue"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.SourceDir != "resource_lists" || cfg.CoreDir != "core" || cfg.OutputDir != "output" || cfg.CacheDir != "cache" {
		t.Errorf("unexpected directories: %+v", cfg)
	}
	for _, dir := range []string{".git", "node_modules", "venv", "venv_docker", "__pycache__"} {
		if !strings.Contains(strings.Join(cfg.IgnoreDirs, " "), dir) {
			t.Errorf("ignore_dirs missing %q", dir)
		}
	}
	if cfg.Jobs != 1 {
		t.Errorf("Jobs = %d, want sequential default", cfg.Jobs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_DefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := Load(t.Context(), LoadOptions{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	want := writeConfig(t, root, `
jobs: 4
ignore_dirs: [".git", "dist"]
watch: {
	poll: true
	poll_interval: "2s"
}
deploy: bucket: "site"
`)

	cfg, path, err := Load(t.Context(), LoadOptions{Root: root})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if cfg.Jobs != 4 || !cfg.Watch.Poll || cfg.Watch.PollInterval != "2s" || cfg.Deploy.Bucket != "site" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.IgnoreDirs, []string{".git", "dist"}) {
		t.Errorf("IgnoreDirs = %v", cfg.IgnoreDirs)
	}
	if cfg.Watch.Debounce != "500ms" || cfg.OutputDir != "output" {
		t.Errorf("untouched fields should keep defaults: %+v", cfg)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"jobs below one", "jobs: 0\n", "jobs"},
		{"unknown field", "output: \"site\"\n", "output"},
		{"bad duration", "watch: debounce: \"soon\"\n", "watch.debounce"},
		{"syntax error", "jobs: [\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()
			writeConfig(t, root, tt.content)

			_, _, err := Load(t.Context(), LoadOptions{Root: root})
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("Load() error = %v, want ActionableError", err)
			}
			if ae.Issue != issue.ConfigLoadFailedId || !ae.HasSuggestions() {
				t.Errorf("error lacks guidance: %+v", ae)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, _, err := Load(t.Context(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("RCBUILD_JOBS", "3")
	t.Setenv("RCBUILD_WATCH_POLL", "true")

	cfg, _, err := Load(t.Context(), LoadOptions{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Jobs != 3 || !cfg.Watch.Poll {
		t.Errorf("env overrides not applied: jobs=%d poll=%v", cfg.Jobs, cfg.Watch.Poll)
	}
}

func TestLoad_EnvironmentIsValidated(t *testing.T) {
	t.Setenv("RCBUILD_JOBS", "0")

	_, _, err := Load(t.Context(), LoadOptions{Root: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, _, err := Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Jobs = 0
	cfg.OutputDir = cfg.SourceDir
	cfg.Watch.Debounce = "-1s"

	err := cfg.Validate()
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) || !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Validate() = %v", err)
	}
	if len(invalid.FieldErrors) != 3 {
		t.Errorf("field errors = %v, want 3", invalid.FieldErrors)
	}
}

func TestNormalize_Directories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sourceDir string
		outputDir string
		wantSrc   string
		wantOut   string
		wantErr   string
	}{
		{"dot prefix", "./resource_lists", "output", "resource_lists", "output", ""},
		{"trailing slash", "resource_lists/", "output/", "resource_lists", "output", ""},
		{"os separator", "resource_lists", "site" + string(filepath.Separator) + "out", "resource_lists", "site/out", ""},
		{"absolute", "resource_lists", "/abs/out", "resource_lists", "/abs/out", "must be a subdirectory"},
		{"parent", "resource_lists", "../out", "resource_lists", "../out", "must be a subdirectory"},
		{"project root", ".", "output", ".", "output", "must be a subdirectory"},
		{"aliased output", "output", "./output/", "output", "output", "must differ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			cfg.SourceDir = tt.sourceDir
			cfg.OutputDir = tt.outputDir
			cfg.Normalize()
			if cfg.SourceDir != tt.wantSrc || cfg.OutputDir != tt.wantOut {
				t.Errorf("normalized = (%q, %q), want (%q, %q)", cfg.SourceDir, cfg.OutputDir, tt.wantSrc, tt.wantOut)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_NormalizesDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, `
source_dir: "./resource_lists/"
output_dir: "./public"
`)
	cfg, _, err := Load(t.Context(), LoadOptions{Root: root})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SourceDir != "resource_lists" || cfg.OutputDir != "public" {
		t.Errorf("dirs = (%q, %q), want cleaned paths", cfg.SourceDir, cfg.OutputDir)
	}
}

func TestValidate_Commands(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Commands.Uglify = `echo "unterminated`
	err := cfg.Validate()
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("Validate() = %v, want InvalidConfigError", err)
	}
	if len(invalid.FieldErrors) != 1 || !strings.Contains(invalid.FieldErrors[0].Error(), "commands.uglify") {
		t.Errorf("field errors = %v, want one commands.uglify error", invalid.FieldErrors)
	}
}

func TestGenerateCUE_LoadsBack(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Jobs = 8
	cfg.Commands.Lint = `./node_modules/.bin/eslint "$1"`
	cfg.Deploy.Endpoint = "localhost:9000"
	cfg.Deploy.UseSSL = false

	root := t.TempDir()
	writeConfig(t, root, GenerateCUE(cfg))

	got, _, err := Load(t.Context(), LoadOptions{Root: root})
	if err != nil {
		t.Fatalf("generated CUE does not load: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("loaded %+v, want %+v", got, cfg)
	}
}

func TestGenerateTOML(t *testing.T) {
	t.Parallel()

	out, err := GenerateTOML(DefaultConfig())
	if err != nil {
		t.Fatalf("GenerateTOML() error: %v", err)
	}
	for _, want := range []string{"source_dir = 'resource_lists'", "jobs = 1", "[watch]", "[deploy]"} {
		if !strings.Contains(out, want) {
			t.Errorf("TOML output missing %q:\n%s", want, out)
		}
	}
}
