// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"rcbuild/internal/shell"
)

// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config is the build configuration.
	Config struct {
		// SourceDir holds one directory per calculator.
		SourceDir string `json:"source_dir" mapstructure:"source_dir" toml:"source_dir"`
		// CoreDir holds shared templates, styles and TypeScript sources.
		CoreDir string `json:"core_dir" mapstructure:"core_dir" toml:"core_dir"`
		// OutputDir receives the generated site.
		OutputDir string `json:"output_dir" mapstructure:"output_dir" toml:"output_dir"`
		// CacheDir receives intermediate files.
		CacheDir string `json:"cache_dir" mapstructure:"cache_dir" toml:"cache_dir"`
		// IgnoreDirs are directory names or doublestar globs never walked.
		IgnoreDirs []string `json:"ignore_dirs" mapstructure:"ignore_dirs" toml:"ignore_dirs"`
		// TextExtensions select the files that get a gzip sibling.
		TextExtensions []string `json:"text_extensions" mapstructure:"text_extensions" toml:"text_extensions"`
		// Jobs bounds parallel producer groups. One is fully sequential.
		Jobs int `json:"jobs" mapstructure:"jobs" toml:"jobs"`

		Commands CommandsConfig `json:"commands" mapstructure:"commands" toml:"commands"`
		Watch    WatchConfig    `json:"watch" mapstructure:"watch" toml:"watch"`
		Deploy   DeployConfig   `json:"deploy" mapstructure:"deploy" toml:"deploy"`
	}

	// CommandsConfig holds shell command lines for external tools. Each is
	// run with the input path as $1 and the output path as $2.
	CommandsConfig struct {
		Lint       string `json:"lint" mapstructure:"lint" toml:"lint"`
		Uglify     string `json:"uglify" mapstructure:"uglify" toml:"uglify"`
		TypeScript string `json:"typescript" mapstructure:"typescript" toml:"typescript"`
	}

	// WatchConfig tunes --watch.
	WatchConfig struct {
		// Debounce delays a rebuild after the last file event.
		Debounce string `json:"debounce" mapstructure:"debounce" toml:"debounce"`
		// PollInterval is the pause between passes in polling mode.
		PollInterval string `json:"poll_interval" mapstructure:"poll_interval" toml:"poll_interval"`
		// Poll rebuilds on a fixed interval instead of waiting for file
		// events, for mounts that do not deliver them.
		Poll bool `json:"poll" mapstructure:"poll" toml:"poll"`
	}

	// DeployConfig locates the S3-compatible bucket serving the site.
	DeployConfig struct {
		Endpoint string `json:"endpoint" mapstructure:"endpoint" toml:"endpoint"`
		Bucket   string `json:"bucket" mapstructure:"bucket" toml:"bucket"`
		Region   string `json:"region" mapstructure:"region" toml:"region"`
		Prefix   string `json:"prefix" mapstructure:"prefix" toml:"prefix"`
		UseSSL   bool   `json:"use_ssl" mapstructure:"use_ssl" toml:"use_ssl"`
	}

	// InvalidConfigError collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SourceDir:      "resource_lists",
		CoreDir:        "core",
		OutputDir:      "output",
		CacheDir:       "cache",
		IgnoreDirs:     []string{".git", "node_modules", "venv", "venv_docker", "__pycache__"},
		TextExtensions: []string{".html", ".css", ".js"},
		Jobs:           1,
		Commands: CommandsConfig{
			Lint:       "",
			Uglify:     `./node_modules/.bin/uglifyjs --compress --mangle --output "$2" -- "$1"`,
			TypeScript: `./node_modules/.bin/tsc --project "$1" --outFile "$2"`,
		},
		Watch: WatchConfig{
			Debounce:     "500ms",
			PollInterval: "500ms",
			Poll:         false,
		},
		Deploy: DeployConfig{
			Region: "us-east-1",
			UseSSL: true,
		},
	}
}

// Normalize rewrites the directory fields into the clean, slash-separated,
// root-relative form every filesystem lookup expects. Values that cannot be
// expressed that way are left for Validate to report.
func (c *Config) Normalize() {
	for _, dir := range []*string{&c.SourceDir, &c.CoreDir, &c.OutputDir, &c.CacheDir} {
		if strings.TrimSpace(*dir) == "" {
			continue
		}
		*dir = path.Clean(filepath.ToSlash(strings.TrimSpace(*dir)))
	}
}

// Validate checks constraints that survive environment overrides, which
// bypass the CUE schema. Directories must already be normalized.
func (c *Config) Validate() error {
	var errs []error
	dirs := map[string]string{
		"source_dir": c.SourceDir,
		"core_dir":   c.CoreDir,
		"output_dir": c.OutputDir,
		"cache_dir":  c.CacheDir,
	}
	for name, dir := range dirs {
		switch {
		case strings.TrimSpace(dir) == "":
			errs = append(errs, fmt.Errorf("%s must not be empty", name))
		case dir == "." || !fs.ValidPath(dir):
			errs = append(errs, fmt.Errorf("%s %q must be a subdirectory of the project root", name, dir))
		}
	}
	if c.OutputDir == c.SourceDir || c.OutputDir == c.CoreDir {
		errs = append(errs, fmt.Errorf("output_dir %q must differ from the source directories", c.OutputDir))
	}
	if c.Jobs < 1 {
		errs = append(errs, fmt.Errorf("jobs must be at least 1, got %d", c.Jobs))
	}
	for name, script := range map[string]string{
		"commands.lint":       c.Commands.Lint,
		"commands.uglify":     c.Commands.Uglify,
		"commands.typescript": c.Commands.TypeScript,
	} {
		if err := shell.Validate(script); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if _, err := c.Watch.DebounceDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Watch.PollDuration(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	// Map iteration order is random; keep messages stable.
	slices.SortFunc(errs, func(a, b error) int { return strings.Compare(a.Error(), b.Error()) })
	return &InvalidConfigError{FieldErrors: errs}
}

// DebounceDuration parses Debounce.
func (w WatchConfig) DebounceDuration() (time.Duration, error) {
	return parsePositive("watch.debounce", w.Debounce)
}

// PollDuration parses PollInterval.
func (w WatchConfig) PollDuration() (time.Duration, error) {
	return parsePositive("watch.poll_interval", w.PollInterval)
}

func parsePositive(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, s)
	}
	return d, nil
}
