// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"rcbuild/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "rcbuild"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "rcbuild"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "RCBUILD"

	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// Root is the project root searched for rcbuild.cue. Empty means the
	// current directory.
	Root string
}

// Load resolves the configuration: defaults, then the config file (if any),
// then RCBUILD_* environment variables. It returns the path of the file
// that was read, or "" when only defaults and environment applied.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := opts.ConfigFilePath
	if path == "" {
		candidate := filepath.Join(opts.Root, ConfigFileName+"."+ConfigFileExt)
		if fileExists(candidate) {
			path = candidate
		}
	} else if !fileExists(path) {
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'rcbuild config show' to see the default configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	}

	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Check RCBUILD_* environment variables, they bypass the schema").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return &cfg, path, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("source_dir", d.SourceDir)
	v.SetDefault("core_dir", d.CoreDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("ignore_dirs", d.IgnoreDirs)
	v.SetDefault("text_extensions", d.TextExtensions)
	v.SetDefault("jobs", d.Jobs)
	v.SetDefault("commands.lint", d.Commands.Lint)
	v.SetDefault("commands.uglify", d.Commands.Uglify)
	v.SetDefault("commands.typescript", d.Commands.TypeScript)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.poll_interval", d.Watch.PollInterval)
	v.SetDefault("watch.poll", d.Watch.Poll)
	v.SetDefault("deploy.endpoint", d.Deploy.Endpoint)
	v.SetDefault("deploy.bucket", d.Deploy.Bucket)
	v.SetDefault("deploy.region", d.Deploy.Region)
	v.SetDefault("deploy.prefix", d.Deploy.Prefix)
	v.SetDefault("deploy.use_ssl", d.Deploy.UseSSL)
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// Viper. Fields are optional, so validation does not require concrete
// values, and the result is decoded to a map for MergeConfigMap.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigFileSize)
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// formatCUEError renders CUE errors as "<file>: <field.path>: <message>",
// one line per error.
func formatCUEError(err error, path string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", path, err)
	}

	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		field := strings.Join(cueerrors.Path(e), ".")
		msg := e.Error()
		if field != "" {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, field), ":"))
			msg = field + ": " + msg
		}
		lines = append(lines, msg)
	}
	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", path, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", path, strings.Join(lines, "\n  "))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg as an rcbuild.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// rcbuild configuration\n\n")
	fmt.Fprintf(&sb, "source_dir: %q\n", cfg.SourceDir)
	fmt.Fprintf(&sb, "core_dir:   %q\n", cfg.CoreDir)
	fmt.Fprintf(&sb, "output_dir: %q\n", cfg.OutputDir)
	fmt.Fprintf(&sb, "cache_dir:  %q\n", cfg.CacheDir)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "ignore_dirs: %s\n", cueList(cfg.IgnoreDirs))
	fmt.Fprintf(&sb, "text_extensions: %s\n", cueList(cfg.TextExtensions))
	fmt.Fprintf(&sb, "jobs: %d\n", cfg.Jobs)

	sb.WriteString("\ncommands: {\n")
	fmt.Fprintf(&sb, "\tlint:       %q\n", cfg.Commands.Lint)
	fmt.Fprintf(&sb, "\tuglify:     %q\n", cfg.Commands.Uglify)
	fmt.Fprintf(&sb, "\ttypescript: %q\n", cfg.Commands.TypeScript)
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce:      %q\n", cfg.Watch.Debounce)
	fmt.Fprintf(&sb, "\tpoll_interval: %q\n", cfg.Watch.PollInterval)
	fmt.Fprintf(&sb, "\tpoll:          %v\n", cfg.Watch.Poll)
	sb.WriteString("}\n")

	sb.WriteString("\ndeploy: {\n")
	fmt.Fprintf(&sb, "\tendpoint: %q\n", cfg.Deploy.Endpoint)
	fmt.Fprintf(&sb, "\tbucket:   %q\n", cfg.Deploy.Bucket)
	fmt.Fprintf(&sb, "\tregion:   %q\n", cfg.Deploy.Region)
	fmt.Fprintf(&sb, "\tprefix:   %q\n", cfg.Deploy.Prefix)
	fmt.Fprintf(&sb, "\tuse_ssl:  %v\n", cfg.Deploy.UseSSL)
	sb.WriteString("}\n")

	return sb.String()
}

// GenerateTOML renders cfg as TOML.
func GenerateTOML(cfg *Config) (string, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config as TOML: %w", err)
	}
	return string(data), nil
}

func cueList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, s := range items {
		quoted = append(quoted, fmt.Sprintf("%q", s))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
