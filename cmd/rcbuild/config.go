// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"rcbuild/internal/config"
	"rcbuild/internal/issue"
)

const (
	formatCUE  = "cue"
	formatTOML = "toml"
)

// newConfigCommand creates the `rcbuild config` command tree.
func newConfigCommand(app *App, rf *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect rcbuild configuration",
		Long: `Inspect rcbuild configuration.

Configuration is read from rcbuild.cue in the project root, or from the file
given with --config. RCBUILD_* environment variables override file values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, _, err := loadConfig(cmd.Context(), rf)
			if err != nil {
				renderIssue(app.Stderr, issue.ConfigLoadFailedId)
				return err
			}
			showConfig(app.Stdout, cfg, path)
			return nil
		},
	})

	var format string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE or TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := loadConfig(cmd.Context(), rf)
			if err != nil {
				return err
			}
			return dumpConfig(app.Stdout, cfg, format)
		},
	}
	dumpCmd.Flags().StringVar(&format, "format", formatCUE, "output format (cue or toml)")
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

func dumpConfig(w io.Writer, cfg *config.Config, format string) error {
	switch strings.ToLower(format) {
	case formatCUE:
		fmt.Fprint(w, config.GenerateCUE(cfg))
	case formatTOML:
		out, err := config.GenerateTOML(cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, formatCUE, formatTOML)
	}
	return nil
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	keyStyle := KeyStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	kv := func(indent, key string, value any) {
		fmt.Fprintf(w, "%s%s: %s\n", indent, keyStyle.Render(key), valueStyle.Render(fmt.Sprint(value)))
	}
	kv("", "source_dir", cfg.SourceDir)
	kv("", "core_dir", cfg.CoreDir)
	kv("", "output_dir", cfg.OutputDir)
	kv("", "cache_dir", cfg.CacheDir)
	kv("", "jobs", cfg.Jobs)
	kv("", "ignore_dirs", strings.Join(cfg.IgnoreDirs, ", "))
	kv("", "text_extensions", strings.Join(cfg.TextExtensions, ", "))

	section := func(name string) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s:\n", keyStyle.Render(name))
	}
	command := func(key, value string) {
		if value == "" {
			fmt.Fprintf(w, "  %s: %s\n", keyStyle.Render(key), SubtitleStyle.Render("(disabled)"))
			return
		}
		kv("  ", key, value)
	}

	section("commands")
	command("lint", cfg.Commands.Lint)
	command("typescript", cfg.Commands.TypeScript)
	command("uglify", cfg.Commands.Uglify)

	section("watch")
	kv("  ", "debounce", cfg.Watch.Debounce)
	kv("  ", "poll", cfg.Watch.Poll)
	kv("  ", "poll_interval", cfg.Watch.PollInterval)

	section("deploy")
	if cfg.Deploy.Endpoint == "" {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(not configured)"))
		return
	}
	kv("  ", "endpoint", cfg.Deploy.Endpoint)
	kv("  ", "bucket", cfg.Deploy.Bucket)
	kv("  ", "prefix", cfg.Deploy.Prefix)
	kv("  ", "use_ssl", cfg.Deploy.UseSSL)
}
