// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rcbuild/internal/deploy"
	"rcbuild/internal/issue"
	"rcbuild/internal/postprocess"
)

// newDeployCommand creates `rcbuild deploy`, which uploads the output
// directory to the configured bucket.
func newDeployCommand(app *App, rf *rootFlags) *cobra.Command {
	var (
		prefix   string
		envFiles []string
		noTouch  bool
	)
	deployCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Upload the built site to an S3-compatible bucket",
		Long: `Upload the built site to an S3-compatible bucket.

Credentials are read from ` + deploy.AccessKeyEnv + ` and ` + deploy.SecretKeyEnv + `, or from
a .env file in the project root. Run a full build first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger(app.Stderr, rf.verbose)

			cfg, _, root, err := loadConfig(ctx, rf)
			if err != nil {
				renderIssue(app.Stderr, issue.ConfigLoadFailedId)
				return err
			}
			if len(envFiles) == 0 {
				envFiles = []string{filepath.Join(root, deploy.DefaultEnvFile)}
			}
			if prefix == "" {
				prefix = cfg.Deploy.Prefix
			}

			fail := func(op string, err error) error {
				renderIssue(app.Stderr, issue.DeployFailedId)
				return issue.NewErrorContext().
					WithOperation(op).
					WithResource(cfg.Deploy.Endpoint).
					WithIssue(issue.DeployFailedId).
					Wrap(err).
					BuildError()
			}

			creds, err := deploy.LoadCredentials(envFiles...)
			if err != nil {
				return fail("load deploy credentials", err)
			}
			up, err := deploy.New(cfg.Deploy, creds, logger.WithPrefix("deploy"))
			if err != nil {
				return fail("connect to object store", err)
			}
			output := filepath.Join(root, cfg.OutputDir)
			if !noTouch {
				if _, err := postprocess.NormalizeTimestamps(output, time.Time{}, app.clock()); err != nil {
					return fail("normalize timestamps", err)
				}
			}
			stats, err := up.Upload(ctx, output, prefix)
			if err != nil {
				return fail("upload site", err)
			}
			fmt.Fprintf(app.Stdout, "%s uploaded %d files (%d bytes) to %s\n",
				SuccessStyle.Render("✓"), stats.Files, stats.Bytes, strings.TrimSuffix(cfg.Deploy.Bucket+"/"+prefix, "/"))
			return nil
		},
	}
	f := deployCmd.Flags()
	f.StringVar(&prefix, "prefix", "", "object key prefix (default from config)")
	f.StringSliceVar(&envFiles, "env-file", nil, "dotenv files holding credentials (default <root>/.env)")
	f.BoolVar(&noTouch, "no-touch", false, "keep file modification times as built")
	return deployCmd
}
