// SPDX-License-Identifier: MPL-2.0

package producers

import (
	"context"
	"fmt"
	"path"
	"regexp"

	"rcbuild/pkg/fstime"
	"rcbuild/pkg/producer"
)

const (
	// ScriptName is the compiled calculator script, both in the cache and
	// in the output directory.
	ScriptName = "calculator.js"
	// TypeScriptDir is the TypeScript project inside the core directory.
	TypeScriptDir = "src"
)

// CoreFiles are copied unchanged from the core directory to the output root.
var CoreFiles = []string{
	"calculator.css",
	"logo.png",
	".htaccess",
	"add_game.png",
	"ads.txt",
	"favicon.ico",
}

// Core returns the producers for shared site assets: one copy producer per
// CoreFiles entry, the TypeScript compile into the cache directory and the
// minification of its result into the output directory.
//
// The TypeScript producer is left out when no compile command is configured.
func (s *Site) Core() []*producer.Producer {
	core, out := s.Config.CoreDir, s.Config.OutputDir

	var ps []*producer.Producer
	for _, name := range CoreFiles {
		ps = append(ps, &producer.Producer{
			Name:       "copy " + name,
			Patterns:   []*regexp.Regexp{producer.Exact(path.Join(core, name))},
			Outputs:    producer.Static(path.Join(out, name)),
			Transform:  CopyFile(s.Root),
			Categories: []producer.Category{producer.CategoryCore},
		})
	}

	if s.Config.Commands.TypeScript != "" {
		ps = append(ps, s.typeScript())
	}
	return append(ps, s.uglify())
}

func (s *Site) cachedScript() string {
	return path.Join(s.Config.CacheDir, ScriptName)
}

func (s *Site) typeScriptDir() string {
	return path.Join(s.Config.CoreDir, TypeScriptDir)
}

// typeScript compiles the whole TypeScript project whenever any file in it
// changes. Every source file maps to the same output, so the activations
// form one group and only the first of them is due.
func (s *Site) typeScript() *producer.Producer {
	dir := s.typeScriptDir()
	return &producer.Producer{
		Name:       "typescript",
		Patterns:   producer.MustCompile(`^` + quotedDir(dir) + `/.+$`),
		Outputs:    producer.Static(s.cachedScript()),
		Inputs:     producer.StaticInputs(dir),
		Categories: []producer.Category{producer.CategoryCore},
		Transform: func(ctx context.Context, act producer.Activation) error {
			if err := producer.ExpectOutputs(act, 1); err != nil {
				return err
			}
			s.logger().Info("compiling typescript", "project", dir)
			if err := s.shell().Run(ctx, s.Config.Commands.TypeScript, dir, act.Outputs[0]); err != nil {
				return fmt.Errorf("compile %s: %w", dir, err)
			}
			return nil
		},
	}
}

// uglify minifies the cached script into the output directory, or copies it
// when minification is skipped. Besides the cached script it also claims
// the TypeScript sources, which lets a clean tree compile and minify in a
// single pass: the script does not exist yet when the tree is walked.
func (s *Site) uglify() *producer.Producer {
	src := s.cachedScript()
	patterns := []*regexp.Regexp{producer.Exact(src)}
	if s.Config.Commands.TypeScript != "" {
		patterns = append(patterns, producer.MustCompile(`^`+quotedDir(s.typeScriptDir())+`/.+$`)...)
	}

	return &producer.Producer{
		Name:       "uglify " + ScriptName,
		Patterns:   patterns,
		Outputs:    producer.Static(path.Join(s.Config.OutputDir, ScriptName)),
		Inputs:     producer.StaticInputs(src),
		Categories: []producer.Category{producer.CategoryCore},
		Transform: func(ctx context.Context, act producer.Activation) error {
			if err := producer.ExpectOutputs(act, 1); err != nil {
				return err
			}
			if s.Options.SkipUglify() || s.Config.Commands.Uglify == "" {
				return fstime.CopyFile(hostPath(s.Root, src), hostPath(s.Root, act.Outputs[0]))
			}
			if err := s.shell().Run(ctx, s.Config.Commands.Uglify, src, act.Outputs[0]); err != nil {
				return fmt.Errorf("minify %s: %w", src, err)
			}
			return nil
		},
	}
}
