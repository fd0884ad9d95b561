// SPDX-License-Identifier: MPL-2.0

package postprocess

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"rcbuild/internal/rlcache"
	"rcbuild/pkg/fstime"
)

const (
	// IndexTemplate is the template file name inside the core directory.
	IndexTemplate = "index.html"
	// IconFile is each calculator's index icon.
	IconFile = "icon.png"
	// ResourceListFile is each calculator's resource list.
	ResourceListFile = "resources.yaml"
)

type (
	// IndexParams locates the inputs and output of the index page. Directory
	// fields are relative to Root.
	IndexParams struct {
		Root        string
		SourceDir   string
		CoreDir     string
		OutputDir   string
		Calculators []string
		Logger      *log.Logger
	}

	// IndexEntry is one calculator link on the index page.
	IndexEntry struct {
		Path        string
		DisplayName string
	}

	// IndexData is the template data for the index page.
	IndexData struct {
		Calculators []IndexEntry
	}
)

// BuildIndex copies every calculator's icon next to its page when the icon
// changed, resolves the display names through the resource list cache and
// renders the index template to <output>/index.html, leaving an identical
// page untouched. Calculators are listed in sorted order. A calculator
// without an icon or a readable name is still listed; the directory name
// stands in for a missing display name.
func BuildIndex(cache *rlcache.Cache, p IndexParams) error {
	logger := p.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	calcs := slices.Sorted(slices.Values(p.Calculators))
	data := IndexData{Calculators: make([]IndexEntry, 0, len(calcs))}
	for _, calc := range calcs {
		srcDir := filepath.Join(p.Root, p.SourceDir, calc)
		outDir := filepath.Join(p.Root, p.OutputDir, calc)
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", outDir, err)
		}
		if err := copyIfNewer(filepath.Join(srcDir, IconFile), filepath.Join(outDir, IconFile)); err != nil {
			logger.Warn("calculator has no index icon", "calculator", calc, "err", err)
		}

		entry := IndexEntry{Path: calc, DisplayName: calc}
		list, _, err := cache.Load(filepath.Join(srcDir, ResourceListFile))
		switch {
		case err != nil:
			logger.Warn("cannot read calculator name", "calculator", calc, "err", err)
		case list.IndexPageDisplayName != "":
			entry.DisplayName = list.IndexPageDisplayName
		}
		data.Calculators = append(data.Calculators, entry)
	}

	tmplPath := filepath.Join(p.Root, p.CoreDir, IndexTemplate)
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		return fmt.Errorf("parse index template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render index page: %w", err)
	}

	// An unchanged page keeps its timestamp so its gzip sibling stays current.
	outPath := filepath.Join(p.Root, p.OutputDir, IndexTemplate)
	if old, err := os.ReadFile(outPath); err == nil && bytes.Equal(old, buf.Bytes()) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(outPath), err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write index page: %w", err)
	}
	return nil
}

func copyIfNewer(src, dst string) error {
	in, err := os.Stat(src)
	if err != nil {
		return err
	}
	if out, err := os.Stat(dst); err == nil && !in.ModTime().After(out.ModTime()) {
		return nil
	}
	return fstime.CopyFile(src, dst)
}
