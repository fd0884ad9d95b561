// SPDX-License-Identifier: MPL-2.0

package producers

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path"
	"regexp"

	"rcbuild/pkg/producer"
	"rcbuild/pkg/resourcelist"
)

const (
	// PageTemplate is the calculator page template inside the core directory.
	PageTemplate = "calculator.html"
	// ImagesDir holds a calculator's item images, one <simple name>.png each.
	ImagesDir = "images"

	missingImageStyle = "background: #f0f; background-image: none;"
)

type (
	// PageData is the template data of a calculator page.
	PageData struct {
		Calculator  string
		DisplayName string
		Authors     []resourcelist.Author
		RecipeTypes []RecipeType
		StackSizes  []*resourcelist.StackSize
		Resources   []PageResource
	}

	// RecipeType is a recipe type and its display template.
	RecipeType struct {
		Name     string
		Template string
	}

	// PageResource is one resource as rendered on the page.
	PageResource struct {
		Name       string
		SimpleName string
		// Style positions the item image, or paints a placeholder when the
		// resource has no image.
		Style template.CSS
		// StackSize names the stack size quantities are shown in, if any.
		StackSize string
		Recipes   []PageRecipe
	}

	// PageRecipe is one recipe of a PageResource.
	PageRecipe struct {
		RecipeType   string
		Output       int
		Requirements []Requirement
	}

	// Requirement is one ingredient of a PageRecipe.
	Requirement struct {
		Name       string
		SimpleName string
		Quantity   int
	}
)

// CalculatorPages returns the producer that renders
// <output>/<calc>/index.html from each calculator's resource list through the
// core page template. Resource lists come from the session cache.
func (s *Site) CalculatorPages() *producer.Producer {
	src, out := quotedDir(s.Config.SourceDir), s.Config.OutputDir
	tmpl := path.Join(s.Config.CoreDir, PageTemplate)

	return &producer.Producer{
		Name:     "calculator page",
		Patterns: producer.MustCompile(`^` + src + `/` + s.calcPattern() + `/` + regexp.QuoteMeta(ResourceListFile) + `$`),
		Outputs:  producer.Substitute(path.Join(out, "${calc}", "index.html")),
		Inputs: func(m producer.Match) ([]string, error) {
			inputs := []string{tmpl}
			images := path.Join(path.Dir(m.Path), ImagesDir)
			if _, err := os.Stat(hostPath(s.Root, images)); err == nil {
				inputs = append(inputs, images)
			}
			return inputs, nil
		},
		Categories: []producer.Category{producer.CategoryCalculator, producer.CategoryHTML},
		Transform: func(_ context.Context, act producer.Activation) error {
			if err := producer.ExpectOutputs(act, 1); err != nil {
				return err
			}
			return s.renderPage(act.Named["calc"], act.Path, tmpl, act.Outputs[0])
		},
	}
}

func (s *Site) renderPage(calc, listPath, tmplPath, outPath string) error {
	list, tokenErrs, err := s.Cache.Load(hostPath(s.Root, listPath))
	if err != nil {
		return err
	}
	logger := s.logger().With("calculator", calc)
	for _, te := range tokenErrs {
		logger.Warn("resource list error", "file", listPath, "err", te)
	}

	tmpl, err := template.ParseFiles(hostPath(s.Root, tmplPath))
	if err != nil {
		return fmt.Errorf("parse page template: %w", err)
	}

	data := s.pageData(calc, path.Dir(listPath), list)
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", outPath, err)
	}
	return os.WriteFile(hostPath(s.Root, outPath), buf.Bytes(), 0o644)
}

// pageData flattens list into template data. A resource that has recipes
// but no item image gets a placeholder style and a warning.
func (s *Site) pageData(calc, calcDir string, list *resourcelist.ResourceList) PageData {
	data := PageData{
		Calculator:  calc,
		DisplayName: list.IndexPageDisplayName,
		Authors:     list.Authors,
	}
	if data.DisplayName == "" {
		data.DisplayName = calc
	}
	for name, tmpl := range list.RecipeTypes.All() {
		data.RecipeTypes = append(data.RecipeTypes, RecipeType{Name: name, Template: tmpl})
	}

	for _, ss := range list.StackSizes.All() {
		data.StackSizes = append(data.StackSizes, ss)
	}

	for name, res := range list.Resources.All() {
		simple := res.SimpleName()
		pr := PageResource{Name: name, SimpleName: simple, StackSize: list.StackSizeOf(res)}

		image := path.Join(calcDir, ImagesDir, simple+".png")
		if _, err := os.Stat(hostPath(s.Root, image)); err == nil {
			pr.Style = template.CSS("background-image: url(" + path.Join(ImagesDir, simple+".png") + ");")
		} else {
			pr.Style = missingImageStyle
			if len(res.Recipes) > 0 {
				s.logger().Warn("resource has a recipe but no image and will appear purple in the calculator",
					"calculator", calc, "resource", simple)
			}
		}

		for _, r := range res.Recipes {
			recipe := PageRecipe{RecipeType: r.RecipeType, Output: r.Output}
			for req, qty := range r.Requirements.All() {
				recipe.Requirements = append(recipe.Requirements, Requirement{
					Name:       req,
					SimpleName: list.SimpleNameOf(req),
					Quantity:   qty,
				})
			}
			pr.Recipes = append(pr.Recipes, recipe)
		}
		data.Resources = append(data.Resources, pr)
	}
	return data
}
