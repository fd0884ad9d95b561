// SPDX-License-Identifier: MPL-2.0

package resourcelist

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type parser struct {
	errs []TokenError
}

// Load parses data, normalizes the result and validates references. It is
// the full pipeline run on a fresh read of a resources.yaml file.
func Load(data []byte) (*ResourceList, []TokenError) {
	list, errs := Parse(data)
	errs = append(errs, Normalize(list)...)
	errs = append(errs, Validate(list)...)
	return list, errs
}

// Parse decodes a resources document. It never returns a nil list; entries
// that fail to decode are reported as TokenErrors and skipped.
func Parse(data []byte) (*ResourceList, []TokenError) {
	list := New()

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return list, []TokenError{{Message: err.Error()}}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return list, nil
	}

	p := &parser{}
	root := resolve(doc.Content[0])
	if !p.expectKind(root, yaml.MappingNode, "") {
		return list, p.errs
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], resolve(root.Content[i+1])
		switch key.Value {
		case "index_page_display_name":
			if s, ok := p.str(val, key.Value); ok {
				list.IndexPageDisplayName = s
			}
		case "authors":
			list.Authors = p.authors(val)
		case "recipe_types":
			p.recipeTypes(list, val)
		case "requirement_groups":
			p.requirementGroups(list, val)
		case "stack_sizes":
			p.stackSizes(list, val)
		case "default_stack_size":
			if s, ok := p.str(val, key.Value); ok {
				list.DefaultStackSize = s
			}
		case "resources":
			p.resources(list, val)
		default:
			p.errorf(key, key.Value, "unknown field")
		}
	}
	return list, p.errs
}

func (p *parser) authors(n *yaml.Node) []Author {
	var out []Author
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			name := n.Content[i].Value
			if link, ok := p.str(resolve(n.Content[i+1]), "authors."+name); ok {
				out = append(out, Author{Name: name, Link: link})
			}
		}
	case yaml.SequenceNode:
		for i, item := range n.Content {
			path := fmt.Sprintf("authors[%d]", i)
			item = resolve(item)
			if !p.expectKind(item, yaml.MappingNode, path) {
				continue
			}
			var a Author
			p.fields(item, path, map[string]func(*yaml.Node, string){
				"name": func(v *yaml.Node, fp string) { a.Name, _ = p.str(v, fp) },
				"link": func(v *yaml.Node, fp string) { a.Link, _ = p.str(v, fp) },
			})
			out = append(out, a)
		}
	default:
		p.errorf(n, "authors", "expected a mapping or a sequence")
	}
	return out
}

func (p *parser) recipeTypes(list *ResourceList, n *yaml.Node) {
	if !p.expectKind(n, yaml.MappingNode, "recipe_types") {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		if tmpl, ok := p.str(resolve(n.Content[i+1]), "recipe_types."+name); ok {
			list.RecipeTypes.Set(name, tmpl)
		}
	}
}

func (p *parser) requirementGroups(list *ResourceList, n *yaml.Node) {
	if !p.expectKind(n, yaml.MappingNode, "requirement_groups") {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		path := "requirement_groups." + name
		val := resolve(n.Content[i+1])
		if !p.expectKind(val, yaml.SequenceNode, path) {
			continue
		}
		members := make([]string, 0, len(val.Content))
		for j, m := range val.Content {
			if s, ok := p.str(resolve(m), fmt.Sprintf("%s[%d]", path, j)); ok {
				members = append(members, s)
			}
		}
		list.RequirementGroups.Set(name, members)
	}
}

func (p *parser) stackSizes(list *ResourceList, n *yaml.Node) {
	if !p.expectKind(n, yaml.MappingNode, "stack_sizes") {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		path := "stack_sizes." + key.Value
		val := resolve(n.Content[i+1])
		if !p.expectKind(val, yaml.MappingNode, path) {
			continue
		}
		ss := &StackSize{Name: key.Value, Pos: Position{Line: key.Line, Column: key.Column}}
		p.fields(val, path, map[string]func(*yaml.Node, string){
			"quantity_multiplier": func(v *yaml.Node, fp string) { ss.QuantityMultiplier, _ = p.integer(v, fp) },
			"plural":              func(v *yaml.Node, fp string) { ss.Plural, _ = p.str(v, fp) },
		})
		if ss.QuantityMultiplier < 1 {
			p.errorf(key, path+".quantity_multiplier", "must be a positive integer")
		}
		list.StackSizes.Set(key.Value, ss)
	}
}

func (p *parser) resources(list *ResourceList, n *yaml.Node) {
	if !p.expectKind(n, yaml.MappingNode, "resources") {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		name := key.Value
		path := "resources." + name
		if list.Resources.Has(name) {
			p.errorf(key, path, "duplicate resource")
			continue
		}
		val := resolve(n.Content[i+1])
		if !p.expectKind(val, yaml.MappingNode, path) {
			continue
		}

		res := &Resource{Name: name, Pos: Position{Line: key.Line, Column: key.Column}}
		p.fields(val, path, map[string]func(*yaml.Node, string){
			"custom_simplename": func(v *yaml.Node, fp string) { res.CustomSimpleName, _ = p.str(v, fp) },
			"custom_stacksize":  func(v *yaml.Node, fp string) { res.CustomStackSize, _ = p.str(v, fp) },
			"recipes":           func(v *yaml.Node, fp string) { res.Recipes = p.recipes(v, fp) },
		})
		list.Resources.Set(name, res)
	}
}

func (p *parser) recipes(n *yaml.Node, path string) []*Recipe {
	if !p.expectKind(n, yaml.SequenceNode, path) {
		return nil
	}
	out := make([]*Recipe, 0, len(n.Content))
	for i, item := range n.Content {
		rpath := fmt.Sprintf("%s[%d]", path, i)
		item = resolve(item)
		if !p.expectKind(item, yaml.MappingNode, rpath) {
			continue
		}
		r := &Recipe{
			Requirements: &OrderedMap[int]{},
			Pos:          Position{Line: item.Line, Column: item.Column},
		}
		p.fields(item, rpath, map[string]func(*yaml.Node, string){
			"recipe_type":  func(v *yaml.Node, fp string) { r.RecipeType, _ = p.str(v, fp) },
			"output":       func(v *yaml.Node, fp string) { r.Output, _ = p.integer(v, fp) },
			"requirements": func(v *yaml.Node, fp string) { p.requirements(r, v, fp) },
		})
		out = append(out, r)
	}
	return out
}

func (p *parser) requirements(r *Recipe, n *yaml.Node, path string) {
	if !p.expectKind(n, yaml.MappingNode, path) {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		if qty, ok := p.integer(resolve(n.Content[i+1]), path+"."+name); ok {
			r.Requirements.Set(name, qty)
		}
	}
}

// fields dispatches each key of mapping n to its handler and reports keys
// without one.
func (p *parser) fields(n *yaml.Node, path string, handlers map[string]func(*yaml.Node, string)) {
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		fp := path + "." + key.Value
		h, ok := handlers[key.Value]
		if !ok {
			p.errorf(key, fp, "unknown field")
			continue
		}
		h(resolve(n.Content[i+1]), fp)
	}
}

func (p *parser) str(n *yaml.Node, path string) (string, bool) {
	if n.Kind != yaml.ScalarNode {
		p.errorf(n, path, "expected a string")
		return "", false
	}
	return n.Value, true
}

func (p *parser) integer(n *yaml.Node, path string) (int, bool) {
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!int" {
		p.errorf(n, path, "expected an integer, got %q", n.Value)
		return 0, false
	}
	var v int
	if err := n.Decode(&v); err != nil {
		p.errorf(n, path, "%v", err)
		return 0, false
	}
	return v, true
}

func (p *parser) expectKind(n *yaml.Node, kind yaml.Kind, path string) bool {
	if n.Kind == kind {
		return true
	}
	want := map[yaml.Kind]string{
		yaml.MappingNode:  "a mapping",
		yaml.SequenceNode: "a sequence",
		yaml.ScalarNode:   "a scalar",
	}[kind]
	p.errorf(n, path, "expected %s", want)
	return false
}

func (p *parser) errorf(n *yaml.Node, path, format string, args ...any) {
	p.errs = append(p.errs, TokenError{
		Position: Position{Line: n.Line, Column: n.Column},
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
	})
}

// resolve follows alias nodes to their anchors.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
