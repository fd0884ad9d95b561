// SPDX-License-Identifier: MPL-2.0

package resourcelist

import (
	"fmt"
	"strings"
)

// RecipeTypeRawResource marks a resource that is gathered rather than crafted.
const RecipeTypeRawResource = "Raw Resource"

type (
	// Position is a location in the source document.
	Position struct {
		Line   int
		Column int
	}

	// TokenError is a parse or validation error tied to a document token.
	TokenError struct {
		Position
		// Path locates the token in the document tree, e.g.
		// "resources.Iron Plate.recipes[0].output".
		Path    string
		Message string
	}

	// Author credits a contributor of the resource list.
	Author struct {
		Name string
		Link string
	}

	// Recipe is one way to obtain units of a resource.
	Recipe struct {
		RecipeType string
		// Output is the number of units produced per craft.
		Output int
		// Requirements maps a required resource (or, before normalization, a
		// requirement group) to its quantity.
		Requirements *OrderedMap[int]
		Pos          Position
	}

	// StackSize is a container unit quantities can be displayed in, such as
	// a stack of 64 or a fluid tank.
	StackSize struct {
		Name string
		// QuantityMultiplier is the number of units one stack holds.
		QuantityMultiplier int
		Plural             string
		Pos                Position
	}

	// Resource is a craftable or gatherable entity.
	Resource struct {
		Name string
		// CustomSimpleName overrides the derived simple name when set.
		CustomSimpleName string
		// CustomStackSize names the stack size of this resource, overriding
		// the list default.
		CustomStackSize string
		Recipes         []*Recipe
		Pos             Position
	}

	// ResourceList is the parsed document for one calculator.
	ResourceList struct {
		IndexPageDisplayName string
		Authors              []Author
		// RecipeTypes maps a recipe type to its display template.
		RecipeTypes *OrderedMap[string]
		// RequirementGroups maps a group name to interchangeable members.
		RequirementGroups *OrderedMap[[]string]
		// StackSizes maps a stack size name to its definition.
		StackSizes *OrderedMap[*StackSize]
		// DefaultStackSize applies to resources without a custom one.
		DefaultStackSize string
		// Resources maps a display name to its resource, in document order.
		Resources *OrderedMap[*Resource]
	}
)

func (e TokenError) Error() string {
	var sb strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&sb, "%d:%d: ", e.Line, e.Column)
	}
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// New returns an empty ResourceList.
func New() *ResourceList {
	return &ResourceList{
		RecipeTypes:       &OrderedMap[string]{},
		RequirementGroups: &OrderedMap[[]string]{},
		StackSizes:        &OrderedMap[*StackSize]{},
		Resources:         &OrderedMap[*Resource]{},
	}
}

// SimpleName returns the resource's URL and CSS safe identifier.
func (r *Resource) SimpleName() string {
	if r.CustomSimpleName != "" {
		return r.CustomSimpleName
	}
	return SimpleName(r.Name)
}

// SimpleName lower-cases name and drops every character outside [a-z0-9].
func SimpleName(name string) string {
	lower := strings.ToLower(name)
	var sb strings.Builder
	sb.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SimpleNameOf returns the simple name of the resource called name, honoring
// its override. Unknown names fall back to the derived form.
func (l *ResourceList) SimpleNameOf(name string) string {
	if r, ok := l.Resources.Get(name); ok {
		return r.SimpleName()
	}
	return SimpleName(name)
}

// StackSizeOf returns the stack size name used for r: its own override, else
// the list default. Empty means quantities are shown as plain units.
func (l *ResourceList) StackSizeOf(r *Resource) string {
	if r.CustomStackSize != "" {
		return r.CustomStackSize
	}
	return l.DefaultStackSize
}
