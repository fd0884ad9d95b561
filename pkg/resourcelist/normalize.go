// SPDX-License-Identifier: MPL-2.0

package resourcelist

import "fmt"

// Normalize applies ExpandRawResources and then FillDefaultRequirementGroups.
func Normalize(list *ResourceList) []TokenError {
	ExpandRawResources(list)
	return FillDefaultRequirementGroups(list)
}

// ExpandRawResources rewrites the "Raw Resource" shorthand. A raw recipe with
// zero output and no requirements becomes a one-unit recipe that requires the
// resource itself. The self-requirement quantity is 0.
func ExpandRawResources(list *ResourceList) {
	for name, res := range list.Resources.All() {
		for _, r := range res.Recipes {
			if r.RecipeType != RecipeTypeRawResource || r.Output != 0 || r.Requirements.Len() != 0 {
				continue
			}
			r.Output = 1
			r.Requirements = &OrderedMap[int]{}
			r.Requirements.Set(name, 0)
		}
	}
}

// FillDefaultRequirementGroups replaces every requirement that names a
// requirement group with the group's first member, keeping the requested
// quantity. Only the first member is ever selected; alternatives are not
// modelled. A group with no members, or whose first member is itself a
// group, cannot be resolved and is reported.
func FillDefaultRequirementGroups(list *ResourceList) []TokenError {
	var errs []TokenError
	for name, res := range list.Resources.All() {
		for i, r := range res.Recipes {
			for _, req := range r.Requirements.Keys() {
				members, ok := list.RequirementGroups.Get(req)
				if !ok {
					continue
				}
				path := fmt.Sprintf("resources.%s.recipes[%d].requirements.%s", name, i, req)
				if len(members) == 0 {
					errs = append(errs, TokenError{Position: r.Pos, Path: path, Message: "requirement group has no members"})
					continue
				}
				if list.RequirementGroups.Has(members[0]) {
					errs = append(errs, TokenError{
						Position: r.Pos,
						Path:     path,
						Message:  fmt.Sprintf("first member %q of requirement group is itself a group", members[0]),
					})
					continue
				}
				qty, _ := r.Requirements.Get(req)
				r.Requirements.Delete(req)
				r.Requirements.Set(members[0], qty)
			}
		}
	}
	return errs
}

// Validate reports requirements that reference neither a resource nor a
// requirement group, and stack size references that name no stack size.
func Validate(list *ResourceList) []TokenError {
	var errs []TokenError
	if d := list.DefaultStackSize; d != "" && !list.StackSizes.Has(d) {
		errs = append(errs, TokenError{Path: "default_stack_size", Message: fmt.Sprintf("unknown stack size %q", d)})
	}
	for name, res := range list.Resources.All() {
		if ss := res.CustomStackSize; ss != "" && !list.StackSizes.Has(ss) {
			errs = append(errs, TokenError{
				Position: res.Pos,
				Path:     fmt.Sprintf("resources.%s.custom_stacksize", name),
				Message:  fmt.Sprintf("unknown stack size %q", ss),
			})
		}
		for i, r := range res.Recipes {
			for req := range r.Requirements.All() {
				if list.Resources.Has(req) || list.RequirementGroups.Has(req) {
					continue
				}
				errs = append(errs, TokenError{
					Position: r.Pos,
					Path:     fmt.Sprintf("resources.%s.recipes[%d].requirements.%s", name, i, req),
					Message:  fmt.Sprintf("unknown resource %q", req),
				})
			}
		}
	}
	return errs
}
