// SPDX-License-Identifier: MPL-2.0

package producer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

const (
	// CategoryCore labels shared site assets from the core directory.
	CategoryCore Category = "core"
	// CategoryCalculator labels per-calculator producers.
	CategoryCalculator Category = "calculator"
	// CategoryHTML labels producers that render pages.
	CategoryHTML Category = "html"
	// CategoryImage labels producers that write images.
	CategoryImage Category = "image"
	// CategoryPlugin labels plugin publication.
	CategoryPlugin Category = "plugin"
)

var (
	// ErrArity is the sentinel wrapped by ArityError.
	ErrArity = errors.New("output arity mismatch")
	// ErrInvalidProducer is returned when a producer cannot be registered.
	ErrInvalidProducer = errors.New("invalid producer")
)

type (
	// Category is a label used to include or exclude producers from a run.
	Category string

	// Match is the result of a producer claiming a source path.
	Match struct {
		// Path is the slash-separated source path relative to the build root.
		Path string
		// Producer is the claiming producer.
		Producer *Producer
		// Pattern is the first pattern of Producer that matched Path.
		Pattern *regexp.Regexp
		// Groups holds the full match at index 0 followed by capture groups.
		Groups []string
		// Named maps named capture groups to their values.
		Named map[string]string
	}

	// Activation is everything a transform receives for one invocation.
	Activation struct {
		Match
		// Outputs are the resolved output paths.
		Outputs []string
		// Inputs are the resolved extra inputs (aggregate producers), not
		// including Match.Path.
		Inputs []string
	}

	// OutputResolver derives output paths from a match.
	OutputResolver func(m Match) ([]string, error)

	// InputResolver derives additional input paths from a match. Directories
	// are treated as aggregate inputs and considered recursively.
	InputResolver func(m Match) ([]string, error)

	// TransformFunc performs the side-effecting writes of a producer.
	TransformFunc func(ctx context.Context, act Activation) error

	// Producer is a named transformation unit.
	Producer struct {
		Name       string
		Patterns   []*regexp.Regexp
		Outputs    OutputResolver
		Inputs     InputResolver
		Transform  TransformFunc
		Categories []Category
	}

	// ArityError reports that a transform was handed a different number of
	// outputs than it writes. It is a configuration error.
	ArityError struct {
		Producer string
		Input    string
		Want     int
		Got      []string
	}
)

func (e *ArityError) Error() string {
	return fmt.Sprintf("producer %q: %s must map to %d output(s), got %d %v",
		e.Producer, e.Input, e.Want, len(e.Got), e.Got)
}

// Unwrap returns ErrArity for errors.Is compatibility.
func (e *ArityError) Unwrap() error { return ErrArity }

// HasCategory reports whether p carries category c.
func (p *Producer) HasCategory(c Category) bool {
	return slices.Contains(p.Categories, c)
}

// HasAnyCategory reports whether p carries at least one of cs.
func (p *Producer) HasAnyCategory(cs []Category) bool {
	return slices.ContainsFunc(cs, p.HasCategory)
}

// MatchPath tests the producer's patterns against path in order. The first
// pattern that matches determines the captures.
func (p *Producer) MatchPath(path string) (Match, bool) {
	for _, re := range p.Patterns {
		groups := re.FindStringSubmatch(path)
		if groups == nil {
			continue
		}
		m := Match{
			Path:     path,
			Producer: p,
			Pattern:  re,
			Groups:   groups,
		}
		for i, name := range re.SubexpNames() {
			if name == "" || i >= len(groups) {
				continue
			}
			if m.Named == nil {
				m.Named = make(map[string]string)
			}
			m.Named[name] = groups[i]
		}
		return m, true
	}
	return Match{}, false
}

func (p *Producer) validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: nil producer", ErrInvalidProducer)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: empty name", ErrInvalidProducer)
	case len(p.Patterns) == 0:
		return fmt.Errorf("%w: %q has no input patterns", ErrInvalidProducer, p.Name)
	case p.Outputs == nil:
		return fmt.Errorf("%w: %q has no output resolver", ErrInvalidProducer, p.Name)
	case p.Transform == nil:
		return fmt.Errorf("%w: %q has no transform", ErrInvalidProducer, p.Name)
	}
	if slices.Contains(p.Patterns, nil) {
		return fmt.Errorf("%w: %q has a nil pattern", ErrInvalidProducer, p.Name)
	}
	return nil
}

// ExpectOutputs returns an ArityError unless act carries exactly n outputs.
func ExpectOutputs(act Activation, n int) error {
	if len(act.Outputs) == n {
		return nil
	}
	name := ""
	if act.Producer != nil {
		name = act.Producer.Name
	}
	return &ArityError{Producer: name, Input: act.Path, Want: n, Got: slices.Clone(act.Outputs)}
}

// Static returns an OutputResolver that always yields paths.
func Static(paths ...string) OutputResolver {
	fixed := slices.Clone(paths)
	return func(Match) ([]string, error) {
		return slices.Clone(fixed), nil
	}
}

// Substitute returns an OutputResolver that expands each template with the
// match's captures using regexp template syntax ($1, ${name}).
func Substitute(templates ...string) OutputResolver {
	fixed := slices.Clone(templates)
	return func(m Match) ([]string, error) {
		if m.Pattern == nil {
			return nil, fmt.Errorf("substitute outputs for %s: match has no pattern", m.Path)
		}
		idx := m.Pattern.FindStringSubmatchIndex(m.Path)
		if idx == nil {
			return nil, fmt.Errorf("substitute outputs for %s: pattern no longer matches", m.Path)
		}
		out := make([]string, 0, len(fixed))
		for _, tmpl := range fixed {
			out = append(out, string(m.Pattern.ExpandString(nil, tmpl, m.Path, idx)))
		}
		return out, nil
	}
}

// StaticInputs returns an InputResolver that always yields paths.
func StaticInputs(paths ...string) InputResolver {
	fixed := slices.Clone(paths)
	return func(Match) ([]string, error) {
		return slices.Clone(fixed), nil
	}
}

// MustCompile compiles each pattern, panicking on invalid syntax. Intended
// for producer tables assembled at start-up.
func MustCompile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// Exact returns a pattern matching exactly path.
func Exact(path string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(path) + "$")
}
