package ui

import "strings"

// Source is an element attribute a fragment may be matched against.
type Source int

const (
	SourceText Source = iota
	SourcePlaceholder
	SourceID
	SourceValue
)

var defaultSources = []Source{SourceText, SourcePlaceholder}

// Descriptor is one heuristic for locating an element.
type Descriptor struct {
	// Kind restricts candidates; empty accepts any kind.
	Kind Kind
	// Fragments are tried in order. An earlier fragment matching anywhere in
	// the snapshot beats a later fragment matching an earlier element.
	Fragments []string
	// Sources defaults to visible text and placeholder.
	Sources []Source
	// Exact requires equality instead of containment.
	Exact bool
	// Within restricts candidates to the given container.
	Within Handle
	// Exclude rejects elements whose text contains any of these.
	Exclude []string
}

func (d Descriptor) accepts(e Element) bool {
	if d.Kind != "" && e.Kind != d.Kind {
		return false
	}
	if d.Within != "" && e.Container != d.Within {
		return false
	}
	for _, x := range d.Exclude {
		if strings.Contains(e.Text, x) {
			return false
		}
	}
	return true
}

func (d Descriptor) matches(e Element, fragment string) bool {
	sources := d.Sources
	if len(sources) == 0 {
		sources = defaultSources
	}
	for _, src := range sources {
		var attr string
		switch src {
		case SourceText:
			attr = e.Text
		case SourcePlaceholder:
			attr = e.Placeholder
		case SourceID:
			attr = e.ID
		case SourceValue:
			attr = e.Value
		}
		if d.Exact {
			if attr == fragment {
				return true
			}
		} else if fragment != "" && strings.Contains(attr, fragment) {
			return true
		}
	}
	return false
}

// Find returns the first element in document order matching the highest
// priority fragment that matches at all.
func Find(elements []Element, d Descriptor) (Element, bool) {
	if len(d.Fragments) == 0 {
		for _, e := range elements {
			if d.accepts(e) {
				return e, true
			}
		}
		return Element{}, false
	}
	for _, fragment := range d.Fragments {
		for _, e := range elements {
			if d.accepts(e) && d.matches(e, fragment) {
				return e, true
			}
		}
	}
	return Element{}, false
}

// Strategies is an ordered list of descriptors for one field. New page
// layouts are supported by appending a descriptor.
type Strategies []Descriptor

// Find returns the result of the first descriptor that matches.
func (s Strategies) Find(elements []Element) (Element, bool) {
	for _, d := range s {
		if e, ok := Find(elements, d); ok {
			return e, true
		}
	}
	return Element{}, false
}

// Predicate reports whether a snapshot contains the awaited element.
type Predicate func(elements []Element) (Element, bool)

// Matching adapts a descriptor to a Predicate.
func Matching(d Descriptor) Predicate {
	return func(elements []Element) (Element, bool) {
		return Find(elements, d)
	}
}

// OfKind waits for any element of kind k.
func OfKind(k Kind) Predicate {
	return Matching(Descriptor{Kind: k})
}
