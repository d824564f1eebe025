// Package ui is the automation's view of the calculator page: a snapshot of
// interactive elements, mutation notifications, and the two primitives built
// on them, Find and AwaitAppearance.
package ui

import "context"

// Handle identifies an element across snapshots of the same page.
type Handle string

// Kind classifies an element for matching.
type Kind string

const (
	KindInput   Kind = "input"
	KindNumber  Kind = "number"
	KindSelect  Kind = "select"
	KindButton  Kind = "button"
	KindForm    Kind = "form"
	KindCard    Kind = "card"
	KindHeading Kind = "heading"
)

// Element is one interactive element as seen at snapshot time. For selects
// Text is the concatenated option text.
type Element struct {
	Handle      Handle   `json:"handle"`
	Kind        Kind     `json:"kind"`
	Tag         string   `json:"tag"`
	Type        string   `json:"type,omitempty"`
	ID          string   `json:"id,omitempty"`
	Text        string   `json:"text,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Value       string   `json:"value,omitempty"`
	Options     []string `json:"options,omitempty"`
	// Container is the handle of the enclosing service card, if any.
	Container Handle `json:"container,omitempty"`
}

// Document is the live page. Implementations must be safe for use from the
// goroutine running a single automation; no two calls overlap.
type Document interface {
	// Snapshot returns the page's interactive elements in document order.
	Snapshot(ctx context.Context) ([]Element, error)
	// Subscribe delivers a value after each structural change of the page.
	// Notifications may be coalesced. The returned func unsubscribes.
	Subscribe(ctx context.Context) (<-chan struct{}, func(), error)
	Click(ctx context.Context, h Handle) error
	// Fill sets the element's value and dispatches an input event, plus a
	// change event when commit is true.
	Fill(ctx context.Context, h Handle, value string, commit bool) error
}

// PageInfo is implemented by documents that know where they are.
type PageInfo interface {
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
}
