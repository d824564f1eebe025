// Package uitest provides an in-memory ui.Document whose content can be
// scripted to change in response to clicks and fills, the way the calculator
// re-renders after each interaction.
package uitest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"calc-assistant/internal/ui"
)

// ErrUnknownHandle is returned for interactions with elements not on the page.
var ErrUnknownHandle = errors.New("uitest: element not on page")

// Fill records one Fill call.
type Fill struct {
	Handle ui.Handle
	Value  string
	Commit bool
}

// Page is a scriptable ui.Document. The zero value is an empty page.
type Page struct {
	mu          sync.Mutex
	elements    []ui.Element
	subscribers map[int]chan struct{}
	nextSub     int
	timers      []*time.Timer

	onClick map[ui.Handle]func(p *Page)
	onFill  map[ui.Handle]func(p *Page, value string)

	clicks []ui.Handle
	fills  []Fill
	url    string
	title  string

	// SnapshotHook, when set, runs at the start of every Snapshot.
	SnapshotHook func()
}

// NewPage returns a page holding elements.
func NewPage(elements ...ui.Element) *Page {
	p := &Page{}
	p.elements = append(p.elements, elements...)
	return p
}

func (p *Page) Snapshot(ctx context.Context) ([]ui.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	hook := p.SnapshotHook
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ui.Element, len(p.elements))
	copy(out, p.elements)
	return out, nil
}

func (p *Page) Subscribe(context.Context) (<-chan struct{}, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subscribers == nil {
		p.subscribers = make(map[int]chan struct{})
	}
	id := p.nextSub
	p.nextSub++
	ch := make(chan struct{}, 1)
	p.subscribers[id] = ch
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
	}, nil
}

// Subscribers reports how many subscriptions are open.
func (p *Page) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers)
}

func (p *Page) Click(ctx context.Context, h ui.Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if !p.hasLocked(h) {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	p.clicks = append(p.clicks, h)
	hook := p.onClick[h]
	p.mu.Unlock()
	if hook != nil {
		hook(p)
	}
	return nil
}

func (p *Page) Fill(ctx context.Context, h ui.Handle, value string, commit bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	idx := p.indexLocked(h)
	if idx < 0 {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	p.elements[idx].Value = value
	p.fills = append(p.fills, Fill{Handle: h, Value: value, Commit: commit})
	hook := p.onFill[h]
	p.mu.Unlock()
	if hook != nil {
		hook(p, value)
	}
	return nil
}

// OnClick registers fn to run after h is clicked.
func (p *Page) OnClick(h ui.Handle, fn func(p *Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.onClick == nil {
		p.onClick = make(map[ui.Handle]func(*Page))
	}
	p.onClick[h] = fn
}

// OnFill registers fn to run after h is filled.
func (p *Page) OnFill(h ui.Handle, fn func(p *Page, value string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.onFill == nil {
		p.onFill = make(map[ui.Handle]func(*Page, string))
	}
	p.onFill[h] = fn
}

// Add appends elements and notifies subscribers.
func (p *Page) Add(elements ...ui.Element) {
	p.mu.Lock()
	p.elements = append(p.elements, elements...)
	p.notifyLocked()
	p.mu.Unlock()
}

// Remove drops the elements with the given handles and notifies subscribers.
func (p *Page) Remove(handles ...ui.Handle) {
	drop := make(map[ui.Handle]bool, len(handles))
	for _, h := range handles {
		drop[h] = true
	}
	p.mu.Lock()
	kept := p.elements[:0]
	for _, e := range p.elements {
		if !drop[e.Handle] {
			kept = append(kept, e)
		}
	}
	p.elements = kept
	p.notifyLocked()
	p.mu.Unlock()
}

// Replace swaps the whole page content and notifies subscribers.
func (p *Page) Replace(elements ...ui.Element) {
	p.mu.Lock()
	p.elements = append([]ui.Element(nil), elements...)
	p.notifyLocked()
	p.mu.Unlock()
}

// Touch notifies subscribers without changing content.
func (p *Page) Touch() {
	p.mu.Lock()
	p.notifyLocked()
	p.mu.Unlock()
}

// After runs fn once d has elapsed. Pending calls are dropped by Close.
func (p *Page) After(d time.Duration, fn func(p *Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timers = append(p.timers, time.AfterFunc(d, func() { fn(p) }))
}

// Close stops pending After calls.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.timers {
		t.Stop()
	}
	p.timers = nil
}

// Element returns the current state of h.
func (p *Page) Element(h ui.Handle) (ui.Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx := p.indexLocked(h); idx >= 0 {
		return p.elements[idx], true
	}
	return ui.Element{}, false
}

// Clicks returns the handles clicked so far, in order.
func (p *Page) Clicks() []ui.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ui.Handle(nil), p.clicks...)
}

// Fills returns the fills made so far, in order.
func (p *Page) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Fill(nil), p.fills...)
}

// SetLocation sets what URL and Title report.
func (p *Page) SetLocation(url, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url, p.title = url, title
}

func (p *Page) URL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *Page) Title(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title, nil
}

func (p *Page) notifyLocked() {
	for _, ch := range p.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (p *Page) hasLocked(h ui.Handle) bool {
	return p.indexLocked(h) >= 0
}

func (p *Page) indexLocked(h ui.Handle) int {
	for i, e := range p.elements {
		if e.Handle == h {
			return i
		}
	}
	return -1
}
