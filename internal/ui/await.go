package ui

import (
	"context"
	"time"
)

// pollInterval is used when a document cannot deliver notifications.
const pollInterval = 100 * time.Millisecond

// AwaitAppearance returns as soon as pred holds for a snapshot of doc. It
// checks once up front, then after every mutation notification, until the
// timeout or ctx ends. A miss is reported through ok, not as an error.
func AwaitAppearance(ctx context.Context, doc Document, pred Predicate, timeout time.Duration) (Element, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Subscribe before the first check so a change landing in between is
	// not lost.
	notify, unsubscribe, err := doc.Subscribe(ctx)
	if err != nil {
		notify, unsubscribe = nil, func() {}
	}
	defer unsubscribe()

	if e, ok := check(ctx, doc, pred); ok {
		return e, true
	}

	var tick <-chan time.Time
	if notify == nil {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return Element{}, false
		case _, open := <-notify:
			if !open {
				notify = nil
				ticker := time.NewTicker(pollInterval)
				defer ticker.Stop()
				tick = ticker.C
				continue
			}
		case <-tick:
		}
		if e, ok := check(ctx, doc, pred); ok {
			return e, true
		}
	}
}

func check(ctx context.Context, doc Document, pred Predicate) (Element, bool) {
	elements, err := doc.Snapshot(ctx)
	if err != nil {
		return Element{}, false
	}
	return pred(elements)
}
