// Package events carries run progress to whoever is watching: websocket
// clients, NATS subscribers, or nobody.
package events

import (
	"context"
	"errors"
	"time"

	"calc-assistant/internal/report"
)

// Stage is a point in a run's life.
type Stage string

const (
	StageProcessing  Stage = "processing"
	StageConfiguring Stage = "configuring"
	StageItem        Stage = "item"
	StageFinished    Stage = "finished"
)

// Event is one progress update. Finished events carry the run's exit signal
// in Success, Report and Error.
type Event struct {
	RunID   string         `json:"runId"`
	Stage   Stage          `json:"stage"`
	Query   string         `json:"query,omitempty"`
	Index   int            `json:"index,omitempty"`
	Total   int            `json:"total,omitempty"`
	Item    *report.Item   `json:"item,omitempty"`
	Success bool           `json:"success"`
	Report  *report.Report `json:"report,omitempty"`
	Error   string         `json:"error,omitempty"`
	Time    time.Time      `json:"time"`
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, evt Event) error

func (f PublisherFunc) Publish(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
