// Package report folds per-service automation results into the summary shown
// to the user.
package report

import (
	"fmt"
	"strings"

	"calc-assistant/internal/automation"
	"calc-assistant/internal/service"
)

// GenericTips are offered when the remote tier produced no advice of its own.
var GenericTips = []string{
	"Consider Reserved Instances or Savings Plans to lower EC2 and RDS costs",
	"Use S3 Infrequent Access or Glacier storage classes for rarely accessed S3 data",
	"Set up auto scaling so resources follow demand",
}

// Item is one line of the report.
type Item struct {
	Kind        service.Kind       `json:"serviceKind"`
	DisplayName string             `json:"displayName"`
	Outcome     automation.Outcome `json:"outcome"`
	Message     string             `json:"message,omitempty"`
}

type Report struct {
	SuccessCount      int      `json:"successCount"`
	Items             []Item   `json:"items"`
	OptimizationNotes []string `json:"optimizationNotes"`
}

// Aggregate keeps results in order and counts successes. It has no failure
// modes; an empty input yields an empty report.
func Aggregate(results []automation.ActionResult, notes []string) Report {
	r := Report{
		Items:             make([]Item, 0, len(results)),
		OptimizationNotes: append([]string{}, notes...),
	}
	for _, res := range results {
		if res.Succeeded() {
			r.SuccessCount++
		}
		r.Items = append(r.Items, Item{
			Kind:        res.Kind,
			DisplayName: res.Kind.DisplayName(),
			Outcome:     res.Outcome,
			Message:     res.Message,
		})
	}
	return r
}

// NotesFor returns the notes to report for req: its own optimizations, or
// the generic tips for a remote request that carried none.
func NotesFor(req service.ParsedRequest) []string {
	if len(req.Optimizations) > 0 {
		return req.Optimizations
	}
	if req.Provenance == service.ProvenanceRemote {
		return GenericTips
	}
	return nil
}

// Total is the number of services attempted.
func (r Report) Total() int {
	return len(r.Items)
}

// Summary renders the report as plain text for terminals and logs.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Configured %d of %d services\n", r.SuccessCount, r.Total())
	for _, it := range r.Items {
		if it.Outcome == automation.OutcomeSuccess {
			fmt.Fprintf(&b, "  ✓ %s\n", it.DisplayName)
			continue
		}
		fmt.Fprintf(&b, "  ✗ %s: %s\n", it.DisplayName, it.Message)
	}
	if len(r.OptimizationNotes) > 0 {
		b.WriteString("Cost optimization tips:\n")
		for _, n := range r.OptimizationNotes {
			fmt.Fprintf(&b, "  - %s\n", n)
		}
	}
	return b.String()
}
