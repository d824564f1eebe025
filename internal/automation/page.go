package automation

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"calc-assistant/internal/ui"
)

const (
	// DefaultPageName is reported when nothing on the page names a service.
	DefaultPageName = "AWS Pricing Calculator"
	// ServiceSelectionPage is reported while service cards are listed.
	ServiceSelectionPage = "service selection"
)

// PageReady reports whether doc shows the add-service screen.
func PageReady(ctx context.Context, doc ui.Document) (bool, error) {
	elements, err := doc.Snapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("read page: %w", err)
	}
	_, ok := searchEntry.Find(elements)
	return ok, nil
}

// IsCalculatorURL reports whether raw points at the pricing calculator
// configured as home.
func IsCalculatorURL(raw, home string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	h, err := url.Parse(home)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, h.Host)
}

var configureHeading = regexp.MustCompile(`(?:Configure|設定)\s+([A-Za-z0-9 ]+)`)

// DetectCurrentService names the service the page is showing. Later cues
// override earlier ones: URL path, title, configuration heading, then the
// presence of service cards.
func DetectCurrentService(ctx context.Context, doc ui.Document) (string, error) {
	name := DefaultPageName

	if info, ok := doc.(ui.PageInfo); ok {
		if raw, err := info.URL(ctx); err == nil {
			if svc := serviceFromURL(raw); svc != "" {
				name = svc
			}
		}
		if title, err := info.Title(ctx); err == nil {
			if before, _, found := strings.Cut(title, "-"); found && strings.TrimSpace(before) != "" {
				name = strings.TrimSpace(before)
			}
		}
	}

	elements, err := doc.Snapshot(ctx)
	if err != nil {
		return name, fmt.Errorf("read page: %w", err)
	}
	for _, e := range elements {
		if e.Kind != ui.KindHeading {
			continue
		}
		if strings.Contains(e.Text, "Calculator") || strings.Contains(e.Text, "計算器") {
			continue
		}
		if m := configureHeading.FindStringSubmatch(e.Text); m != nil {
			name = strings.TrimSpace(m[1])
			break
		}
	}
	for _, e := range elements {
		if e.Kind == ui.KindCard {
			name = ServiceSelectionPage
			break
		}
	}
	return name, nil
}

// serviceFromURL returns the path segment after "configure", upper-cased.
// The calculator routes in the fragment, so both path and fragment are read.
func serviceFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	for _, p := range []string{u.Path, u.Fragment} {
		segments := strings.Split(p, "/")
		for i, seg := range segments {
			if seg == "configure" && i+1 < len(segments) && segments[i+1] != "" {
				return strings.ToUpper(segments[i+1])
			}
		}
	}
	return ""
}
