package ui_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"calc-assistant/internal/ui"
	"calc-assistant/internal/ui/uitest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var formPresent = ui.OfKind(ui.KindForm)

func TestAwaitAppearance_AlreadyPresent(t *testing.T) {
	page := uitest.NewPage(ui.Element{Handle: "f", Kind: ui.KindForm})
	defer page.Close()

	start := time.Now()
	got, ok := ui.AwaitAppearance(context.Background(), page, formPresent, time.Second)
	require.True(t, ok)
	assert.Equal(t, ui.Handle("f"), got.Handle)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Zero(t, page.Subscribers())
}

func TestAwaitAppearance_AppearsAfterMutation(t *testing.T) {
	page := uitest.NewPage(ui.Element{Handle: "h", Kind: ui.KindHeading})
	defer page.Close()

	page.After(50*time.Millisecond, func(p *uitest.Page) {
		p.Add(ui.Element{Handle: "noise", Kind: ui.KindButton})
	})
	page.After(100*time.Millisecond, func(p *uitest.Page) {
		p.Add(ui.Element{Handle: "f", Kind: ui.KindForm})
	})

	got, ok := ui.AwaitAppearance(context.Background(), page, formPresent, 5*time.Second)
	require.True(t, ok)
	assert.Equal(t, ui.Handle("f"), got.Handle)
	assert.Zero(t, page.Subscribers())
}

func TestAwaitAppearance_TimeoutUnsubscribes(t *testing.T) {
	page := uitest.NewPage()
	defer page.Close()

	start := time.Now()
	_, ok := ui.AwaitAppearance(context.Background(), page, formPresent, 80*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Zero(t, page.Subscribers())
}

func TestAwaitAppearance_ContextCancelled(t *testing.T) {
	page := uitest.NewPage()
	defer page.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := ui.AwaitAppearance(ctx, page, formPresent, time.Minute)
	assert.False(t, ok)
}

// pollingDoc cannot deliver notifications.
type pollingDoc struct {
	*uitest.Page
}

func (pollingDoc) Subscribe(context.Context) (<-chan struct{}, func(), error) {
	return nil, nil, errors.New("notifications unavailable")
}

func TestAwaitAppearance_FallsBackToPolling(t *testing.T) {
	page := uitest.NewPage()
	defer page.Close()
	page.After(30*time.Millisecond, func(p *uitest.Page) {
		p.Add(ui.Element{Handle: "f", Kind: ui.KindForm})
	})

	got, ok := ui.AwaitAppearance(context.Background(), pollingDoc{page}, formPresent, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, ui.Handle("f"), got.Handle)
}
