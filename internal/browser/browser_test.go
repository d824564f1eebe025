package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calc-assistant/internal/ui"
)

func TestNotifyHub(t *testing.T) {
	hub := newNotifyHub()
	a, unsubA := hub.subscribe()
	b, unsubB := hub.subscribe()
	require.Equal(t, 2, hub.count())

	// Repeated notifications coalesce instead of blocking.
	hub.notify()
	hub.notify()

	for _, ch := range []<-chan struct{}{a, b} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("no notification delivered")
		}
		select {
		case <-ch:
			t.Fatal("notifications were not coalesced")
		default:
		}
	}

	unsubA()
	unsubA()
	assert.Equal(t, 1, hub.count())
	unsubB()
	assert.Zero(t, hub.count())
	hub.notify()
}

func TestDecodeSnapshot(t *testing.T) {
	raw := `[
		{"handle":"e1","kind":"input","tag":"input","type":"search","placeholder":"Search services","value":""},
		{"handle":"e2","kind":"card","tag":"div","text":"Amazon EC2 Configure"},
		{"handle":"e3","kind":"button","tag":"button","text":"Configure","container":"e2"},
		{"handle":"e4","kind":"select","tag":"select","text":"MySQL PostgreSQL","options":["mysql","postgresql"]}
	]`
	elements, err := decodeSnapshot(raw)
	require.NoError(t, err)
	require.Len(t, elements, 4)
	assert.Equal(t, ui.Element{Handle: "e1", Kind: ui.KindInput, Tag: "input", Type: "search", Placeholder: "Search services"}, elements[0])
	assert.Equal(t, ui.Handle("e2"), elements[2].Container)
	assert.Equal(t, []string{"mysql", "postgresql"}, elements[3].Options)

	_, err = decodeSnapshot("not json")
	assert.Error(t, err)
}

func TestScriptsQuoteArguments(t *testing.T) {
	script := fillScript("e7", `1"); alert("x`, true)
	assert.Contains(t, script, `"1\"); alert(\"x"`)
	assert.Contains(t, script, `"e7", `)
	assert.Contains(t, script, "true)")
	assert.Contains(t, script, handleAttr)

	assert.Contains(t, fillScript("e1", "5", false), "false)")
	assert.Contains(t, clickScript("e9"), `("e9")`)
	assert.Contains(t, observerScript, bindingName)
	assert.Contains(t, snapshotScript, `"data-calc-handle"`)
}
