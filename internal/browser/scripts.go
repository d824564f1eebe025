package browser

import (
	"encoding/json"
	"fmt"

	"calc-assistant/internal/ui"
)

// bindingName is the page-side function the mutation observer calls.
const bindingName = "__calcMutation"

// handleAttr tags elements so handles survive between snapshots.
const handleAttr = "data-calc-handle"

// observerScript installs one MutationObserver per document that reports
// structural changes through the binding.
var observerScript = fmt.Sprintf(`(() => {
	if (window.__calcObserver) return true;
	const start = () => {
		window.__calcObserver = new MutationObserver(() => {
			if (typeof window.%[1]s === "function") window.%[1]s("");
		});
		window.__calcObserver.observe(document.documentElement, {childList: true, subtree: true});
	};
	if (document.documentElement) start();
	else document.addEventListener("DOMContentLoaded", start);
	return true;
})()`, bindingName)

// snapshotScript returns the page's interactive elements as a JSON string.
var snapshotScript = fmt.Sprintf(`(() => {
	const attr = %[1]q;
	window.__calcSeq = window.__calcSeq || 0;
	const handleOf = (el) => {
		if (!el.hasAttribute(attr)) el.setAttribute(attr, "e" + (++window.__calcSeq));
		return el.getAttribute(attr);
	};
	const cardSel = 'div[class*="calculator-card"]';
	const nodes = document.querySelectorAll('input, textarea, select, button, form, h1, h2, ' + cardSel);
	const out = [];
	for (const el of nodes) {
		const tag = el.tagName.toLowerCase();
		let kind = "input";
		if (tag === "input" && (el.type || "").toLowerCase() === "number") kind = "number";
		else if (tag === "select") kind = "select";
		else if (tag === "button") kind = "button";
		else if (tag === "form") kind = "form";
		else if (tag === "h1" || tag === "h2") kind = "heading";
		else if (tag === "div") kind = "card";
		const card = kind === "card" ? null : el.closest(cardSel);
		out.push({
			handle: handleOf(el),
			kind: kind,
			tag: tag,
			type: el.type || "",
			id: el.id || "",
			text: (kind === "input" || kind === "number") ? "" : (el.textContent || "").trim(),
			placeholder: el.placeholder || "",
			value: (el.value === undefined || el.value === null) ? "" : String(el.value),
			options: tag === "select" ? Array.from(el.options).map(o => o.value) : undefined,
			container: card ? handleOf(card) : ""
		});
	}
	return JSON.stringify(out);
})()`, handleAttr)

func decodeSnapshot(raw string) ([]ui.Element, error) {
	var elements []ui.Element
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return elements, nil
}

// fillScript sets an element's value and dispatches input, plus change when
// commit is set. For selects an option whose value or text contains the
// requested value is used when there is no exact match. It evaluates to
// false when the element is gone.
func fillScript(h ui.Handle, value string, commit bool) string {
	return fmt.Sprintf(`((handle, value, commit) => {
	const el = document.querySelector('[%s="' + handle + '"]');
	if (!el) return false;
	if (el.tagName.toLowerCase() === "select") {
		const opts = Array.from(el.options);
		const want = value.toLowerCase();
		const opt = opts.find(o => o.value === value) ||
			opts.find(o => o.value.toLowerCase().includes(want) || o.text.toLowerCase().includes(want));
		el.value = opt ? opt.value : value;
	} else {
		el.value = value;
	}
	el.dispatchEvent(new Event("input", {bubbles: true}));
	if (commit) el.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
})(%s, %s, %t)`, handleAttr, jsString(string(h)), jsString(value), commit)
}

// clickScript clicks an element by handle and evaluates to false when it is gone.
func clickScript(h ui.Handle) string {
	return fmt.Sprintf(`((handle) => {
	const el = document.querySelector('[%s="' + handle + '"]');
	if (!el) return false;
	el.click();
	return true;
})(%s)`, handleAttr, jsString(string(h)))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
