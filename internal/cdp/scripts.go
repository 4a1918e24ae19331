package cdp

import (
	"encoding/json"
	"fmt"

	"github.com/aatumaykin/agentpilot/internal/variant"
)

// refAttr marks enumerated elements so a later Click can find them again.
const refAttr = "data-agentpilot-ref"

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

const rootJS = `const panelSel = %s;
  const root = (panelSel && document.querySelector(panelSel)) || document;`

const refJS = `let seq = window.__agentpilotSeq || 0;
  const refOf = (el, prefix) => {
    let ref = el.getAttribute(%[1]s);
    if (!ref) { ref = prefix + '-' + (++seq); el.setAttribute(%[1]s, ref); }
    return ref;
  };`

func controlsScript(sel variant.Selectors) string {
	return fmt.Sprintf(`(() => {
  %s
  %s
  const out = [];
  for (const el of root.querySelectorAll(%s)) {
    const r = el.getBoundingClientRect();
    const cs = window.getComputedStyle(el);
    out.push({
      ref: refOf(el, 'ctrl'),
      text: (el.innerText || el.textContent || el.getAttribute('aria-label') || el.title || '').trim(),
      width: r.width,
      height: r.height,
      hidden: !!el.hidden || cs.display === 'none' || cs.visibility === 'hidden',
      opacity: parseFloat(cs.opacity),
      disabled: !!el.disabled || el.getAttribute('aria-disabled') === 'true',
      pointerEventsNone: cs.pointerEvents === 'none',
    });
  }
  window.__agentpilotSeq = seq;
  return out;
})()`,
		fmt.Sprintf(rootJS, jsString(sel.Panel)),
		fmt.Sprintf(refJS, jsString(refAttr)),
		jsString(sel.Controls))
}

func tabsScript(sel variant.Selectors) string {
	return fmt.Sprintf(`(() => {
  %s
  %s
  const labelSel = %s;
  const doneSel = %s;
  const out = [];
  for (const el of root.querySelectorAll(%s)) {
    const label = labelSel ? el.querySelector(labelSel) : null;
    const next = el.nextElementSibling;
    out.push({
      ref: refOf(el, 'tab'),
      name: ((label || el).innerText || (label || el).textContent || '').trim(),
      selected: el.getAttribute('aria-selected') === 'true' || el.classList.contains('active') || el.classList.contains('selected'),
      background: window.getComputedStyle(el).backgroundColor,
      completed: !!doneSel && (!!el.querySelector(doneSel) || (!!next && next.matches(doneSel))),
    });
  }
  window.__agentpilotSeq = seq;
  return out;
})()`,
		fmt.Sprintf(rootJS, jsString(sel.Panel)),
		fmt.Sprintf(refJS, jsString(refAttr)),
		jsString(sel.TabLabel),
		jsString(sel.Completion),
		jsString(sel.Tab))
}

func clickScript(ref string) string {
	return fmt.Sprintf(`(() => {
  const el = document.querySelector('[' + %s + '=' + JSON.stringify(%s) + ']');
  if (!el) return false;
  el.click();
  return true;
})()`, jsString(refAttr), jsString(ref))
}

func clickSelectorScript(selector string) string {
	return fmt.Sprintf(`(() => {
  const sel = %s;
  const el = sel ? document.querySelector(sel) : null;
  if (!el) return false;
  el.click();
  return true;
})()`, jsString(selector))
}

func busyScript(sel variant.Selectors) string {
	return fmt.Sprintf(`(() => {
  const sel = %s;
  return !!(sel && document.querySelector(sel));
})()`, jsString(sel.Busy))
}

// sendScript types text into the input and submits it. It returns an empty
// string on success or a failure description.
func sendScript(sel variant.Selectors, text string) string {
	return fmt.Sprintf(`(() => {
  %s
  const inputSel = %s;
  const input = root.querySelector(inputSel) || document.querySelector(inputSel);
  if (!input) return 'input not found';
  const text = %s;
  input.focus();
  if (input.isContentEditable) {
    document.execCommand('selectAll', false, null);
    document.execCommand('insertText', false, text);
  } else {
    const desc = Object.getOwnPropertyDescriptor(Object.getPrototypeOf(input), 'value');
    if (desc && desc.set) { desc.set.call(input, text); } else { input.value = text; }
    input.dispatchEvent(new Event('input', { bubbles: true }));
  }
  const submitSel = %s;
  const submit = submitSel ? document.querySelector(submitSel) : null;
  if (submit && !submit.disabled) {
    submit.click();
    return '';
  }
  const opts = { key: 'Enter', code: 'Enter', keyCode: 13, which: 13, bubbles: true, cancelable: true };
  input.dispatchEvent(new KeyboardEvent('keydown', opts));
  input.dispatchEvent(new KeyboardEvent('keypress', opts));
  input.dispatchEvent(new KeyboardEvent('keyup', opts));
  return '';
})()`,
		fmt.Sprintf(rootJS, jsString(sel.Panel)),
		jsString(sel.Input),
		jsString(text),
		jsString(sel.Submit))
}
