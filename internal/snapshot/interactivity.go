package snapshot

import (
	"strings"
)

const (
	RuleNativeTag       = "native-tag"
	RuleARIARole        = "aria-role"
	RuleTabIndex        = "tabindex"
	RuleContentEditable = "contenteditable"
	RuleClickHandler    = "click-handler"
	RuleCursorPointer   = "cursor-pointer"
)

// InteractivityClassifier decides whether a visible element is actionable.
type InteractivityClassifier struct {
	rules Chain
}

// NewInteractivityClassifier returns the classifier with the default rule chain.
func NewInteractivityClassifier() *InteractivityClassifier {
	return &InteractivityClassifier{rules: InteractivityRules()}
}

// InteractivityRules returns the ordered interactivity chain. A native tag that is disabled
// stops the chain, so no later heuristic can mark it interactive.
func InteractivityRules() Chain {
	return Chain{
		{Name: RuleNativeTag, Eval: nativeInteractive},
		{Name: RuleARIARole, Eval: roleInteractive},
		{Name: RuleTabIndex, Eval: tabIndexInteractive},
		{Name: RuleContentEditable, Eval: editableInteractive},
		{Name: RuleClickHandler, Eval: clickInteractive},
		{Name: RuleCursorPointer, Eval: cursorInteractive},
	}
}

// IsInteractive must only be called for elements already known to be visible.
func (c *InteractivityClassifier) IsInteractive(doc Document, el Node) bool {
	v, _ := c.rules.Evaluate(doc, el)
	return v == Yes
}

// Classify is IsInteractive plus the name of the deciding rule.
func (c *InteractivityClassifier) Classify(doc Document, el Node) (bool, string) {
	v, rule := c.rules.Evaluate(doc, el)
	return v == Yes, rule
}

func nativeInteractive(_ Document, el Node) Verdict {
	tag := el.Tag()
	if !interactiveTags.has(tag) {
		return Unknown
	}
	if isDisabled(el) {
		return No
	}
	if tag == "option" {
		if sel := closest(el, "select"); sel != nil && isDisabled(sel) {
			return No
		}
		if group := closest(el, "optgroup"); group != nil && isDisabled(group) {
			return No
		}
	}
	return Yes
}

func roleInteractive(_ Document, el Node) Verdict {
	role, ok := el.Attribute("role")
	if !ok || !interactiveRoles.has(strings.ToLower(role)) {
		return Unknown
	}
	if ariaDisabled, ok := el.Attribute("aria-disabled"); ok && strings.EqualFold(ariaDisabled, "true") {
		return No
	}
	return Yes
}

func tabIndexInteractive(_ Document, el Node) Verdict {
	raw, ok := el.Attribute("tabindex")
	if !ok {
		return Unknown
	}
	if n, ok := parseIntPrefix(raw); ok && n >= 0 {
		return Yes
	}
	return Unknown
}

func editableInteractive(_ Document, el Node) Verdict {
	if isContentEditable(el) {
		return Yes
	}
	return Unknown
}

func clickInteractive(_ Document, el Node) Verdict {
	if _, ok := el.Attribute("onclick"); ok {
		return Yes
	}
	if t, ok := el.(ClickTarget); ok && t.HasClickListener() {
		return Yes
	}
	return Unknown
}

func cursorInteractive(doc Document, el Node) Verdict {
	if styleIs(doc, el, "cursor", "pointer") == Yes {
		return Yes
	}
	return Unknown
}

// isDisabled checks the element's own disabled attribute or property.
func isDisabled(el Node) bool {
	if _, ok := el.Attribute("disabled"); ok {
		return true
	}
	d, ok := el.(Disableable)
	return ok && d.Disabled()
}

// closest returns the nearest inclusive ancestor element with the given tag.
func closest(el Node, tag string) Node {
	for n := el; n != nil; n = n.Parent() {
		if n.Kind() == ElementNode && n.Tag() == tag {
			return n
		}
	}
	return nil
}

// isContentEditable resolves the inherited contenteditable state. The nearest ancestor with
// a recognised value decides; "false" switches editing off for its subtree.
func isContentEditable(el Node) bool {
	if e, ok := el.(Editable); ok {
		return e.ContentEditable()
	}
	for n := el; n != nil && n.Kind() == ElementNode; n = n.Parent() {
		v, ok := n.Attribute("contenteditable")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "true", "plaintext-only":
			return true
		case "false":
			return false
		}
	}
	return false
}

// parseIntPrefix parses a leading base-10 integer after optional whitespace and sign,
// ignoring trailing garbage ("3px" is 3). ok is false when no digits are found.
func parseIntPrefix(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r\f")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for ; digits < len(s) && s[digits] >= '0' && s[digits] <= '9'; digits++ {
		if n < 1<<30 {
			n = n*10 + int(s[digits]-'0')
		}
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
