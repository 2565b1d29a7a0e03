package snapshot

// set is a read-only membership table.
type set map[string]struct{}

func newSet(items ...string) set {
	s := make(set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

func (s set) has(key string) bool {
	_, ok := s[key]
	return ok
}

// Classification tables. They are never mutated after package initialization.
var (
	// interactiveTags are natively operable elements.
	interactiveTags = newSet(
		"a", "button", "input", "textarea", "select", "option", "details", "summary", "label",
	)

	interactiveRoles = newSet(
		"button", "link", "menuitem", "tab", "checkbox", "radio", "textbox", "listbox",
		"option", "combobox", "slider", "spinbutton", "treeitem",
	)

	// includedAttributes is the allowlist copied onto element records, matched by exact name.
	includedAttributes = newSet(
		"id", "class", "name", "type", "role", "aria-label", "aria-labelledby", "aria-describedby",
		"placeholder", "value", "title", "alt", "href", "for", "disabled", "readonly", "checked", "selected",
	)

	// noExpandTags keep their own record but their subtree is never visited.
	noExpandTags = newSet(
		"svg", "script", "style", "link", "meta", "noscript", "template", "img", "canvas", "video", "audio",
	)

	// droppedTags are rejected outright, before any classification.
	droppedTags = newSet("script", "style", "meta", "noscript", "link")

	// valueTags carry a live value that is synthesized into the "value" attribute.
	valueTags = newSet("input", "textarea", "select")
)

// DefaultExcludedID marks elements injected by the automation harness.
const DefaultExcludedID = "__playwright_runner__"

// IsInteractiveTag reports whether tag is natively interactive.
func IsInteractiveTag(tag string) bool { return interactiveTags.has(tag) }

// IsInteractiveRole reports whether role (lowercase) is an interactive ARIA role.
func IsInteractiveRole(role string) bool { return interactiveRoles.has(role) }

// IsIncludedAttribute reports whether an attribute is copied into element records.
func IsIncludedAttribute(name string) bool { return includedAttributes.has(name) }

// IsNoExpandTag reports whether the subtree under tag is skipped.
func IsNoExpandTag(tag string) bool { return noExpandTags.has(tag) }

// IsDroppedTag reports whether elements with tag are never recorded.
func IsDroppedTag(tag string) bool { return droppedTags.has(tag) }
