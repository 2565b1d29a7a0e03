package style

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagesnap/internal/browser/parser"
)

// matches reports whether node matches any selector of group and returns the specificity of
// the most specific matching selector.
func matches(node *html.Node, group parser.SelectorGroup) (parser.Specificity, bool) {
	var best parser.Specificity
	found := false
	if node.Type != html.ElementNode {
		return best, false
	}
	for _, complex := range group {
		if len(complex.Selectors) == 0 {
			continue
		}
		if matchComplex(node, complex, len(complex.Selectors)-1) {
			if sp := complex.Specificity(); !found || best.Less(sp) {
				best = sp
			}
			found = true
		}
	}
	return best, found
}

// Matches reports whether node matches the selector list.
func Matches(node *html.Node, group parser.SelectorGroup) bool {
	_, ok := matches(node, group)
	return ok
}

// matchComplex matches compound index against node, then walks left through the combinators.
func matchComplex(node *html.Node, cs parser.ComplexSelector, index int) bool {
	if node == nil || node.Type != html.ElementNode {
		return false
	}
	current := cs.Selectors[index]
	if !matchesSimple(node, current.SimpleSelector) {
		return false
	}
	if index == 0 {
		return true
	}

	switch current.Combinator {
	case parser.CombinatorDescendant:
		for anc := node.Parent; anc != nil; anc = anc.Parent {
			if matchComplex(anc, cs, index-1) {
				return true
			}
		}
	case parser.CombinatorChild:
		return matchComplex(node.Parent, cs, index-1)
	case parser.CombinatorAdjacentSibling:
		return matchComplex(previousElementSibling(node), cs, index-1)
	case parser.CombinatorGeneralSibling:
		for sib := previousElementSibling(node); sib != nil; sib = previousElementSibling(sib) {
			if matchComplex(sib, cs, index-1) {
				return true
			}
		}
	case parser.CombinatorNone:
		return true
	}
	return false
}

func previousElementSibling(node *html.Node) *html.Node {
	for s := node.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func nextElementSibling(node *html.Node) *html.Node {
	for s := node.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func matchesSimple(node *html.Node, sel parser.SimpleSelector) bool {
	if sel.PseudoElement != "" {
		return false
	}
	if sel.TagName != "" && sel.TagName != "*" && strings.ToLower(node.Data) != sel.TagName {
		return false
	}
	if sel.ID != "" {
		if id, ok := attr(node, "id"); !ok || id != sel.ID {
			return false
		}
	}
	if len(sel.Classes) > 0 {
		classes, _ := attr(node, "class")
		have := strings.Fields(classes)
		for _, want := range sel.Classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	for _, a := range sel.Attributes {
		if !matchesAttribute(node, a) {
			return false
		}
	}
	for _, pc := range sel.PseudoClasses {
		if !matchesPseudoClass(node, pc) {
			return false
		}
	}
	return true
}

func matchesAttribute(node *html.Node, sel parser.AttributeSelector) bool {
	actual, found := attr(node, sel.Name)
	if !found {
		return false
	}
	want := sel.Value
	if sel.CaseInsensitive {
		actual, want = strings.ToLower(actual), strings.ToLower(want)
	}

	switch sel.Operator {
	case "":
		return true
	case "=":
		return actual == want
	case "~=":
		return contains(strings.Fields(actual), want)
	case "|=":
		return actual == want || strings.HasPrefix(actual, want+"-")
	case "^=":
		return want != "" && strings.HasPrefix(actual, want)
	case "$=":
		return want != "" && strings.HasSuffix(actual, want)
	case "*=":
		return want != "" && strings.Contains(actual, want)
	default:
		return false
	}
}

// formControls are the elements the :disabled and :enabled pseudo-classes apply to.
var formControls = map[string]bool{
	"button": true, "input": true, "select": true, "textarea": true,
	"optgroup": true, "option": true, "fieldset": true,
}

// matchesPseudoClass supports the structural and form-state pseudo-classes. User action
// states (:hover, :focus, ...) never match a static document; unknown names never match.
func matchesPseudoClass(node *html.Node, pc parser.PseudoClass) bool {
	tag := strings.ToLower(node.Data)
	switch pc.Name {
	case "not":
		for _, arg := range pc.Not {
			if matchesSimple(node, arg) {
				return false
			}
		}
		return true
	case "root":
		return node.Parent != nil && node.Parent.Type == html.DocumentNode
	case "first-child":
		return previousElementSibling(node) == nil
	case "last-child":
		return nextElementSibling(node) == nil
	case "only-child":
		return previousElementSibling(node) == nil && nextElementSibling(node) == nil
	case "first-of-type":
		return countSameTag(node, previousElementSibling) == 0
	case "last-of-type":
		return countSameTag(node, nextElementSibling) == 0
	case "only-of-type":
		return countSameTag(node, previousElementSibling) == 0 && countSameTag(node, nextElementSibling) == 0
	case "empty":
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode || (c.Type == html.TextNode && c.Data != "") {
				return false
			}
		}
		return true
	case "disabled":
		return formControls[tag] && isDisabledControl(node)
	case "enabled":
		return formControls[tag] && !isDisabledControl(node)
	case "checked":
		if tag == "option" {
			_, ok := attr(node, "selected")
			return ok
		}
		_, ok := attr(node, "checked")
		return tag == "input" && ok
	case "link", "any-link":
		_, ok := attr(node, "href")
		return ok && (tag == "a" || tag == "area")
	case "required":
		_, ok := attr(node, "required")
		return ok && formControls[tag]
	case "optional":
		_, ok := attr(node, "required")
		return !ok && formControls[tag]
	case "read-only":
		return !isReadWrite(node)
	case "read-write":
		return isReadWrite(node)
	}
	return false
}

// isDisabledControl applies the HTML disabled rules, including inheritance from a disabled
// fieldset (except through its first legend) and from a disabled optgroup or select.
func isDisabledControl(node *html.Node) bool {
	if _, ok := attr(node, "disabled"); ok {
		return true
	}
	tag := strings.ToLower(node.Data)
	if tag == "option" {
		for p := node.Parent; p != nil && p.Type == html.ElementNode; p = p.Parent {
			if pt := strings.ToLower(p.Data); pt == "optgroup" || pt == "select" {
				if _, ok := attr(p, "disabled"); ok {
					return true
				}
			}
		}
		return false
	}
	child := node
	for p := node.Parent; p != nil && p.Type == html.ElementNode; child, p = p, p.Parent {
		if strings.ToLower(p.Data) != "fieldset" {
			continue
		}
		if _, ok := attr(p, "disabled"); !ok {
			continue
		}
		if strings.ToLower(child.Data) == "legend" && firstLegend(p) == child {
			continue
		}
		return true
	}
	return false
}

func firstLegend(fieldset *html.Node) *html.Node {
	for c := fieldset.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && strings.ToLower(c.Data) == "legend" {
			return c
		}
	}
	return nil
}

func isReadWrite(node *html.Node) bool {
	switch strings.ToLower(node.Data) {
	case "input", "textarea":
		_, ro := attr(node, "readonly")
		return !ro && !isDisabledControl(node)
	}
	v, ok := attr(node, "contenteditable")
	return ok && !strings.EqualFold(v, "false")
}

func countSameTag(node *html.Node, step func(*html.Node) *html.Node) int {
	n := 0
	for s := step(node); s != nil; s = step(s) {
		if strings.EqualFold(s.Data, node.Data) {
			n++
		}
	}
	return n
}

func attr(node *html.Node, name string) (string, bool) {
	for _, a := range node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
