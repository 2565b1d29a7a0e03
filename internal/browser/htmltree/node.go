package htmltree

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagesnap/internal/snapshot"
)

// Node adapts an *html.Node to snapshot.Node. It also exposes the live value of form
// controls as a browser would report it for a freshly loaded page.
type Node struct {
	n   *html.Node
	doc *Document
}

var (
	_ snapshot.Node        = (*Node)(nil)
	_ snapshot.FormControl = (*Node)(nil)
)

// HTML returns the wrapped node.
func (n *Node) HTML() *html.Node { return n.n }

func (n *Node) Kind() snapshot.NodeKind {
	switch n.n.Type {
	case html.ElementNode:
		return snapshot.ElementNode
	case html.TextNode:
		return snapshot.TextNode
	default:
		return snapshot.OtherNode
	}
}

func (n *Node) Tag() string {
	if n.n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.n.Data)
}

func (n *Node) Data() string {
	if n.n.Type == html.ElementNode {
		return ""
	}
	return n.n.Data
}

func (n *Node) Parent() snapshot.Node {
	if n.n.Parent == nil {
		return nil
	}
	return n.doc.wrap(n.n.Parent)
}

func (n *Node) ChildNodes() []snapshot.Node {
	var out []snapshot.Node
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, n.doc.wrap(c))
	}
	return out
}

// Attributes returns the authored attributes. Namespaced attributes keep their prefix
// (xlink:href).
func (n *Node) Attributes() []snapshot.Attribute {
	out := make([]snapshot.Attribute, 0, len(n.n.Attr))
	for _, a := range n.n.Attr {
		out = append(out, snapshot.Attribute{Name: attrName(a), Value: a.Val})
	}
	return out
}

func (n *Node) Attribute(name string) (string, bool) {
	for _, a := range n.n.Attr {
		if attrName(a) == name {
			return a.Val, true
		}
	}
	return "", false
}

// Value reports the initial value of input, textarea and select elements.
func (n *Node) Value() (string, bool) {
	if n.n.Type != html.ElementNode {
		return "", false
	}
	switch n.Tag() {
	case "input":
		if v, ok := attr(n.n, "value"); ok {
			return v, true
		}
		switch t, _ := attr(n.n, "type"); strings.ToLower(t) {
		case "checkbox", "radio":
			return "on", true
		}
		return "", true
	case "textarea":
		return textContent(n.n), true
	case "select":
		return selectValue(n.n), true
	}
	return "", false
}

// selectValue returns the value of the first selected option or, for a drop-down, of the
// first option.
func selectValue(sel *html.Node) string {
	options := elementsByTag(sel, "option")
	if len(options) == 0 {
		return ""
	}
	for _, o := range options {
		if _, ok := attr(o, "selected"); ok {
			return optionValue(o)
		}
	}
	if _, multiple := attr(sel, "multiple"); multiple {
		return ""
	}
	return optionValue(options[0])
}

func optionValue(o *html.Node) string {
	if v, ok := attr(o, "value"); ok {
		return v
	}
	return strings.Join(strings.Fields(textContent(o)), " ")
}

func attrName(a html.Attribute) string {
	if a.Namespace != "" {
		return a.Namespace + ":" + a.Key
	}
	return a.Key
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// textContent concatenates all descendant text, like Node.textContent.
func textContent(n *html.Node) string {
	var b strings.Builder
	stack := []*html.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return b.String()
}
