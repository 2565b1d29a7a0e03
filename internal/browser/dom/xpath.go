package dom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagesnap/api/schemas"
	"github.com/xkilldash9x/pagesnap/internal/snapshot"
)

// ErrNotFound is returned when a path or snapshot id does not resolve to an element.
var ErrNotFound = errors.New("element not found")

// Locate evaluates a structural snapshot path against a parsed document and returns the
// element it names. Paths are relative to the content root, so "body/ul/li[2]" is
// evaluated as "/html/body/ul/li[2]".
func Locate(root *html.Node, path string) (*html.Node, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: empty document", ErrNotFound)
	}
	expr, err := xpath.Compile(snapshot.AbsoluteXPath(path))
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	n := htmlquery.QuerySelector(root, expr)
	if n == nil || n.Type != html.ElementNode {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	return n, nil
}

// Resolve maps a snapshot id back to the element it was recorded from.
func Resolve(snap *schemas.Snapshot, root *html.Node, id int) (*html.Node, error) {
	rec, ok := snap.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: no node with id %d", ErrNotFound, id)
	}
	if !rec.IsElement() {
		return nil, fmt.Errorf("node %d is a text node and has no path", id)
	}
	return Locate(root, rec.XPath)
}

// StructuralPath computes the snapshot path of an element: one segment per element from the
// document element's child down, with an ordinal only where the tag repeats among siblings.
func StructuralPath(node *html.Node) string {
	var segs []string
	for n := node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		segs = append(segs, segment(n, false))
		if n.Parent != nil && n.Parent.Type == html.ElementNode && n.Parent.Parent != nil &&
			n.Parent.Parent.Type == html.DocumentNode {
			break
		}
	}
	reverse(segs)
	return strings.Join(segs, "/")
}

// AnchoredXPath generates a short absolute XPath for node. Traversal stops at the nearest
// ancestor with an id, and every step carries an explicit ordinal, so the expression keeps
// working when unrelated siblings are inserted before the anchor.
func AnchoredXPath(node *html.Node) string {
	if node == nil {
		return ""
	}

	var path []string
	anchored := false
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode || n.Data == "" {
			continue
		}
		if id := htmlquery.SelectAttr(n, "id"); id != "" {
			path = append(path, "//*[@id="+quote(id)+"]")
			anchored = true
			break
		}
		path = append(path, segment(n, true))
	}
	if len(path) == 0 {
		return "/"
	}

	reverse(path)
	out := strings.Join(path, "/")
	if !anchored {
		out = "/" + out
	}
	return out
}

// segment names n among its element siblings. Unless always is set the ordinal is omitted
// when n is the only element with its tag.
func segment(n *html.Node, always bool) string {
	tag := strings.ToLower(n.Data)
	index, total := 0, 0
	for s := firstSibling(n); s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode || strings.ToLower(s.Data) != tag {
			continue
		}
		total++
		if s == n {
			index = total
		}
	}
	if total == 1 && !always {
		return tag
	}
	return tag + "[" + strconv.Itoa(index) + "]"
}

func firstSibling(n *html.Node) *html.Node {
	if n.Parent != nil {
		return n.Parent.FirstChild
	}
	for n.PrevSibling != nil {
		n = n.PrevSibling
	}
	return n
}

// quote renders s as an XPath string literal. XPath 1.0 has no escapes, so values holding
// both quote characters are split with concat().
func quote(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	for i, p := range parts {
		parts[i] = "'" + p + "'"
	}
	return "concat(" + strings.Join(parts, `, "'", `) + ")"
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
