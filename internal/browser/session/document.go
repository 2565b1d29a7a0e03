package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/domsnapshot"

	"github.com/xkilldash9x/pagesnap/internal/snapshot"
)

// CapturedStyles are the computed properties requested from DOMSnapshot.captureSnapshot, in
// the order their values appear in each layout node's style array.
var CapturedStyles = []string{"display", "visibility", "opacity", "cursor"}

// DOM nodeType values used by the snapshot tables.
const (
	nodeTypeElement  = 1
	nodeTypeText     = 3
	nodeTypeDocument = 9
)

var errNoLayout = errors.New("node has no layout object")

// Document is a snapshot.Document over one captured document of a live page. The browser
// computed styles and layout, so geometry and style queries answer from real data.
// Chrome exposes no checkVisibility result in the capture, so precise visibility reports
// snapshot.ErrUnsupported.
type Document struct {
	url   string
	title string
	nodes []*Node
	root  *Node
}

// Node is one entry of the captured node table.
type Node struct {
	doc      *Document
	kind     snapshot.NodeKind
	nodeType int64
	tag      string
	data     string
	attrs    []snapshot.Attribute
	parent   *Node
	children []*Node

	value     *string
	selected  bool
	clickable bool

	hasLayout bool
	box       snapshot.Box
	styles    map[string]string
}

var (
	_ snapshot.Document    = (*Document)(nil)
	_ snapshot.FormControl = (*Node)(nil)
	_ snapshot.ClickTarget = (*Node)(nil)
)

// NewDocument indexes a captured document. strs is the shared string table returned with it.
// Pseudo-element nodes are kept out of the tree.
func NewDocument(ds *domsnapshot.DocumentSnapshot, strs []string) (*Document, error) {
	if ds == nil || ds.Nodes == nil {
		return nil, fmt.Errorf("document snapshot has no node table")
	}
	lookup := func(i int64) string {
		if i < 0 || i >= int64(len(strs)) {
			return ""
		}
		return strs[i]
	}

	d := &Document{
		url:   lookup(int64(ds.DocumentURL)),
		title: lookup(int64(ds.Title)),
	}

	nt := ds.Nodes
	count := len(nt.NodeType)
	if len(nt.ParentIndex) != count || len(nt.NodeName) != count {
		return nil, fmt.Errorf("inconsistent node table: %d types, %d parents, %d names",
			count, len(nt.ParentIndex), len(nt.NodeName))
	}

	pseudo := make(map[int]bool)
	if nt.PseudoType != nil {
		pseudo = rareIndexSet(nt.PseudoType.Index)
	}
	clickable := rareBools(nt.IsClickable)
	selected := rareBools(nt.OptionSelected)
	inputValues := rareStrings(nt.InputValue, lookup)
	textValues := rareStrings(nt.TextValue, lookup)

	d.nodes = make([]*Node, count)
	for i := 0; i < count; i++ {
		n := &Node{doc: d, nodeType: nt.NodeType[i], kind: snapshot.OtherNode}
		switch {
		case pseudo[i]:
		case nt.NodeType[i] == nodeTypeElement:
			n.kind = snapshot.ElementNode
			n.tag = strings.ToLower(lookup(int64(nt.NodeName[i])))
		case nt.NodeType[i] == nodeTypeText:
			n.kind = snapshot.TextNode
		}
		if i < len(nt.NodeValue) {
			n.data = lookup(int64(nt.NodeValue[i]))
		}
		if i < len(nt.Attributes) {
			pairs := nt.Attributes[i]
			for j := 0; j+1 < len(pairs); j += 2 {
				n.attrs = append(n.attrs, snapshot.Attribute{Name: lookup(pairs[j]), Value: lookup(pairs[j+1])})
			}
		}
		if v, ok := inputValues[i]; ok {
			n.value = &v
		} else if v, ok := textValues[i]; ok {
			n.value = &v
		}
		n.clickable = clickable[i]
		n.selected = selected[i]
		d.nodes[i] = n

		p := nt.ParentIndex[i]
		if p < 0 {
			if d.root == nil && nt.NodeType[i] == nodeTypeDocument {
				d.root = n
			}
			continue
		}
		if p >= int64(i) {
			return nil, fmt.Errorf("node %d precedes its parent %d", i, p)
		}
		n.parent = d.nodes[p]
		if !pseudo[i] {
			n.parent.children = append(n.parent.children, n)
		}
	}

	if ds.Layout != nil {
		d.indexLayout(ds.Layout, lookup)
	}
	return d, nil
}

func (d *Document) indexLayout(lt *domsnapshot.LayoutTreeSnapshot, lookup func(int64) string) {
	for j, idx := range lt.NodeIndex {
		if idx < 0 || idx >= int64(len(d.nodes)) {
			continue
		}
		n := d.nodes[idx]
		n.hasLayout = true
		if j < len(lt.Bounds) && len(lt.Bounds[j]) == 4 {
			r := lt.Bounds[j]
			n.box = snapshot.Box{X: r[0], Y: r[1], Width: r[2], Height: r[3]}
		}
		if j < len(lt.Styles) {
			n.styles = make(map[string]string, len(CapturedStyles))
			for k, s := range lt.Styles[j] {
				if k < len(CapturedStyles) {
					n.styles[CapturedStyles[k]] = lookup(s)
				}
			}
		}
	}
}

// URL returns the document URL.
func (d *Document) URL() string { return d.url }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// ContentRoot returns <body> or <frameset>, falling back to the document element.
func (d *Document) ContentRoot() snapshot.Node {
	if d.root == nil {
		return nil
	}
	var docElement *Node
	for _, c := range d.root.children {
		if c.kind == snapshot.ElementNode {
			docElement = c
			break
		}
	}
	if docElement == nil {
		return nil
	}
	for _, c := range docElement.children {
		if c.kind == snapshot.ElementNode && (c.tag == "body" || c.tag == "frameset") {
			return c
		}
	}
	return docElement
}

func (d *Document) CheckVisibility(snapshot.Node) (bool, error) {
	return false, snapshot.ErrUnsupported
}

// BoundingBox returns the layout bounds. Nodes without a layout object are not rendered and
// report an empty box.
func (d *Document) BoundingBox(el snapshot.Node) (snapshot.Box, error) {
	n, err := d.own(el)
	if err != nil {
		return snapshot.Box{}, err
	}
	if !n.hasLayout {
		return snapshot.Box{}, nil
	}
	return n.box, nil
}

// ComputedStyle returns one of CapturedStyles.
func (d *Document) ComputedStyle(el snapshot.Node, property string) (string, error) {
	n, err := d.own(el)
	if err != nil {
		return "", err
	}
	if !n.hasLayout {
		return "", errNoLayout
	}
	v, ok := n.styles[property]
	if !ok {
		return "", fmt.Errorf("computed style %q was not captured", property)
	}
	return v, nil
}

func (d *Document) own(el snapshot.Node) (*Node, error) {
	n, ok := el.(*Node)
	if !ok || n.doc != d {
		return nil, fmt.Errorf("node does not belong to this document")
	}
	return n, nil
}

func (n *Node) Kind() snapshot.NodeKind { return n.kind }
func (n *Node) Tag() string             { return n.tag }
func (n *Node) Data() string            { return n.data }

func (n *Node) Parent() snapshot.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *Node) ChildNodes() []snapshot.Node {
	out := make([]snapshot.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *Node) Attributes() []snapshot.Attribute { return n.attrs }

func (n *Node) Attribute(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Value reports the live value of input and textarea elements, and for a select the value of
// its first selected option.
func (n *Node) Value() (string, bool) {
	switch n.tag {
	case "input", "textarea":
		if n.value != nil {
			return *n.value, true
		}
		return "", true
	case "select":
		return n.selectValue(), true
	}
	return "", false
}

// HasClickListener reports Chrome's isClickable flag.
func (n *Node) HasClickListener() bool { return n.clickable }

func (n *Node) selectValue() string {
	var first *Node
	stack := append([]*Node(nil), n.children...)
	for len(stack) > 0 {
		c := stack[0]
		stack = stack[1:]
		if c.kind == snapshot.ElementNode && c.tag == "option" {
			if c.selected {
				return c.optionValue()
			}
			if first == nil {
				first = c
			}
			continue
		}
		stack = append(append([]*Node(nil), c.children...), stack...)
	}
	if first == nil {
		return ""
	}
	if _, multiple := n.Attribute("multiple"); multiple {
		return ""
	}
	return first.optionValue()
}

func (n *Node) optionValue() string {
	if v, ok := n.Attribute("value"); ok {
		return v
	}
	var parts []string
	for _, c := range n.children {
		if c.kind == snapshot.TextNode {
			parts = append(parts, c.data)
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// -- Rare data helpers --

func rareIndexSet(idx []int64) map[int]bool {
	out := make(map[int]bool, len(idx))
	for _, i := range idx {
		out[int(i)] = true
	}
	return out
}

func rareBools(r *domsnapshot.RareBooleanData) map[int]bool {
	if r == nil {
		return map[int]bool{}
	}
	return rareIndexSet(r.Index)
}

func rareStrings(r *domsnapshot.RareStringData, lookup func(int64) string) map[int]string {
	if r == nil {
		return nil
	}
	out := make(map[int]string, len(r.Index))
	for k, i := range r.Index {
		if k < len(r.Value) {
			out[int(i)] = lookup(int64(r.Value[k]))
		}
	}
	return out
}
