package snapshot

import (
	"errors"
)

// fakeNode is an in-memory document node used to exercise the core without a renderer.
type fakeNode struct {
	kind          NodeKind
	tag           string
	data          string
	attrs         []Attribute
	parent        *fakeNode
	children      []*fakeNode
	value         *string
	clickListener bool
	disabledProp  bool
}

func el(tag string, kv []string, children ...*fakeNode) *fakeNode {
	n := &fakeNode{kind: ElementNode, tag: tag}
	for i := 0; i+1 < len(kv); i += 2 {
		n.attrs = append(n.attrs, Attribute{Name: kv[i], Value: kv[i+1]})
	}
	for _, c := range children {
		c.parent = n
		n.children = append(n.children, c)
	}
	return n
}

func txt(s string) *fakeNode { return &fakeNode{kind: TextNode, data: s} }

func comment(s string) *fakeNode { return &fakeNode{kind: OtherNode, data: s} }

func attrs(kv ...string) []string { return kv }

func (n *fakeNode) Kind() NodeKind { return n.kind }
func (n *fakeNode) Tag() string    { return n.tag }
func (n *fakeNode) Data() string   { return n.data }

func (n *fakeNode) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *fakeNode) ChildNodes() []Node {
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *fakeNode) Attributes() []Attribute { return n.attrs }

func (n *fakeNode) Attribute(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *fakeNode) Value() (string, bool) {
	if n.value == nil {
		return "", false
	}
	return *n.value, true
}

func (n *fakeNode) HasClickListener() bool { return n.clickListener }
func (n *fakeNode) Disabled() bool         { return n.disabledProp }

// fakeDoc answers visibility and style queries from tables. Elements are visible, sized
// 100x20 and styled display:block unless configured otherwise.
type fakeDoc struct {
	root       *fakeNode
	precise    bool
	preciseErr bool
	hidden     map[*fakeNode]bool
	boxes      map[*fakeNode]Box
	styles     map[*fakeNode]map[string]string
	styleErr   map[*fakeNode]bool
}

func newDoc(root *fakeNode) *fakeDoc {
	return &fakeDoc{
		root:     root,
		precise:  true,
		hidden:   map[*fakeNode]bool{},
		boxes:    map[*fakeNode]Box{},
		styles:   map[*fakeNode]map[string]string{},
		styleErr: map[*fakeNode]bool{},
	}
}

func (d *fakeDoc) ContentRoot() Node {
	if d.root == nil {
		return nil
	}
	return d.root
}

func (d *fakeDoc) CheckVisibility(el Node) (bool, error) {
	if !d.precise {
		return false, ErrUnsupported
	}
	if d.preciseErr {
		return false, errors.New("checkVisibility threw")
	}
	for n := el.(*fakeNode); n != nil; n = n.parent {
		if d.hidden[n] {
			return false, nil
		}
	}
	return true, nil
}

func (d *fakeDoc) BoundingBox(el Node) (Box, error) {
	if b, ok := d.boxes[el.(*fakeNode)]; ok {
		return b, nil
	}
	return Box{Width: 100, Height: 20}, nil
}

func (d *fakeDoc) ComputedStyle(el Node, property string) (string, error) {
	n := el.(*fakeNode)
	if d.styleErr[n] {
		return "", errors.New("style unavailable")
	}
	if v, ok := d.styles[n][property]; ok {
		return v, nil
	}
	switch property {
	case "display":
		return "block", nil
	case "visibility":
		return "visible", nil
	case "opacity":
		return "1", nil
	case "cursor":
		return "auto", nil
	}
	return "", nil
}

func (d *fakeDoc) setStyle(n *fakeNode, property, value string) {
	if d.styles[n] == nil {
		d.styles[n] = map[string]string{}
	}
	d.styles[n][property] = value
}
