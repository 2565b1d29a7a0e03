package snapshot

import "errors"

// ErrUnsupported is returned by a Document that cannot answer a query. Classifiers treat it
// as a reason to fall through to the next heuristic.
var ErrUnsupported = errors.New("snapshot: query not supported by document")

// NodeKind is the coarse type of a document node.
type NodeKind int

const (
	OtherNode NodeKind = iota
	ElementNode
	TextNode
)

// Attribute is a single authored attribute, in document order.
type Attribute struct {
	Name  string
	Value string
}

// Node is the read-only view of a document node the builder traverses.
// Tag returns the lowercase tag name for elements and "" otherwise. Data returns the
// character data of text nodes.
type Node interface {
	Kind() NodeKind
	Tag() string
	Data() string
	Parent() Node
	ChildNodes() []Node
	Attributes() []Attribute
	Attribute(name string) (string, bool)
}

// FormControl is implemented by nodes that expose a live form value.
type FormControl interface {
	Value() (string, bool)
}

// ClickTarget is implemented by nodes that know about listeners attached as properties.
type ClickTarget interface {
	HasClickListener() bool
}

// Disableable is implemented by nodes that expose the disabled property.
type Disableable interface {
	Disabled() bool
}

// Editable is implemented by nodes whose backend computes content editability itself.
type Editable interface {
	ContentEditable() bool
}

// Box is a rendered border box in CSS pixels.
type Box struct {
	X, Y, Width, Height float64
}

// Document gives the builder access to a rendered document.
type Document interface {
	// ContentRoot returns the primary content container, or nil when there is none.
	ContentRoot() Node
	// CheckVisibility is a precise visibility query covering opacity, display and
	// visibility of the element and its ancestors. ErrUnsupported when unavailable.
	CheckVisibility(el Node) (bool, error)
	BoundingBox(el Node) (Box, error)
	ComputedStyle(el Node, property string) (string, error)
}

// Verdict is a tri-state answer from a single classification rule.
type Verdict int8

const (
	Unknown Verdict = iota
	Yes
	No
)

func verdictOf(b bool) Verdict {
	if b {
		return Yes
	}
	return No
}

func (v Verdict) String() string {
	switch v {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}
