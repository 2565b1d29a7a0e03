// Package domstate rebuilds a navigable tree from a snapshot node map and renders it for
// agents that act on highlighted elements.
package domstate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesnap/api/schemas"
)

// EmptyPage is the rendering of a state without a tree.
const EmptyPage = "Page DOM is empty or could not be processed."

// maxInlineText bounds the text placed between the tags of a rendered element.
const maxInlineText = 100

// renderedAttributes are shown on highlighted elements, in this order.
var renderedAttributes = []string{"aria-label", "placeholder", "alt", "value", "name", "title", "type"}

// Node is either an *Element or a *Text.
type Node interface {
	NodeID() int
	Visible() bool
}

// Element is a reconstructed element record.
type Element struct {
	ID             int
	TagName        string
	XPath          string
	Attributes     map[string]string
	Children       []Node
	Parent         *Element
	IsVisible      bool
	IsInteractive  bool
	HighlightIndex int
}

func (e *Element) NodeID() int   { return e.ID }
func (e *Element) Visible() bool { return e.IsVisible }

// Highlighted reports whether the element has a highlight index.
func (e *Element) Highlighted() bool { return e.HighlightIndex > 0 }

// Text is a reconstructed text record.
type Text struct {
	ID        int
	Text      string
	Parent    *Element
	IsVisible bool
}

func (t *Text) NodeID() int   { return t.ID }
func (t *Text) Visible() bool { return t.IsVisible }

// SelectorMap indexes highlighted elements by highlight index.
type SelectorMap map[int]*Element

// State is a page's reconstructed tree with its selector map.
type State struct {
	URL   string
	Title string
	Root  *Element

	selectors SelectorMap
}

// Option configures New.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for reconstruction warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New reconstructs the tree of snap. Child references that do not resolve, or that would
// give a node a second parent, are dropped with a warning. A nil or empty snapshot yields a
// state without a root.
func New(snap *schemas.Snapshot, url, title string, opts ...Option) (*State, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.Named("domstate")

	st := &State{URL: url, Title: title, selectors: make(SelectorMap)}
	if snap == nil || snap.RootID == nil {
		return st, nil
	}

	nodes := make([]Node, len(snap.Nodes))
	for i := range snap.Nodes {
		rec := &snap.Nodes[i]
		switch rec.Kind {
		case schemas.KindText:
			nodes[i] = &Text{ID: rec.ID, Text: rec.Text, IsVisible: rec.IsVisible}
		case schemas.KindElement:
			el := &Element{
				ID:             rec.ID,
				TagName:        rec.TagName,
				XPath:          rec.XPath,
				Attributes:     rec.Attributes,
				IsVisible:      rec.IsVisible,
				IsInteractive:  rec.IsInteractive,
				HighlightIndex: rec.HighlightIndex,
			}
			if el.Attributes == nil {
				el.Attributes = map[string]string{}
			}
			if el.Highlighted() {
				st.selectors[el.HighlightIndex] = el
			}
			nodes[i] = el
		default:
			logger.Warn("Skipping record of unknown kind.", zap.Int("id", rec.ID), zap.String("kind", string(rec.Kind)))
		}
	}

	linked := make([]bool, len(nodes))
	for i := range snap.Nodes {
		parent, ok := nodes[i].(*Element)
		if !ok {
			continue
		}
		for _, childID := range snap.Nodes[i].Children {
			if childID < 0 || childID >= len(nodes) || nodes[childID] == nil {
				logger.Warn("Child reference not found.", zap.Int("parent", i), zap.Int("child", childID))
				continue
			}
			if linked[childID] || childID == *snap.RootID {
				logger.Warn("Node already has a parent.", zap.Int("parent", i), zap.Int("child", childID))
				continue
			}
			linked[childID] = true
			switch c := nodes[childID].(type) {
			case *Element:
				c.Parent = parent
			case *Text:
				c.Parent = parent
			}
			parent.Children = append(parent.Children, nodes[childID])
		}
	}

	rootID := *snap.RootID
	if rootID < 0 || rootID >= len(nodes) {
		return nil, fmt.Errorf("%w: root id %d not in map", schemas.ErrInvalidSnapshot, rootID)
	}
	root, ok := nodes[rootID].(*Element)
	if !ok {
		return nil, fmt.Errorf("%w: root %d is not an element", schemas.ErrInvalidSnapshot, rootID)
	}
	st.Root = root

	logger.Debug("Reconstructed DOM state.",
		zap.Int("nodes", len(nodes)),
		zap.Int("highlighted", len(st.selectors)))
	return st, nil
}

// SelectorMap returns the highlighted elements by index. The map is shared with the state.
func (s *State) SelectorMap() SelectorMap { return s.selectors }

// ElementByIndex returns the element with highlight index i.
func (s *State) ElementByIndex(i int) (*Element, bool) {
	el, ok := s.selectors[i]
	return el, ok
}

// TextContent joins the text below e with single spaces. Hidden text nodes and hidden
// element subtrees are skipped unless includeHidden is set.
func (e *Element) TextContent(includeHidden bool) string {
	var parts []string
	stack := []Node{}
	for i := len(e.Children) - 1; i >= 0; i-- {
		stack = append(stack, e.Children[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !n.Visible() && !includeHidden {
			continue
		}
		switch n := n.(type) {
		case *Text:
			parts = append(parts, n.Text)
		case *Element:
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, n.Children[i])
			}
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// String renders the page for an agent: one line per highlighted element, as
// "[index] <tag attr="v">text</tag>", and visible free text on lines of its own. Hidden
// branches are omitted.
func (s *State) String() string {
	if s == nil || s.Root == nil {
		return EmptyPage
	}

	type item struct {
		node   Node
		inside bool
	}
	var lines []string
	stack := []item{{node: s.Root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !it.node.Visible() {
			continue
		}

		switch n := it.node.(type) {
		case *Text:
			if t := strings.TrimSpace(n.Text); t != "" && !it.inside {
				lines = append(lines, t)
			}
		case *Element:
			inside := it.inside
			if n.Highlighted() {
				lines = append(lines, n.render())
				inside = true
			}
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, item{node: n.Children[i], inside: inside})
			}
		}
	}

	var out []string
	for _, l := range lines {
		for _, part := range strings.Split(l, "\n") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return strings.Join(out, "\n")
}

func (e *Element) render() string {
	text := e.TextContent(false)

	var b strings.Builder
	fmt.Fprintf(&b, "[%d] <%s", e.HighlightIndex, e.TagName)
	for _, key := range renderedAttributes {
		v := strings.TrimSpace(e.Attributes[key])
		if v == "" || v == text {
			continue
		}
		fmt.Fprintf(&b, ` %s="%s"`, key, v)
	}
	if n := utf8.RuneCountInString(text); n > 0 && n < maxInlineText {
		fmt.Fprintf(&b, ">%s</%s>", text, e.TagName)
	} else {
		b.WriteString(" />")
	}
	return b.String()
}
