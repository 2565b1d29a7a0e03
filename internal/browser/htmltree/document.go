package htmltree

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagesnap/internal/browser/parser"
	"github.com/xkilldash9x/pagesnap/internal/browser/style"
	"github.com/xkilldash9x/pagesnap/internal/snapshot"
)

// Option configures a Document.
type Option func(*Document)

// WithViewport sets the viewport used for media queries, viewport units and geometry.
func WithViewport(width, height float64) Option {
	return func(d *Document) {
		d.viewport = parser.Viewport{Width: width, Height: height}
	}
}

// WithPreciseVisibility toggles the style-tree visibility query. When disabled the document
// reports ErrUnsupported and classification falls back to estimated geometry.
func WithPreciseVisibility(enabled bool) Option {
	return func(d *Document) {
		d.precise = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Document) {
		d.logger = logger
	}
}

// Document is an offline snapshot.Document over a parsed HTML tree. Styles come from the
// page's <style> elements and inline style attributes; geometry is estimated.
type Document struct {
	root     *html.Node
	viewport parser.Viewport
	precise  bool
	logger   *zap.Logger

	styled map[*html.Node]*style.StyledNode
	boxes  map[*html.Node]snapshot.Box
	nodes  map[*html.Node]*Node
}

// Parse reads an HTML document and prepares it for snapshotting.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return New(root, opts...), nil
}

// New wraps an already parsed tree. root should be the document node.
func New(root *html.Node, opts ...Option) *Document {
	d := &Document{
		root:     root,
		viewport: parser.Viewport{Width: 1280, Height: 720},
		precise:  true,
		logger:   zap.NewNop(),
		nodes:    make(map[*html.Node]*Node),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.computeStyles()
	return d
}

func (d *Document) computeStyles() {
	engine := style.NewEngine()
	engine.SetViewport(d.viewport.Width, d.viewport.Height)

	sheets := collectStyleSheets(d.root)
	for _, sheet := range sheets {
		engine.AddAuthorSheet(sheet)
	}

	d.styled = make(map[*html.Node]*style.StyledNode)
	tree := engine.BuildTree(d.root)
	stack := []*style.StyledNode{tree}
	for len(stack) > 0 {
		sn := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if sn == nil {
			continue
		}
		d.styled[sn.Node] = sn
		stack = append(stack, sn.Children...)
	}
	d.boxes = estimateBoxes(tree, d.viewport)

	d.logger.Debug("Styled offline document.",
		zap.Int("stylesheets", len(sheets)),
		zap.Int("styled_nodes", len(d.styled)))
}

// collectStyleSheets parses every <style> element in document order. A media attribute
// becomes the media condition of the sheet's rules.
func collectStyleSheets(root *html.Node) []parser.StyleSheet {
	var sheets []parser.StyleSheet
	for _, n := range elementsByTag(root, "style") {
		if insideTemplate(n) {
			continue
		}
		var css strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				css.WriteString(c.Data)
			}
		}
		sheet := parser.NewParser(css.String()).Parse()
		if media, ok := attr(n, "media"); ok && strings.TrimSpace(media) != "" {
			for i := range sheet.Rules {
				if sheet.Rules[i].Media == "" {
					sheet.Rules[i].Media = media
				} else {
					sheet.Rules[i].Media = media + " and " + sheet.Rules[i].Media
				}
			}
		}
		sheets = append(sheets, sheet)
	}
	return sheets
}

// HTML returns the underlying document node.
func (d *Document) HTML() *html.Node { return d.root }

// Title returns the text of the first <title> element.
func (d *Document) Title() string {
	titles := elementsByTag(d.root, "title")
	if len(titles) == 0 {
		return ""
	}
	return strings.Join(strings.Fields(textContent(titles[0])), " ")
}

// ContentRoot returns <body>, falling back to the document element.
func (d *Document) ContentRoot() snapshot.Node {
	var docElement *html.Node
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			docElement = c
			break
		}
	}
	if docElement == nil {
		if d.root.Type == html.ElementNode {
			docElement = d.root
		} else {
			return nil
		}
	}
	for c := docElement.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "body" || c.Data == "frameset") {
			return d.wrap(c)
		}
	}
	return d.wrap(docElement)
}

// CheckVisibility answers from the style tree: display, inherited visibility, opacity and
// content-visibility along the ancestor chain.
func (d *Document) CheckVisibility(el snapshot.Node) (bool, error) {
	if !d.precise {
		return false, snapshot.ErrUnsupported
	}
	sn, err := d.styledNode(el)
	if err != nil {
		return false, err
	}
	return sn.CheckVisibility(), nil
}

// BoundingBox returns the estimated border box of el.
func (d *Document) BoundingBox(el snapshot.Node) (snapshot.Box, error) {
	n, ok := el.(*Node)
	if !ok || n.doc != d {
		return snapshot.Box{}, fmt.Errorf("node does not belong to this document")
	}
	box, ok := d.boxes[n.n]
	if !ok {
		return snapshot.Box{}, fmt.Errorf("no layout for <%s>", n.Tag())
	}
	return box, nil
}

// ComputedStyle returns the cascaded and inherited value of property.
func (d *Document) ComputedStyle(el snapshot.Node, property string) (string, error) {
	sn, err := d.styledNode(el)
	if err != nil {
		return "", err
	}
	return sn.Lookup(property, ""), nil
}

func (d *Document) styledNode(el snapshot.Node) (*style.StyledNode, error) {
	n, ok := el.(*Node)
	if !ok || n.doc != d {
		return nil, fmt.Errorf("node does not belong to this document")
	}
	sn, ok := d.styled[n.n]
	if !ok {
		return nil, fmt.Errorf("no computed style for <%s>", n.Tag())
	}
	return sn, nil
}

// Lookup returns the snapshot view of an html node of this document.
func (d *Document) Lookup(n *html.Node) snapshot.Node {
	if n == nil {
		return nil
	}
	return d.wrap(n)
}

func (d *Document) wrap(n *html.Node) *Node {
	if w, ok := d.nodes[n]; ok {
		return w
	}
	w := &Node{n: n, doc: d}
	d.nodes[n] = w
	return w
}

func elementsByTag(root *html.Node, tag string) []*html.Node {
	var out []*html.Node
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return out
}

func insideTemplate(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "template" {
			return true
		}
	}
	return false
}
