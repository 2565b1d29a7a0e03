// internal/browser/style/style.go
package style

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagesnap/internal/browser/parser"
)

// -- Constants and Configuration --

const (
	BaseFontSize      = 16.0 // Root font size in px.
	DefaultLineHeight = 1.2  // Multiplier for 'line-height: normal'.
)

// DefaultUserAgentCSS is the built-in stylesheet. It covers display defaults, elements that
// are never rendered and the intrinsic sizes of form controls.
const DefaultUserAgentCSS = `
html, body, div, p, h1, h2, h3, h4, h5, h6, ul, ol, dl, dt, dd, form, fieldset, legend,
header, footer, section, article, aside, nav, main, figure, figcaption, blockquote, pre,
address, hr, details, summary, menu, search, center {
    display: block;
}
body { margin: 8px; }
li { display: list-item; }
table { display: table; }
thead { display: table-header-group; }
tbody { display: table-row-group; }
tfoot { display: table-footer-group; }
tr { display: table-row; }
td, th { display: table-cell; }
caption { display: table-caption; }

h1 { font-size: 2em; }
h2 { font-size: 1.5em; }
h3 { font-size: 1.17em; }
small { font-size: 0.83em; }

/* Never rendered. */
head, script, style, link, meta, title, base, noscript, template, datalist, param, area,
[hidden], input[type="hidden" i], dialog:not([open]) {
    display: none;
}
details:not([open]) > :not(summary) { display: none; }
/* A drop-down select renders its options in a popup, not in the page. */
select:not([multiple]):not([size]) option { display: none; }

input, button, textarea, select, img, video, canvas, iframe, embed, object, svg, meter, progress {
    display: inline-block;
}
input { width: 170px; height: 21px; }
input[type="checkbox" i], input[type="radio" i] { width: 13px; height: 13px; }
input[type="range" i] { width: 129px; height: 16px; }
input[type="color" i] { width: 50px; height: 27px; }
input[type="image" i], input[type="file" i] { width: auto; }
textarea { width: 182px; height: 36px; }
select { height: 19px; }
iframe { width: 300px; height: 150px; }
canvas { width: 300px; height: 150px; }
video { width: 300px; height: 150px; }
svg { width: 300px; height: 150px; }
meter, progress { width: 80px; height: 16px; }

a[href], area[href] { cursor: pointer; }
button, input, select, textarea, label { cursor: default; }
input[type="text" i], input[type="search" i], input[type="email" i], input[type="password" i],
input[type="url" i], input[type="tel" i], input[type="number" i], input:not([type]), textarea {
    cursor: text;
}
`

// inheritedProperties take the parent's value when the cascade leaves them unset.
var inheritedProperties = []parser.Property{
	"color", "cursor", "font-family", "font-size", "font-weight", "line-height",
	"text-align", "visibility", "white-space",
}

// initialValues is used for "initial" and for unset properties without a parent value.
var initialValues = map[parser.Property]parser.Value{
	"display":            "inline",
	"visibility":         "visible",
	"opacity":            "1",
	"cursor":             "auto",
	"content-visibility": "visible",
	"width":              "auto",
	"height":             "auto",
}

// -- Style Engine --

// Engine computes styles with a cascade over the user agent sheet, author sheets and
// inline style attributes.
type Engine struct {
	userAgentSheets []parser.StyleSheet
	authorSheets    []parser.StyleSheet
	viewport        parser.Viewport
}

// NewEngine creates an engine with the default user agent sheet and a 1280x720 viewport.
func NewEngine() *Engine {
	return &Engine{
		userAgentSheets: []parser.StyleSheet{parser.NewParser(DefaultUserAgentCSS).Parse()},
		viewport:        parser.Viewport{Width: 1280, Height: 720},
	}
}

// AddAuthorSheet adds a stylesheet provided by the page.
func (se *Engine) AddAuthorSheet(sheet parser.StyleSheet) {
	se.authorSheets = append(se.authorSheets, sheet)
}

// SetViewport sets the viewport used for media queries and viewport-relative units.
func (se *Engine) SetViewport(width, height float64) {
	se.viewport = parser.Viewport{Width: width, Height: height}
}

// Viewport returns the current viewport.
func (se *Engine) Viewport() parser.Viewport { return se.viewport }

// -- Canonical Data Structures --

// StyledNode is a DOM node with its computed styles. Only element and text nodes are styled.
type StyledNode struct {
	Node           *html.Node
	Parent         *StyledNode
	ComputedStyles map[parser.Property]parser.Value
	Children       []*StyledNode
}

// -- Style Tree Construction (The Cascade and Inheritance) --

// BuildTree styles the subtree rooted at root. The walk uses an explicit stack, so very deep
// documents do not grow the goroutine stack.
func (se *Engine) BuildTree(root *html.Node) *StyledNode {
	if root == nil {
		return nil
	}
	type pending struct {
		node   *html.Node
		parent *StyledNode
	}

	var top *StyledNode
	stack := []pending{{node: root}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sn := se.styleNode(cur.node, cur.parent)
		if sn == nil {
			continue
		}
		if cur.parent != nil {
			cur.parent.Children = append(cur.parent.Children, sn)
		} else {
			top = sn
		}

		var children []*html.Node
		for c := cur.node.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, pending{node: children[i], parent: sn})
		}
	}
	return top
}

// styleNode computes one node's styles. Comments and doctypes are not styled; the document
// node gets an empty style so its children inherit initial values.
func (se *Engine) styleNode(node *html.Node, parent *StyledNode) *StyledNode {
	var styles map[parser.Property]parser.Value
	switch node.Type {
	case html.ElementNode:
		styles = se.CalculateStyles(node)
	case html.TextNode, html.DocumentNode:
		styles = make(map[parser.Property]parser.Value)
	default:
		return nil
	}

	sn := &StyledNode{Node: node, Parent: parent, ComputedStyles: styles}
	se.inheritStyles(sn, parent)
	se.resolveRelativeValues(sn, parent)
	return sn
}

// inheritStyles resolves the CSS-wide keywords and fills inherited properties from parent.
func (se *Engine) inheritStyles(child, parent *StyledNode) {
	for prop, val := range child.ComputedStyles {
		switch strings.ToLower(string(val)) {
		case "inherit":
			if parent != nil {
				if pv, ok := parent.ComputedStyles[prop]; ok {
					child.ComputedStyles[prop] = pv
					continue
				}
			}
			delete(child.ComputedStyles, prop)
		case "initial":
			if iv, ok := initialValues[prop]; ok {
				child.ComputedStyles[prop] = iv
			} else {
				delete(child.ComputedStyles, prop)
			}
		case "unset", "revert":
			delete(child.ComputedStyles, prop)
		}
	}

	if parent == nil {
		return
	}
	for _, prop := range inheritedProperties {
		if _, set := child.ComputedStyles[prop]; set {
			continue
		}
		if pv, ok := parent.ComputedStyles[prop]; ok {
			child.ComputedStyles[prop] = pv
		}
	}
}

// resolveRelativeValues turns font-size into an absolute px value.
func (se *Engine) resolveRelativeValues(sn *StyledNode, parent *StyledNode) {
	parentFontSize := BaseFontSize
	if parent != nil {
		parentFontSize = parent.FontSize()
	}
	raw, ok := sn.ComputedStyles["font-size"]
	if !ok {
		return
	}
	ctx := LengthContext{FontSize: parentFontSize, RootFontSize: BaseFontSize, Reference: parentFontSize, Viewport: se.viewport}
	size, ok := ParseLength(string(raw), ctx)
	if !ok {
		size = parentFontSize
	}
	sn.ComputedStyles["font-size"] = parser.Value(formatPx(size))
}

type StyleOrigin int

const (
	OriginUserAgent StyleOrigin = iota
	OriginAuthor
	OriginInline
)

type DeclarationWithContext struct {
	Declaration parser.Declaration
	Specificity parser.Specificity
	Origin      StyleOrigin
	Order       int
}

// CalculateStyles runs the cascade for a single element.
func (se *Engine) CalculateStyles(node *html.Node) map[parser.Property]parser.Value {
	var declarations []DeclarationWithContext
	order := 0

	collect := func(sheets []parser.StyleSheet, origin StyleOrigin) {
		for _, sheet := range sheets {
			for _, rule := range sheet.Rules {
				if rule.Media != "" && !parser.MatchMedia(rule.Media, se.viewport) {
					continue
				}
				spec, ok := matches(node, rule.Selectors)
				if !ok {
					continue
				}
				for _, decl := range rule.Declarations {
					declarations = append(declarations, DeclarationWithContext{
						Declaration: decl,
						Specificity: spec,
						Origin:      origin,
						Order:       order,
					})
					order++
				}
			}
		}
	}

	collect(se.userAgentSheets, OriginUserAgent)
	collect(se.authorSheets, OriginAuthor)

	for _, attr := range node.Attr {
		if attr.Key != "style" {
			continue
		}
		for _, decl := range parser.ParseDeclarations(attr.Val) {
			declarations = append(declarations, DeclarationWithContext{
				Declaration: decl,
				Origin:      OriginInline,
				Order:       order,
			})
			order++
		}
	}

	sort.SliceStable(declarations, func(i, j int) bool {
		d1, d2 := declarations[i], declarations[j]
		if p1, p2 := cascadePriority(d1), cascadePriority(d2); p1 != p2 {
			return p1 < p2
		}
		if d1.Specificity != d2.Specificity {
			return d1.Specificity.Less(d2.Specificity)
		}
		return d1.Order < d2.Order
	})

	styles := make(map[parser.Property]parser.Value, len(declarations))
	for _, dc := range declarations {
		styles[dc.Declaration.Property] = dc.Declaration.Value
	}
	return styles
}

// cascadePriority ranks origin and importance. Important declarations reverse the origin order.
func cascadePriority(d DeclarationWithContext) int {
	important := d.Declaration.Important
	switch d.Origin {
	case OriginUserAgent:
		if important {
			return 6
		}
		return 1
	case OriginAuthor:
		if important {
			return 4
		}
		return 2
	case OriginInline:
		if important {
			return 5
		}
		return 3
	}
	return 0
}

// -- Computed Value Accessors --

// Lookup returns the computed value of property, the initial value, or fallback.
func (sn *StyledNode) Lookup(property, fallback string) string {
	if val, ok := sn.ComputedStyles[parser.Property(property)]; ok {
		return strings.TrimSpace(string(val))
	}
	if iv, ok := initialValues[parser.Property(property)]; ok {
		return string(iv)
	}
	return fallback
}

type DisplayType int

const (
	DisplayInline DisplayType = iota
	DisplayBlock
	DisplayInlineBlock
	DisplayListItem
	DisplayFlex
	DisplayGrid
	DisplayTable
	DisplayTableRow
	DisplayTableCell
	DisplayContents
	DisplayNone
)

// Display interprets the computed display value. Text nodes are always inline.
func (sn *StyledNode) Display() DisplayType {
	if sn.Node.Type != html.ElementNode {
		return DisplayInline
	}
	switch strings.ToLower(sn.Lookup("display", "inline")) {
	case "none":
		return DisplayNone
	case "contents":
		return DisplayContents
	case "block", "flow-root", "table-caption", "table-header-group", "table-row-group", "table-footer-group":
		return DisplayBlock
	case "inline-block", "inline-flex", "inline-grid", "inline-table":
		return DisplayInlineBlock
	case "list-item":
		return DisplayListItem
	case "flex":
		return DisplayFlex
	case "grid":
		return DisplayGrid
	case "table":
		return DisplayTable
	case "table-row":
		return DisplayTableRow
	case "table-cell":
		return DisplayTableCell
	default:
		return DisplayInline
	}
}

// IsBlockLevel reports whether the element starts a new line box.
func (sn *StyledNode) IsBlockLevel() bool {
	switch sn.Display() {
	case DisplayBlock, DisplayListItem, DisplayFlex, DisplayGrid, DisplayTable, DisplayTableRow:
		return true
	}
	return false
}

// Opacity returns the element's own computed opacity, clamped to [0, 1].
func (sn *StyledNode) Opacity() float64 {
	v := sn.Lookup("opacity", "1")
	f, ok := parseNumber(v)
	if !ok {
		return 1
	}
	if strings.HasSuffix(v, "%") {
		f /= 100
	}
	return clamp(f, 0, 1)
}

// IsVisible checks the node's own styles only: display, visibility and opacity.
func (sn *StyledNode) IsVisible() bool {
	if sn.Display() == DisplayNone {
		return false
	}
	switch strings.ToLower(sn.Lookup("visibility", "visible")) {
	case "hidden", "collapse":
		return false
	}
	return sn.Opacity() > 0
}

// CheckVisibility is the ancestor-aware check: the element must generate a box, its
// inherited visibility must be visible, no inclusive ancestor may be display:none or fully
// transparent, and no ancestor may skip its contents with content-visibility:hidden.
func (sn *StyledNode) CheckVisibility() bool {
	if sn.Display() == DisplayContents {
		return false
	}
	if !sn.IsVisible() {
		return false
	}
	for n := sn.Parent; n != nil; n = n.Parent {
		if n.Node.Type != html.ElementNode {
			continue
		}
		if n.Display() == DisplayNone || n.Opacity() == 0 {
			return false
		}
		if strings.EqualFold(n.Lookup("content-visibility", "visible"), "hidden") {
			return false
		}
	}
	return true
}

// FontSize returns the resolved font size in px.
func (sn *StyledNode) FontSize() float64 {
	if sn == nil {
		return BaseFontSize
	}
	if v, ok := sn.ComputedStyles["font-size"]; ok {
		if f, ok := parseNumber(string(v)); ok {
			return f
		}
	}
	return BaseFontSize
}

// -- Lengths --

// LengthContext supplies the reference values for relative units.
type LengthContext struct {
	FontSize     float64 // em
	RootFontSize float64 // rem
	Reference    float64 // %
	Viewport     parser.Viewport
}

// unitScales map a unit suffix to its px value in ctx. Longer suffixes come first so
// "rem" is not read as "em".
var unitScales = []struct {
	suffix string
	scale  func(LengthContext) float64
}{
	{"vmin", func(c LengthContext) float64 { return min(c.Viewport.Width, c.Viewport.Height) / 100 }},
	{"vmax", func(c LengthContext) float64 { return max(c.Viewport.Width, c.Viewport.Height) / 100 }},
	{"rem", func(c LengthContext) float64 { return c.RootFontSize }},
	{"px", func(LengthContext) float64 { return 1 }},
	{"em", func(c LengthContext) float64 { return c.FontSize }},
	{"vw", func(c LengthContext) float64 { return c.Viewport.Width / 100 }},
	{"vh", func(c LengthContext) float64 { return c.Viewport.Height / 100 }},
	{"pt", func(LengthContext) float64 { return 96.0 / 72.0 }},
	{"cm", func(LengthContext) float64 { return 96.0 / 2.54 }},
	{"mm", func(LengthContext) float64 { return 96.0 / 25.4 }},
	{"in", func(LengthContext) float64 { return 96 }},
	{"%", func(c LengthContext) float64 { return c.Reference / 100 }},
}

// ParseLength resolves a CSS length to px. ok is false for keywords such as auto and for
// values it cannot interpret (calc(), fit-content, ...).
func ParseLength(value string, ctx LengthContext) (float64, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return 0, false
	}
	for _, u := range unitScales {
		if strings.HasSuffix(value, u.suffix) {
			n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(value, u.suffix)), 64)
			if err != nil {
				return 0, false
			}
			return n * u.scale(ctx), true
		}
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Length resolves a length-valued property of sn.
func (sn *StyledNode) Length(property string, ctx LengthContext) (float64, bool) {
	return ParseLength(sn.Lookup(property, "auto"), ctx)
}

// parseNumber reads the leading decimal number of v ("12.5px" -> 12.5).
func parseNumber(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	end := 0
	for end < len(v) && (v[end] >= '0' && v[end] <= '9' || v[end] == '.' || (end == 0 && (v[0] == '-' || v[0] == '+'))) {
		end++
	}
	f, err := strconv.ParseFloat(v[:end], 64)
	return f, err == nil
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
