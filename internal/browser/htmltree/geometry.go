package htmltree

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagesnap/internal/browser/parser"
	"github.com/xkilldash9x/pagesnap/internal/browser/style"
	"github.com/xkilldash9x/pagesnap/internal/snapshot"
)

// Metrics used by the estimate. Glyphs are assumed half an em wide.
const (
	glyphWidthEm   = 0.5
	buttonPaddingX = 12.0
	buttonPaddingY = 4.0
	brokenImageDim = 16.0
)

// estimateBoxes sizes every styled node without a layout engine. The estimate only needs to
// decide whether a node has a non-empty box, so positions are not tracked: block-level
// boxes fill the viewport width, inline content is measured from its text, explicit lengths
// win, and replaced elements use their attributes or the user agent sizes.
func estimateBoxes(root *style.StyledNode, vp parser.Viewport) map[*html.Node]snapshot.Box {
	boxes := make(map[*html.Node]snapshot.Box)
	if root == nil {
		return boxes
	}

	// Reverse pre-order visits children before their parents.
	var order []*style.StyledNode
	stack := []*style.StyledNode{root}
	for len(stack) > 0 {
		sn := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, sn)
		stack = append(stack, sn.Children...)
	}
	for i := len(order) - 1; i >= 0; i-- {
		sn := order[i]
		boxes[sn.Node] = estimateBox(sn, boxes, vp)
	}
	return boxes
}

func estimateBox(sn *style.StyledNode, boxes map[*html.Node]snapshot.Box, vp parser.Viewport) snapshot.Box {
	switch sn.Node.Type {
	case html.TextNode:
		return textBox(sn, vp)
	case html.ElementNode:
	default:
		return snapshot.Box{Width: vp.Width, Height: contentSize(sn, boxes).Height}
	}

	display := sn.Display()
	if display == style.DisplayNone || display == style.DisplayContents {
		return snapshot.Box{}
	}

	fontSize := sn.FontSize()
	widthCtx := style.LengthContext{FontSize: fontSize, RootFontSize: style.BaseFontSize, Reference: vp.Width, Viewport: vp}
	heightCtx := widthCtx
	heightCtx.Reference = vp.Height

	width, hasWidth := sn.Length("width", widthCtx)
	height, hasHeight := sn.Length("height", heightCtx)

	tag := strings.ToLower(sn.Node.Data)
	if tag == "img" {
		w, h := imageSize(sn.Node)
		if !hasWidth {
			width = w
		}
		if !hasHeight {
			height = h
		}
		return snapshot.Box{Width: width, Height: height}
	}

	content := contentSize(sn, boxes)
	if tag == "button" {
		content.Width += buttonPaddingX
		content.Height = max(content.Height, fontSize*style.DefaultLineHeight) + buttonPaddingY
	}
	if tag == "select" && !hasWidth {
		content.Width = max(content.Width, widestOption(sn.Node, fontSize)) + 24
	}

	if !hasWidth {
		if sn.IsBlockLevel() {
			width = vp.Width
		} else {
			width = content.Width
		}
	}
	if !hasHeight {
		height = content.Height
	}

	if limit, ok := sn.Length("max-height", heightCtx); ok {
		height = min(height, limit)
	}
	if limit, ok := sn.Length("max-width", widthCtx); ok {
		width = min(width, limit)
	}
	return snapshot.Box{Width: max(width, 0), Height: max(height, 0)}
}

// contentSize stacks block-level children vertically and lays inline children on one line.
func contentSize(sn *style.StyledNode, boxes map[*html.Node]snapshot.Box) snapshot.Box {
	var blockW, blockH, lineW, lineH float64
	flush := func() {
		blockW = max(blockW, lineW)
		blockH += lineH
		lineW, lineH = 0, 0
	}
	for _, c := range sn.Children {
		b := boxes[c.Node]
		if c.Node.Type == html.ElementNode && c.IsBlockLevel() {
			flush()
			blockW = max(blockW, b.Width)
			blockH += b.Height
			continue
		}
		lineW += b.Width
		lineH = max(lineH, b.Height)
	}
	flush()
	return snapshot.Box{Width: blockW, Height: blockH}
}

// textBox measures a text run. Collapsible whitespace-only runs produce no box.
func textBox(sn *style.StyledNode, vp parser.Viewport) snapshot.Box {
	text := sn.Node.Data
	ws := sn.Lookup("white-space", "normal")
	preserves := strings.HasPrefix(ws, "pre") || ws == "break-spaces"
	if !preserves {
		text = strings.Join(strings.Fields(text), " ")
	}
	if text == "" {
		return snapshot.Box{}
	}

	fontSize := sn.FontSize()
	lineHeight := fontSize * style.DefaultLineHeight
	width := float64(utf8.RuneCountInString(text)) * fontSize * glyphWidthEm
	lines := 1.0
	if width > vp.Width && vp.Width > 0 {
		lines = float64(int(width/vp.Width) + 1)
		width = vp.Width
	}
	return snapshot.Box{Width: width, Height: lines * lineHeight}
}

// imageSize uses the width/height attributes, the broken-image icon for a src without
// dimensions, and nothing otherwise.
func imageSize(n *html.Node) (float64, float64) {
	w, hasW := dimensionAttr(n, "width")
	h, hasH := dimensionAttr(n, "height")
	switch {
	case hasW && hasH:
		return w, h
	case hasW:
		return w, w
	case hasH:
		return h, h
	}
	if src, ok := attr(n, "src"); ok && strings.TrimSpace(src) != "" {
		return brokenImageDim, brokenImageDim
	}
	return 0, 0
}

func dimensionAttr(n *html.Node, name string) (float64, bool) {
	v, ok := attr(n, name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}

func widestOption(sel *html.Node, fontSize float64) float64 {
	widest := 0.0
	for _, o := range elementsByTag(sel, "option") {
		label := strings.Join(strings.Fields(textContent(o)), " ")
		widest = max(widest, float64(utf8.RuneCountInString(label))*fontSize*glyphWidthEm)
	}
	return widest
}
