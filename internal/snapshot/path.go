package snapshot

import (
	"strconv"
	"strings"
)

// Segment returns the structural path segment of el among its element siblings.
// Elements that are the only one of their tag keep the bare tag name; every element that
// shares its tag with any sibling, before or after it, is suffixed with its 1-based ordinal.
func Segment(el Node) string {
	parent := el.Parent()
	if parent == nil {
		return el.Tag()
	}
	siblings := parent.ChildNodes()
	segs := siblingSegments(siblings)
	for i, s := range siblings {
		if s == el {
			return segs[i]
		}
	}
	return el.Tag()
}

// JoinPath appends a segment to a parent path. The root path is the bare segment.
func JoinPath(parentPath, segment string) string {
	if parentPath == "" {
		return segment
	}
	return parentPath + "/" + segment
}

// siblingSegments computes the segment of every element in children in one pass.
// Non-element entries get "". Excluded siblings (script, style, ...) still count.
func siblingSegments(children []Node) []string {
	totals := make(map[string]int)
	for _, c := range children {
		if c.Kind() == ElementNode {
			totals[c.Tag()]++
		}
	}

	segs := make([]string, len(children))
	seen := make(map[string]int, len(totals))
	for i, c := range children {
		if c.Kind() != ElementNode {
			continue
		}
		tag := c.Tag()
		seen[tag]++
		if totals[tag] == 1 {
			segs[i] = tag
			continue
		}
		segs[i] = tag + "[" + strconv.Itoa(seen[tag]) + "]"
	}
	return segs
}

// AbsoluteXPath turns a structural path rooted at the content container into an absolute
// XPath expression over an HTML document.
func AbsoluteXPath(path string) string {
	if path == "" {
		return "/"
	}
	if path == "html" || strings.HasPrefix(path, "html/") || strings.HasPrefix(path, "html[") {
		return "/" + path
	}
	return "/html/" + path
}
