package style

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagesnap/internal/browser/parser"
)

// parseHTMLAndFind parses a body fragment and returns the element with the given id.
func parseHTMLAndFind(t *testing.T, h, id string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader("<html><body>" + h + "</body></html>"))
	require.NoError(t, err)
	found := findByID(doc, id)
	require.NotNil(t, found, "no element with id %q", id)
	return found
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		if v, ok := attr(n, "id"); ok && v == id {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func TestMatchesAttribute(t *testing.T) {
	node := parseHTMLAndFind(t, `<input id="input" type="TEXT" lang="en-US" class="foo bar" data-value="example-test">`, "input")

	tests := []struct {
		sel      parser.AttributeSelector
		expected bool
	}{
		{parser.AttributeSelector{Name: "lang"}, true},
		{parser.AttributeSelector{Name: "disabled"}, false},
		{parser.AttributeSelector{Name: "type", Operator: "=", Value: "text"}, false},
		{parser.AttributeSelector{Name: "type", Operator: "=", Value: "text", CaseInsensitive: true}, true},
		{parser.AttributeSelector{Name: "class", Operator: "~=", Value: "foo"}, true},
		{parser.AttributeSelector{Name: "class", Operator: "~=", Value: "baz"}, false},
		{parser.AttributeSelector{Name: "lang", Operator: "|=", Value: "en"}, true},
		{parser.AttributeSelector{Name: "data-value", Operator: "^=", Value: "example"}, true},
		{parser.AttributeSelector{Name: "data-value", Operator: "$=", Value: "test"}, true},
		{parser.AttributeSelector{Name: "data-value", Operator: "*=", Value: "-"}, true},
		{parser.AttributeSelector{Name: "data-value", Operator: "*=", Value: ""}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, matchesAttribute(node, tt.sel), "%+v", tt.sel)
	}
}

func TestSelectorMatching(t *testing.T) {
	const page = `
		<div id="root" class="container main">
			<ul id="list">
				<li id="first">one</li>
				<li id="second" class="active">two</li>
				<li id="third">three</li>
			</ul>
			<p id="para">text</p>
			<span id="empty"></span>
			<fieldset id="fs" disabled>
				<legend id="legend"><input id="in-legend"></legend>
				<input id="in-fieldset">
			</fieldset>
			<select id="sel"><optgroup disabled><option id="opt">x</option></optgroup></select>
			<a id="link" href="/x">x</a><a id="anchor">y</a>
			<input id="box" type="checkbox" checked required>
			<input id="ro" readonly>
			<section id="sec"><h2 id="h2">t</h2></section>
		</div>`

	tests := []struct {
		selector string
		id       string
		expected bool
	}{
		{"div li", "second", true},
		{"div > li", "second", false},
		{"ul > li.active", "second", true},
		{"#first + li", "second", true},
		{"#first ~ #third", "third", true},
		{"#third ~ li", "first", false},
		{".container.main", "root", true},
		{".container.other", "root", false},
		{"li:first-child", "first", true},
		{"li:last-child", "third", true},
		{"li:first-of-type", "second", false},
		{"p:only-of-type", "para", true},
		{"span:empty", "empty", true},
		{"p:empty", "para", false},
		{"li:not(.active)", "first", true},
		{"li:not(.active)", "second", false},
		{"input:disabled", "in-fieldset", true},
		{"input:disabled", "in-legend", false},
		{"option:disabled", "opt", true},
		{"a:link", "link", true},
		{"a:any-link", "anchor", false},
		{"input:checked", "box", true},
		{"input:required", "box", true},
		{"input:read-only", "ro", true},
		{"input:read-write", "in-legend", true},
		{"a:hover", "link", false},
		{"p::before", "para", false},
		{"h2, p", "h2", true},
		{"div section > h2", "h2", true},
		{"*", "h2", true},
		{"li:nth-child(2)", "second", false},
	}

	for _, tt := range tests {
		t.Run(tt.selector+" @ "+tt.id, func(t *testing.T) {
			node := parseHTMLAndFind(t, page, tt.id)
			group, err := parser.ParseSelectorGroup(tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, Matches(node, group))
		})
	}
}

func TestMatchesReturnsBestSpecificity(t *testing.T) {
	node := parseHTMLAndFind(t, `<p id="p" class="c">x</p>`, "p")
	group, err := parser.ParseSelectorGroup("p, .c, #p, div")
	require.NoError(t, err)

	sp, ok := matches(node, group)
	require.True(t, ok)
	assert.Equal(t, parser.Specificity{1, 0, 0}, sp)
}
