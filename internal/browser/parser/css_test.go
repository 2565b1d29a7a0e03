// internal/browser/parser/css_test.go
package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(prop, val string, important bool) Declaration {
	return Declaration{Property: Property(prop), Value: Value(val), Important: important}
}

func s(tag, id string, classes []string, attrs []AttributeSelector) SimpleSelector {
	return SimpleSelector{TagName: tag, ID: id, Classes: classes, Attributes: attrs}
}

func sc(c Combinator, sel SimpleSelector) SimpleSelectorWithCombinator {
	return SimpleSelectorWithCombinator{Combinator: c, SimpleSelector: sel}
}

func TestParseSimpleSelectors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected SimpleSelector
	}{
		{"Tag", "DIV", s("div", "", nil, nil)},
		{"ID", "#main", s("", "main", nil, nil)},
		{"Classes", ".btn.primary", s("", "", []string{"btn", "primary"}, nil)},
		{"Combined", "input#username.required", s("input", "username", []string{"required"}, nil)},
		{"Universal", "*", s("*", "", nil, nil)},
		{"Attr Presence", "[hidden]", s("", "", nil, []AttributeSelector{{Name: "hidden"}})},
		{"Attr Exact Unquoted", "[type=hidden]", s("", "", nil, []AttributeSelector{{Name: "type", Operator: "=", Value: "hidden"}})},
		{"Attr Quoted", `[aria-hidden="true"]`, s("", "", nil, []AttributeSelector{{Name: "aria-hidden", Operator: "=", Value: "true"}})},
		{"Attr Case Flag", `[type="HIDDEN" i]`, s("", "", nil, []AttributeSelector{{Name: "type", Operator: "=", Value: "HIDDEN", CaseInsensitive: true}})},
		{"Attr Word", `[class~="alert"]`, s("", "", nil, []AttributeSelector{{Name: "class", Operator: "~=", Value: "alert"}})},
		{"Attr Prefix", `[href^='https']`, s("", "", nil, []AttributeSelector{{Name: "href", Operator: "^=", Value: "https"}})},
		{
			"Pseudo Class",
			"button:disabled",
			SimpleSelector{TagName: "button", PseudoClasses: []PseudoClass{{Name: "disabled"}}},
		},
		{
			"Negation",
			"input:not([type=hidden])",
			SimpleSelector{TagName: "input", PseudoClasses: []PseudoClass{{
				Name: "not",
				Not:  []SimpleSelector{{Attributes: []AttributeSelector{{Name: "type", Operator: "=", Value: "hidden"}}}},
			}}},
		},
		{"Pseudo Element", "p::before", SimpleSelector{TagName: "p", PseudoElement: "before"}},
		{"Legacy Pseudo Element", "p:after", SimpleSelector{TagName: "p", PseudoElement: "after"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group, err := ParseSelectorGroup(tt.input)
			require.NoError(t, err)
			require.Len(t, group, 1)
			require.Len(t, group[0].Selectors, 1)
			assert.Equal(t, tt.expected, group[0].Selectors[0].SimpleSelector)
		})
	}
}

func TestParseCombinators(t *testing.T) {
	group, err := ParseSelectorGroup("div p, article > section, h1 + h2, h2 ~ p, .container .item>span")
	require.NoError(t, err)
	require.Len(t, group, 5)

	expected := []ComplexSelector{
		{Selectors: []SimpleSelectorWithCombinator{sc(CombinatorNone, s("div", "", nil, nil)), sc(CombinatorDescendant, s("p", "", nil, nil))}},
		{Selectors: []SimpleSelectorWithCombinator{sc(CombinatorNone, s("article", "", nil, nil)), sc(CombinatorChild, s("section", "", nil, nil))}},
		{Selectors: []SimpleSelectorWithCombinator{sc(CombinatorNone, s("h1", "", nil, nil)), sc(CombinatorAdjacentSibling, s("h2", "", nil, nil))}},
		{Selectors: []SimpleSelectorWithCombinator{sc(CombinatorNone, s("h2", "", nil, nil)), sc(CombinatorGeneralSibling, s("p", "", nil, nil))}},
		{Selectors: []SimpleSelectorWithCombinator{
			sc(CombinatorNone, s("", "", []string{"container"}, nil)),
			sc(CombinatorDescendant, s("", "", []string{"item"}, nil)),
			sc(CombinatorChild, s("span", "", nil, nil)),
		}},
	}
	assert.Equal(t, SelectorGroup(expected), group)
}

func TestParseSelectorGroupRejectsJunk(t *testing.T) {
	for _, in := range []string{"", "> p", "div$", "[type", "a:not(", "#"} {
		_, err := ParseSelectorGroup(in)
		assert.Error(t, err, in)
	}
}

func TestParseStyleSheet(t *testing.T) {
	input := `
		/* comment */
		body { margin: 0; display: block }
		.hidden, [hidden] { display: none !important; }
		@import url("x.css");
		@font-face { font-family: X; src: url(a.woff) }
		@media print { .screen-only { display: none } }
		@media (max-width: 600px) {
			@media screen { nav { visibility: hidden } }
			.wide { display: none; }
		}
		p { color: red; background: url("data:image/png;base64,AAA}") no-repeat }
		div$ junk { color: blue }
		a { cursor: pointer; ; ; color: }
	`
	sheet := NewParser(input).Parse()
	require.Len(t, sheet.Rules, 7)

	assert.Equal(t, []Declaration{d("margin", "0", false), d("display", "block", false)}, sheet.Rules[0].Declarations)

	assert.Len(t, sheet.Rules[1].Selectors, 2)
	assert.Equal(t, []Declaration{d("display", "none", true)}, sheet.Rules[1].Declarations)

	assert.Equal(t, "print", sheet.Rules[2].Media)
	assert.Equal(t, "(max-width: 600px) and screen", sheet.Rules[3].Media)
	assert.Equal(t, "(max-width: 600px)", sheet.Rules[4].Media)

	assert.Equal(t, d("background", `url("data:image/png;base64,AAA}") no-repeat`, false), sheet.Rules[5].Declarations[1])
	assert.Equal(t, []Declaration{d("cursor", "pointer", false)}, sheet.Rules[6].Declarations)
}

func TestParseDeclarations(t *testing.T) {
	decls := ParseDeclarations("DISPLAY:none; opacity: 0 ! important;color:;;visibility :hidden")
	assert.Equal(t, []Declaration{
		d("display", "none", false),
		d("opacity", "0", true),
		d("visibility", "hidden", false),
	}, decls)
	assert.Empty(t, ParseDeclarations(""))
	assert.Empty(t, ParseDeclarations(":::"))
}

func TestSpecificity(t *testing.T) {
	tests := []struct {
		selector string
		expected Specificity
	}{
		{"*", Specificity{0, 0, 0}},
		{"li", Specificity{0, 0, 1}},
		{"ul li", Specificity{0, 0, 2}},
		{".a.b", Specificity{0, 2, 0}},
		{"#x", Specificity{1, 0, 0}},
		{"a[href]:hover", Specificity{0, 2, 1}},
		{"input:not(#q)", Specificity{1, 0, 1}},
		{"p::before", Specificity{0, 0, 2}},
	}
	for _, tt := range tests {
		group, err := ParseSelectorGroup(tt.selector)
		require.NoError(t, err, tt.selector)
		assert.Equal(t, tt.expected, group[0].Specificity(), tt.selector)
	}

	assert.True(t, Specificity{0, 1, 0}.Less(Specificity{1, 0, 0}))
	assert.True(t, Specificity{0, 1, 2}.Less(Specificity{0, 2, 0}))
	assert.False(t, Specificity{0, 1, 0}.Less(Specificity{0, 1, 0}))
}
