// internal/browser/parser/css.go
package parser

import (
	"fmt"
	"strings"
)

// Property is a lowercase CSS property name (e.g., "display").
type Property string

// Value is the raw text of a CSS value (e.g., "none").
type Value string

// Declaration is a property/value pair, e.g. `display: none !important`.
type Declaration struct {
	Property  Property
	Value     Value
	Important bool
}

// RuleSet is a selector list with its declarations. Media holds the condition of the
// enclosing @media blocks joined with " and ", or "" when the rule is unconditional.
type RuleSet struct {
	Selectors    SelectorGroup
	Declarations []Declaration
	Media        string
}

// StyleSheet is a parsed stylesheet in source order.
type StyleSheet struct {
	Rules []RuleSet
}

// SelectorGroup is a comma separated selector list ("h1, h2 .title").
type SelectorGroup []ComplexSelector

// ComplexSelector is a chain of compound selectors joined by combinators ("div > p").
type ComplexSelector struct {
	Selectors []SimpleSelectorWithCombinator
}

// SimpleSelectorWithCombinator pairs a compound selector with the combinator that links it to
// the previous one.
type SimpleSelectorWithCombinator struct {
	Combinator     Combinator
	SimpleSelector SimpleSelector
}

// SimpleSelector is a compound selector: tag, id, classes, attributes and pseudo-classes.
// A selector with a PseudoElement targets generated boxes and never matches an element.
type SimpleSelector struct {
	TagName       string
	ID            string
	Classes       []string
	Attributes    []AttributeSelector
	PseudoClasses []PseudoClass
	PseudoElement string
}

// AttributeSelector is `[name]` or `[name op value]`. CaseInsensitive is set by the `i` flag.
type AttributeSelector struct {
	Name            string
	Operator        string // "", "=", "~=", "|=", "^=", "$=", "*="
	Value           string
	CaseInsensitive bool
}

// PseudoClass is a `:name` or `:not(...)` component. Not is set only for negations.
type PseudoClass struct {
	Name string
	Not  []SimpleSelector
}

// Combinator defines the relationship between compound selectors.
type Combinator int

const (
	CombinatorNone            Combinator = iota // first compound
	CombinatorDescendant                        // whitespace
	CombinatorChild                             // >
	CombinatorAdjacentSibling                   // +
	CombinatorGeneralSibling                    // ~
)

// Specificity is the (a, b, c) triple used by the cascade.
type Specificity [3]int

// Less orders specificities lexicographically.
func (s Specificity) Less(o Specificity) bool {
	for i := range s {
		if s[i] != o[i] {
			return s[i] < o[i]
		}
	}
	return false
}

// Add sums two specificities.
func (s Specificity) Add(o Specificity) Specificity {
	return Specificity{s[0] + o[0], s[1] + o[1], s[2] + o[2]}
}

// Specificity of a complex selector is the sum over its compounds.
func (cs ComplexSelector) Specificity() Specificity {
	var total Specificity
	for _, s := range cs.Selectors {
		total = total.Add(s.SimpleSelector.Specificity())
	}
	return total
}

// Specificity of a compound selector. :not() contributes its most specific argument.
func (s SimpleSelector) Specificity() Specificity {
	var sp Specificity
	if s.ID != "" {
		sp[0] = 1
	}
	sp[1] = len(s.Classes) + len(s.Attributes)
	for _, pc := range s.PseudoClasses {
		if pc.Name != "not" {
			sp[1]++
			continue
		}
		var best Specificity
		for _, arg := range pc.Not {
			if a := arg.Specificity(); best.Less(a) {
				best = a
			}
		}
		sp = sp.Add(best)
	}
	if s.TagName != "" && s.TagName != "*" {
		sp[2]++
	}
	if s.PseudoElement != "" {
		sp[2]++
	}
	return sp
}

// IsValid reports whether the selector has at least one component.
func (s SimpleSelector) IsValid() bool {
	return s.TagName != "" || s.ID != "" || len(s.Classes) > 0 || len(s.Attributes) > 0 ||
		len(s.PseudoClasses) > 0 || s.PseudoElement != ""
}

// Parser is a forgiving CSS parser: malformed rules are skipped, never reported.
type Parser struct {
	input string
	pos   int
}

func NewParser(input string) *Parser {
	return &Parser{input: input}
}

// Parse parses a whole stylesheet.
func (p *Parser) Parse() StyleSheet {
	return StyleSheet{Rules: p.parseRules("", false)}
}

// ParseDeclarations parses a declaration list without braces, as found in a style attribute.
func ParseDeclarations(input string) []Declaration {
	p := NewParser(input)
	return p.parseDeclarationList()
}

// ParseSelectorGroup parses a standalone selector list ("a, button[type=submit]").
func ParseSelectorGroup(input string) (SelectorGroup, error) {
	p := NewParser(input)
	group := p.parseSelectorGroup()
	p.consumeWhitespace()
	if !p.eof() || len(group) == 0 {
		return nil, fmt.Errorf("invalid selector %q", input)
	}
	return group, nil
}

// parseRules reads rules until EOF, or until the closing brace of the current block when
// nested is set.
func (p *Parser) parseRules(media string, nested bool) []RuleSet {
	var rules []RuleSet
	for {
		p.consumeWhitespace()
		if p.eof() {
			return rules
		}
		if p.startsWith("/*") {
			p.skipComment()
			continue
		}
		if p.startsWith("<!--") || p.startsWith("-->") {
			p.consumeN(3 + boolToInt(p.startsWith("<!--")))
			continue
		}
		ch := p.currentChar()
		if nested && ch == '}' {
			p.consumeChar()
			return rules
		}
		if ch == '@' {
			rules = append(rules, p.parseAtRule(media)...)
			continue
		}

		group := p.parseSelectorGroup()
		p.consumeWhitespace()
		if p.eof() || p.currentChar() != '{' {
			// Junk before the block: drop everything up to and including the next block.
			p.skipTo('{', '}')
			if !p.eof() && p.currentChar() == '{' {
				p.consumeChar()
				p.skipBlock('{', '}')
			} else if !p.eof() && !nested {
				p.consumeChar()
			}
			continue
		}
		p.consumeChar() // '{'
		decls := p.parseDeclarationList()
		if !p.eof() && p.currentChar() == '}' {
			p.consumeChar()
		}
		if len(group) > 0 && len(decls) > 0 {
			rules = append(rules, RuleSet{Selectors: group, Declarations: decls, Media: media})
		}
	}
}

// parseAtRule keeps the rules of @media (and @supports, which is assumed true) blocks and
// skips every other at-rule.
func (p *Parser) parseAtRule(media string) []RuleSet {
	p.consumeChar() // '@'
	name := strings.ToLower(p.parseIdentifier())
	start := p.pos
	for !p.eof() && p.currentChar() != '{' && p.currentChar() != ';' {
		p.pos++
	}
	prelude := strings.TrimSpace(p.input[start:p.pos])
	if p.eof() {
		return nil
	}
	if p.currentChar() == ';' {
		p.consumeChar()
		return nil
	}
	p.consumeChar() // '{'

	switch name {
	case "media":
		cond := prelude
		if media != "" {
			cond = media + " and " + prelude
		}
		return p.parseRules(cond, true)
	case "supports", "layer", "container":
		return p.parseRules(media, true)
	default:
		p.skipBlock('{', '}')
		return nil
	}
}

func (p *Parser) parseSelectorGroup() SelectorGroup {
	var group SelectorGroup
	for {
		p.consumeWhitespace()
		if p.eof() || p.currentChar() == '{' {
			break
		}
		complex, ok := p.parseComplexSelector()
		if ok && len(complex.Selectors) > 0 {
			group = append(group, complex)
		}
		p.consumeWhitespace()
		if !p.eof() && p.currentChar() == ',' {
			p.consumeChar()
			continue
		}
		break
	}
	return group
}

// parseComplexSelector returns ok=false when any compound is malformed; such a selector
// must not match anything.
func (p *Parser) parseComplexSelector() (ComplexSelector, bool) {
	var cs ComplexSelector
	combinator := CombinatorNone
	ok := true

	for {
		p.consumeWhitespace()
		if p.eof() || p.currentChar() == '{' || p.currentChar() == ',' || p.currentChar() == ')' {
			break
		}
		simple, err := p.parseSimpleSelector()
		if err != nil {
			ok = false
			p.skipTo(',', '{', ')')
			break
		}
		cs.Selectors = append(cs.Selectors, SimpleSelectorWithCombinator{Combinator: combinator, SimpleSelector: simple})

		hadSpace := p.consumeWhitespace()
		if p.eof() {
			break
		}
		switch p.currentChar() {
		case '>':
			combinator = CombinatorChild
			p.consumeChar()
		case '+':
			combinator = CombinatorAdjacentSibling
			p.consumeChar()
		case '~':
			combinator = CombinatorGeneralSibling
			p.consumeChar()
		case '{', ',', ')':
			return cs, ok
		default:
			if !hadSpace {
				ok = false
				p.skipTo(',', '{', ')')
				return cs, ok
			}
			combinator = CombinatorDescendant
		}
	}
	return cs, ok
}

// parseSimpleSelector parses one compound such as `input#q.big[type=text]:not(.x)`.
func (p *Parser) parseSimpleSelector() (SimpleSelector, error) {
	var sel SimpleSelector

	if ch := p.currentChar(); ch == '*' {
		p.consumeChar()
		sel.TagName = "*"
	} else if isValidIdentifierStart(ch) {
		sel.TagName = strings.ToLower(p.parseIdentifier())
	}

	for !p.eof() {
		switch p.currentChar() {
		case '#':
			p.consumeChar()
			id := p.parseIdentifier()
			if id == "" {
				return sel, fmt.Errorf("empty id selector")
			}
			sel.ID = id
		case '.':
			p.consumeChar()
			class := p.parseIdentifier()
			if class == "" {
				return sel, fmt.Errorf("empty class selector")
			}
			sel.Classes = append(sel.Classes, class)
		case '[':
			p.consumeChar()
			attr, err := p.parseAttributeSelector()
			if err != nil {
				return sel, err
			}
			sel.Attributes = append(sel.Attributes, attr)
		case ':':
			if err := p.parsePseudo(&sel); err != nil {
				return sel, err
			}
		default:
			if !sel.IsValid() {
				return sel, fmt.Errorf("invalid simple selector at %d", p.pos)
			}
			return sel, nil
		}
	}
	if !sel.IsValid() {
		return sel, fmt.Errorf("invalid simple selector at EOF")
	}
	return sel, nil
}

func (p *Parser) parsePseudo(sel *SimpleSelector) error {
	p.consumeChar() // ':'
	if !p.eof() && p.currentChar() == ':' {
		p.consumeChar()
		sel.PseudoElement = strings.ToLower(p.parseIdentifier())
		return nil
	}
	name := strings.ToLower(p.parseIdentifier())
	if name == "" {
		return fmt.Errorf("empty pseudo-class")
	}
	switch name {
	case "before", "after", "first-line", "first-letter":
		// Legacy single-colon pseudo-elements.
		sel.PseudoElement = name
		return nil
	}
	pc := PseudoClass{Name: name}
	if !p.eof() && p.currentChar() == '(' {
		p.consumeChar()
		if name != "not" {
			// Functional pseudo-classes other than :not are kept by name only; the
			// matcher treats them as unsupported.
			p.skipBlock('(', ')')
			sel.PseudoClasses = append(sel.PseudoClasses, pc)
			return nil
		}
		for {
			p.consumeWhitespace()
			arg, err := p.parseSimpleSelector()
			if err != nil {
				return err
			}
			pc.Not = append(pc.Not, arg)
			p.consumeWhitespace()
			if !p.eof() && p.currentChar() == ',' {
				p.consumeChar()
				continue
			}
			break
		}
		if p.eof() || p.currentChar() != ')' {
			return fmt.Errorf("unterminated :not()")
		}
		p.consumeChar()
	}
	sel.PseudoClasses = append(sel.PseudoClasses, pc)
	return nil
}

// parseAttributeSelector parses the inside of `[...]`; the '[' is already consumed.
func (p *Parser) parseAttributeSelector() (AttributeSelector, error) {
	p.consumeWhitespace()
	name := strings.ToLower(p.parseIdentifier())
	p.consumeWhitespace()
	if name == "" || p.eof() {
		return AttributeSelector{}, fmt.Errorf("malformed attribute selector")
	}
	if p.currentChar() == ']' {
		p.consumeChar()
		return AttributeSelector{Name: name}, nil
	}

	var op string
	switch {
	case p.currentChar() == '=':
		op = "="
		p.consumeChar()
	case strings.IndexByte("~|^$*", p.currentChar()) >= 0 && p.pos+1 < len(p.input) && p.input[p.pos+1] == '=':
		op = p.input[p.pos : p.pos+2]
		p.consumeN(2)
	default:
		return AttributeSelector{}, fmt.Errorf("unknown attribute operator")
	}

	p.consumeWhitespace()
	var value string
	if ch := p.currentChar(); ch == '"' || ch == '\'' {
		value = p.parseQuotedString(ch)
	} else {
		value = p.parseIdentifier()
	}
	p.consumeWhitespace()

	attr := AttributeSelector{Name: name, Operator: op, Value: value}
	if ch := p.currentChar(); ch == 'i' || ch == 'I' {
		attr.CaseInsensitive = true
		p.consumeChar()
		p.consumeWhitespace()
	} else if ch == 's' || ch == 'S' {
		p.consumeChar()
		p.consumeWhitespace()
	}
	if p.eof() || p.currentChar() != ']' {
		return AttributeSelector{}, fmt.Errorf("expected ']' to close attribute selector")
	}
	p.consumeChar()
	return attr, nil
}

// parseDeclarationList reads declarations up to a closing '}' (not consumed) or EOF.
func (p *Parser) parseDeclarationList() []Declaration {
	var decls []Declaration
	for {
		p.consumeWhitespace()
		if p.eof() || p.currentChar() == '}' {
			return decls
		}
		if p.startsWith("/*") {
			p.skipComment()
			continue
		}
		if p.currentChar() == ';' {
			p.consumeChar()
			continue
		}
		if d, ok := p.parseDeclaration(); ok {
			decls = append(decls, d)
		}
	}
}

// parseDeclaration parses `property: value [!important]` and the trailing ';'.
func (p *Parser) parseDeclaration() (Declaration, bool) {
	skip := func() (Declaration, bool) {
		p.skipTo(';', '}')
		if !p.eof() && p.currentChar() == ';' {
			p.consumeChar()
		}
		return Declaration{}, false
	}

	if !isValidIdentifierStart(p.currentChar()) {
		return skip()
	}
	prop := strings.ToLower(p.parseIdentifier())
	p.consumeWhitespace()
	if p.eof() || p.currentChar() != ':' {
		return skip()
	}
	p.consumeChar()
	p.consumeWhitespace()

	val := p.parseValue()
	important := false
	if i := strings.LastIndexByte(val, '!'); i >= 0 && strings.EqualFold(strings.TrimSpace(val[i+1:]), "important") {
		important = true
		val = strings.TrimSpace(val[:i])
	}
	if !p.eof() && p.currentChar() == ';' {
		p.consumeChar()
	}
	if val == "" {
		return Declaration{}, false
	}
	return Declaration{Property: Property(prop), Value: Value(val), Important: important}, true
}

// parseValue reads a value up to ';' or '}', skipping over strings and parenthesised groups.
func (p *Parser) parseValue() string {
	start := p.pos
	for !p.eof() {
		ch := p.currentChar()
		if ch == ';' || ch == '}' {
			break
		}
		switch ch {
		case '"', '\'':
			p.parseQuotedString(ch)
		case '(':
			p.consumeChar()
			p.skipBlock('(', ')')
		default:
			p.pos++
		}
	}
	return strings.TrimSpace(p.input[start:p.pos])
}

// --- Lexer-like Helpers ---

func (p *Parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *Parser) currentChar() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) consumeChar() byte {
	ch := p.currentChar()
	if !p.eof() {
		p.pos++
	}
	return ch
}

func (p *Parser) consumeN(n int) {
	p.pos += n
	if p.pos > len(p.input) {
		p.pos = len(p.input)
	}
}

// consumeWhitespace skips whitespace and comments and reports whether anything was skipped.
func (p *Parser) consumeWhitespace() bool {
	start := p.pos
	for !p.eof() {
		if isWhitespace(p.currentChar()) {
			p.pos++
			continue
		}
		if p.startsWith("/*") {
			p.skipComment()
			continue
		}
		break
	}
	return p.pos > start
}

func (p *Parser) startsWith(s string) bool {
	return strings.HasPrefix(p.input[p.pos:], s)
}

func (p *Parser) skipComment() {
	p.pos += 2
	if end := strings.Index(p.input[p.pos:], "*/"); end >= 0 {
		p.pos += end + 2
		return
	}
	p.pos = len(p.input)
}

func (p *Parser) skipTo(targets ...byte) {
	for !p.eof() {
		if strings.IndexByte(string(targets), p.currentChar()) >= 0 {
			return
		}
		p.pos++
	}
}

// skipBlock consumes input up to and including the close that balances an already
// consumed open.
func (p *Parser) skipBlock(open, close byte) {
	depth := 1
	for !p.eof() {
		switch c := p.currentChar(); c {
		case '"', '\'':
			p.parseQuotedString(c)
			continue
		case open:
			depth++
		case close:
			depth--
		}
		p.pos++
		if depth == 0 {
			return
		}
	}
}

// parseQuotedString consumes a quoted string and returns its unescaped-enough contents.
func (p *Parser) parseQuotedString(quote byte) string {
	p.consumeChar()
	var b strings.Builder
	for !p.eof() {
		ch := p.consumeChar()
		if ch == '\\' && !p.eof() {
			b.WriteByte(p.consumeChar())
			continue
		}
		if ch == quote {
			break
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func (p *Parser) parseIdentifier() string {
	start := p.pos
	for !p.eof() && isValidIdentifierChar(p.currentChar()) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isValidIdentifierStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '-' || ch >= 0x80
}

func isValidIdentifierChar(ch byte) bool {
	return isValidIdentifierStart(ch) || (ch >= '0' && ch <= '9')
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
