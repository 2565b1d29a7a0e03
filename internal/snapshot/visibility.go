package snapshot

import (
	"strconv"
	"strings"
)

// Rule is one step of an ordered classification chain. Eval returns Unknown to pass the
// decision to the next rule.
type Rule struct {
	Name string
	Eval func(doc Document, el Node) Verdict
}

// Chain evaluates rules in order; the first definite verdict wins.
type Chain []Rule

// Evaluate returns the first definite verdict and the rule that produced it. When every rule
// abstains it returns Unknown and an empty name.
func (c Chain) Evaluate(doc Document, el Node) (Verdict, string) {
	for _, r := range c {
		if v := r.Eval(doc, el); v != Unknown {
			return v, r.Name
		}
	}
	return Unknown, ""
}

// VisibilityClassifier decides whether an element is visible to a user.
type VisibilityClassifier struct {
	rules Chain
}

// NewVisibilityClassifier returns the classifier with the default rule chain: the document's
// precise query first, then the geometry and computed style heuristic.
func NewVisibilityClassifier() *VisibilityClassifier {
	return &VisibilityClassifier{rules: VisibilityRules()}
}

// VisibilityRules returns the ordered visibility chain.
func VisibilityRules() Chain {
	return Chain{
		{Name: RulePreciseVisibility, Eval: preciseVisibility},
		{Name: RuleGeometricVisibility, Eval: geometricVisibility},
	}
}

const (
	RulePreciseVisibility   = "check-visibility"
	RuleGeometricVisibility = "geometry-style"
)

// IsVisible collapses the chain to a boolean. An undecided chain means not visible.
func (c *VisibilityClassifier) IsVisible(doc Document, el Node) bool {
	visible, _ := c.Classify(doc, el)
	return visible
}

// Classify is IsVisible plus the name of the deciding rule ("" when no rule decided).
func (c *VisibilityClassifier) Classify(doc Document, el Node) (bool, string) {
	v, rule := c.rules.Evaluate(doc, el)
	return v == Yes, rule
}

func preciseVisibility(doc Document, el Node) Verdict {
	visible, err := doc.CheckVisibility(el)
	if err != nil {
		return Unknown
	}
	return verdictOf(visible)
}

// geometricVisibility requires a non-empty box and a computed style that is neither
// display:none, visibility:hidden nor fully transparent. Any failed query abstains.
func geometricVisibility(doc Document, el Node) Verdict {
	box, err := doc.BoundingBox(el)
	if err != nil {
		return Unknown
	}
	if box.Width <= 0 || box.Height <= 0 {
		return No
	}

	visibility, err := doc.ComputedStyle(el, "visibility")
	if err != nil {
		return Unknown
	}
	display, err := doc.ComputedStyle(el, "display")
	if err != nil {
		return Unknown
	}
	opacity, err := doc.ComputedStyle(el, "opacity")
	if err != nil {
		return Unknown
	}

	if strings.TrimSpace(visibility) == "hidden" || strings.TrimSpace(display) == "none" || isZeroOpacity(opacity) {
		return No
	}
	return Yes
}

func isZeroOpacity(v string) bool {
	v = strings.TrimSpace(v)
	if v == "0" {
		return true
	}
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && f == 0
}

// styleIs compares a computed property against want, abstaining when the style is unavailable.
func styleIs(doc Document, el Node, property, want string) Verdict {
	v, err := doc.ComputedStyle(el, property)
	if err != nil {
		return Unknown
	}
	return verdictOf(strings.EqualFold(strings.TrimSpace(v), want))
}
