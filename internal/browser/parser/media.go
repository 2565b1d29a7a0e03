package parser

import (
	"strconv"
	"strings"
)

// Viewport is the screen a media condition is evaluated against.
type Viewport struct {
	Width, Height float64
}

// MatchMedia evaluates a media query list (as stored in RuleSet.Media) for a screen device.
// Unknown media types and features evaluate to false.
func MatchMedia(condition string, vp Viewport) bool {
	condition = strings.TrimSpace(strings.ToLower(condition))
	if condition == "" {
		return true
	}
	for _, query := range strings.Split(condition, ",") {
		if matchQuery(strings.TrimSpace(query), vp) {
			return true
		}
	}
	return false
}

func matchQuery(query string, vp Viewport) bool {
	negate := false
	switch {
	case strings.HasPrefix(query, "not "):
		negate = true
		query = strings.TrimPrefix(query, "not ")
	case strings.HasPrefix(query, "only "):
		query = strings.TrimPrefix(query, "only ")
	}

	result := true
	for _, part := range strings.Split(query, " and ") {
		if !matchMediaPart(strings.TrimSpace(part), vp) {
			result = false
			break
		}
	}
	return result != negate
}

func matchMediaPart(part string, vp Viewport) bool {
	if !strings.HasPrefix(part, "(") {
		switch part {
		case "all", "screen":
			return true
		default:
			return false
		}
	}

	feature := strings.TrimSuffix(strings.TrimPrefix(part, "("), ")")
	name, value, hasValue := strings.Cut(feature, ":")
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if !hasValue {
		// Boolean context, e.g. (hover) or (color).
		return name == "color" || name == "hover" || name == "pointer"
	}

	switch name {
	case "min-width":
		return vp.Width >= mediaLength(value)
	case "max-width":
		return vp.Width <= mediaLength(value)
	case "min-height":
		return vp.Height >= mediaLength(value)
	case "max-height":
		return vp.Height <= mediaLength(value)
	case "orientation":
		if vp.Height >= vp.Width {
			return value == "portrait"
		}
		return value == "landscape"
	case "prefers-color-scheme":
		return value == "light"
	case "prefers-reduced-motion":
		return value == "no-preference"
	case "hover", "any-hover":
		return value == "hover"
	case "pointer", "any-pointer":
		return value == "fine"
	}
	return false
}

// mediaLength resolves px and em/rem (16px) lengths; anything else is treated as px.
func mediaLength(v string) float64 {
	scale := 1.0
	switch {
	case strings.HasSuffix(v, "rem"):
		v, scale = strings.TrimSuffix(v, "rem"), 16
	case strings.HasSuffix(v, "em"):
		v, scale = strings.TrimSuffix(v, "em"), 16
	case strings.HasSuffix(v, "px"):
		v = strings.TrimSuffix(v, "px")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f * scale
}
