package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchMedia(t *testing.T) {
	desktop := Viewport{Width: 1280, Height: 800}
	phone := Viewport{Width: 390, Height: 844}

	tests := []struct {
		condition string
		vp        Viewport
		expected  bool
	}{
		{"", desktop, true},
		{"screen", desktop, true},
		{"print", desktop, false},
		{"print, screen", desktop, true},
		{"not print", desktop, true},
		{"only screen and (max-width: 600px)", desktop, false},
		{"only screen and (max-width: 600px)", phone, true},
		{"(min-width: 40em)", desktop, true},
		{"(min-width: 40em)", phone, false},
		{"(orientation: portrait)", phone, true},
		{"(orientation: portrait)", desktop, false},
		{"(prefers-color-scheme: dark)", desktop, false},
		{"(max-width: 600px) and screen", phone, true},
		{"(some-future-feature: 1)", desktop, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, MatchMedia(tt.condition, tt.vp), "%q @ %v", tt.condition, tt.vp)
	}
}
