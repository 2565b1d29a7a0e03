package style

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/pagesnap/internal/browser/parser"
)

func TestParseLength(t *testing.T) {
	ctx := LengthContext{
		FontSize:     20,
		RootFontSize: 16,
		Reference:    200,
		Viewport:     parser.Viewport{Width: 1000, Height: 800},
	}

	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"10px", 10, true},
		{" 10PX ", 10, true},
		{"1.5em", 30, true},
		{"2rem", 32, true},
		{"50%", 100, true},
		{"10vw", 100, true},
		{"10vh", 80, true},
		{"10vmin", 80, true},
		{"10vmax", 100, true},
		{"72pt", 96, true},
		{"1in", 96, true},
		{"0", 0, true},
		{"42", 42, true},
		{"auto", 0, false},
		{"", 0, false},
		{"calc(100% - 10px)", 0, false},
		{"px", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseLength(tt.input, ctx)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestParseNumber(t *testing.T) {
	v, ok := parseNumber("12.5px")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	v, ok = parseNumber("-3")
	assert.True(t, ok)
	assert.Equal(t, -3.0, v)

	_, ok = parseNumber("px")
	assert.False(t, ok)
}
