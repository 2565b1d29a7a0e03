package session

import (
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
)

func TestExecOptions(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		extra int
	}{
		{"Default", Config{}, 3},
		{"Headless", Config{Headless: true}, 3},
		{"Viewport", Config{Headless: true, ViewportWidth: 800, ViewportHeight: 600}, 4},
		{"Args", Config{Args: []string{"--flag1", "key=value", "-- ", "lang=en-US"}}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := ExecOptions(tt.cfg)
			assert.Len(t, opts, len(chromedp.DefaultExecAllocatorOptions)+tt.extra)
		})
	}
}

func TestExecOptionsDoesNotShareDefaults(t *testing.T) {
	a := ExecOptions(Config{Args: []string{"a"}})
	b := ExecOptions(Config{Args: []string{"b", "c"}})
	assert.Len(t, a, len(chromedp.DefaultExecAllocatorOptions)+4)
	assert.Len(t, b, len(chromedp.DefaultExecAllocatorOptions)+5)
}
