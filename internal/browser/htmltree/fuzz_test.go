package htmltree

import (
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesnap/internal/snapshot"
)

// FuzzBuild checks the node map invariants on arbitrary markup.
func FuzzBuild(f *testing.F) {
	f.Add([]byte(`<body><ul><li>a</li><li><a href="#">b</a></li></ul></body>`))
	f.Add([]byte(`<div style="display:none"><button>x</button></div><svg><g/></svg>`))
	f.Add([]byte(`<style>p{opacity:0}</style><p tabindex=1>t</p><select><option>o</select>`))

	builder := snapshot.NewBuilder(zap.NewNop())
	f.Fuzz(func(t *testing.T, data []byte) {
		c := fuzz.NewConsumer(data)
		markup, err := c.GetString()
		if err != nil {
			return
		}
		precise, err := c.GetBool()
		if err != nil {
			precise = true
		}

		doc, err := Parse(strings.NewReader(markup), WithPreciseVisibility(precise))
		if err != nil {
			return
		}
		snap := builder.Build(doc)

		parents := make([]int, snap.Len())
		for i := range parents {
			parents[i] = -1
		}
		next := 1
		for i, rec := range snap.Nodes {
			if rec.ID != i {
				t.Fatalf("record %d has id %d", i, rec.ID)
			}
			if rec.Highlighted() {
				if !rec.IsVisible || !rec.IsInteractive {
					t.Fatalf("record %d highlighted without being visible and interactive", i)
				}
				if rec.HighlightIndex != next {
					t.Fatalf("record %d has highlight %d, want %d", i, rec.HighlightIndex, next)
				}
				next++
			}
			if rec.IsInteractive && !rec.IsVisible {
				t.Fatalf("record %d interactive but hidden", i)
			}
			for _, child := range rec.Children {
				if child <= i || child >= snap.Len() {
					t.Fatalf("record %d has child %d out of order", i, child)
				}
				if parents[child] != -1 {
					t.Fatalf("record %d has two parents", child)
				}
				parents[child] = i
			}
		}
		if snap.Len() > 0 && (snap.RootID == nil || *snap.RootID != 0) {
			t.Fatalf("non-empty snapshot must be rooted at 0")
		}
	})
}
