package domstate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagesnap/api/schemas"
	"github.com/xkilldash9x/pagesnap/internal/browser/htmltree"
	"github.com/xkilldash9x/pagesnap/internal/snapshot"
)

func elem(id int, tag string, visible bool, highlight int, attrs map[string]string, children ...int) schemas.NodeRecord {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return schemas.NodeRecord{
		ID: id, Kind: schemas.KindElement, TagName: tag, Attributes: attrs, Children: children,
		IsVisible: visible, IsInteractive: highlight > 0, HighlightIndex: highlight,
	}
}

func text(id int, s string, visible bool) schemas.NodeRecord {
	return schemas.NodeRecord{ID: id, Kind: schemas.KindText, Text: s, IsVisible: visible}
}

func rootAt(id int) *int { return &id }

func fixture() *schemas.Snapshot {
	return &schemas.Snapshot{
		RootID: rootAt(0),
		Nodes: []schemas.NodeRecord{
			elem(0, "body", true, 0, nil, 1, 3, 5, 6, 9),
			elem(1, "h1", true, 0, nil, 2),
			text(2, "  Welcome \n back ", true),
			elem(3, "a", true, 1, map[string]string{"href": "/docs", "title": "Docs"}, 4),
			text(4, "Docs", true),
			elem(5, "input", true, 2, map[string]string{"name": "q", "placeholder": "Search", "value": ""}),
			elem(6, "div", false, 0, nil, 7, 8),
			text(7, "secret", false),
			elem(8, "button", false, 0, nil),
			elem(9, "button", true, 3, map[string]string{"aria-label": "Close"}, 10, 11),
			elem(10, "span", true, 0, nil, 12),
			elem(11, "span", false, 0, nil, 13),
			text(12, "x", true),
			text(13, "hidden label", false),
		},
	}
}

func TestNewReconstructsTree(t *testing.T) {
	st, err := New(fixture(), "https://example.com", "Example", WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.NotNil(t, st.Root)

	assert.Equal(t, "https://example.com", st.URL)
	assert.Equal(t, "Example", st.Title)
	assert.Equal(t, "body", st.Root.TagName)
	assert.Nil(t, st.Root.Parent)
	require.Len(t, st.Root.Children, 5)

	h1 := st.Root.Children[0].(*Element)
	assert.Same(t, st.Root, h1.Parent)
	welcome := h1.Children[0].(*Text)
	assert.Same(t, h1, welcome.Parent)

	assert.Len(t, st.SelectorMap(), 3)
	link, ok := st.ElementByIndex(1)
	require.True(t, ok)
	assert.Equal(t, "a", link.TagName)
	_, ok = st.ElementByIndex(4)
	assert.False(t, ok)
}

func TestTextContent(t *testing.T) {
	st, err := New(fixture(), "", "")
	require.NoError(t, err)

	button, ok := st.ElementByIndex(3)
	require.True(t, ok)
	assert.Equal(t, "x", button.TextContent(false))
	assert.Equal(t, "x hidden label", button.TextContent(true))

	assert.Equal(t, "Welcome back Docs x", st.Root.TextContent(false))
	assert.Equal(t, "Welcome back Docs secret x hidden label", st.Root.TextContent(true))
}

func TestStringRendering(t *testing.T) {
	st, err := New(fixture(), "", "")
	require.NoError(t, err)

	// Multi-line text is split into trimmed lines.
	want := strings.Join([]string{
		"Welcome",
		"back",
		`[1] <a>Docs</a>`,
		`[2] <input placeholder="Search" name="q" />`,
		`[3] <button aria-label="Close">x</button>`,
	}, "\n")
	assert.Equal(t, want, st.String())
}

func TestStringLongText(t *testing.T) {
	long := strings.Repeat("word ", 30)
	snap := &schemas.Snapshot{
		RootID: rootAt(0),
		Nodes: []schemas.NodeRecord{
			elem(0, "body", true, 0, nil, 1),
			elem(1, "button", true, 1, map[string]string{"type": "submit"}, 2),
			text(2, long, true),
		},
	}
	st, err := New(snap, "", "")
	require.NoError(t, err)
	assert.Equal(t, `[1] <button type="submit" />`, st.String())
}

func TestEmptyStates(t *testing.T) {
	var nilState *State
	assert.Equal(t, EmptyPage, nilState.String())

	st, err := New(nil, "u", "t")
	require.NoError(t, err)
	assert.Equal(t, EmptyPage, st.String())

	st, err = New(schemas.EmptySnapshot(), "", "")
	require.NoError(t, err)
	assert.Nil(t, st.Root)
	assert.Equal(t, EmptyPage, st.String())

	hidden := &schemas.Snapshot{RootID: rootAt(0), Nodes: []schemas.NodeRecord{elem(0, "body", false, 0, nil)}}
	st, err = New(hidden, "", "")
	require.NoError(t, err)
	assert.Equal(t, "", st.String())
}

func TestNewRejectsBadRoots(t *testing.T) {
	textRoot := &schemas.Snapshot{RootID: rootAt(0), Nodes: []schemas.NodeRecord{text(0, "x", true)}}
	_, err := New(textRoot, "", "")
	assert.ErrorIs(t, err, schemas.ErrInvalidSnapshot)

	outOfRange := &schemas.Snapshot{RootID: rootAt(4), Nodes: []schemas.NodeRecord{elem(0, "body", true, 0, nil)}}
	_, err = New(outOfRange, "", "")
	assert.ErrorIs(t, err, schemas.ErrInvalidSnapshot)
}

func TestNewSkipsDanglingReferences(t *testing.T) {
	snap := &schemas.Snapshot{
		RootID: rootAt(0),
		Nodes: []schemas.NodeRecord{
			elem(0, "body", true, 0, nil, 1, 7, 0),
			elem(1, "p", true, 0, nil, 2),
			text(2, "t", true),
		},
	}
	snap.Nodes[1].Children = append(snap.Nodes[1].Children, 2)

	st, err := New(snap, "", "", WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.Len(t, st.Root.Children, 1)
	assert.Len(t, st.Root.Children[0].(*Element).Children, 1)
}

func TestStateFromParsedPage(t *testing.T) {
	doc, err := htmltree.Parse(strings.NewReader(`<html><head><title>Search</title></head><body>` +
		`<h1>Find things</h1>` +
		`<a href="/help" title="Help">Help</a>` +
		`<input name="q" placeholder="Query">` +
		`<div style="display:none">secret<button>x</button></div>` +
		`<button aria-label="Close"><span>&times;</span></button>` +
		`</body></html>`))
	require.NoError(t, err)
	snap := snapshot.NewBuilder(zaptest.NewLogger(t)).Build(doc)

	st, err := New(snap, "file:///search.html", doc.Title())
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"Find things",
		"[1] <a>Help</a>",
		`[2] <input placeholder="Query" name="q" />`,
		`[3] <button aria-label="Close">×</button>`,
	}, "\n"), st.String())
}
