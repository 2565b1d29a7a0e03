package dom_test

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagesnap/internal/browser/dom"
	"github.com/xkilldash9x/pagesnap/internal/browser/htmltree"
	"github.com/xkilldash9x/pagesnap/internal/snapshot"
)

const testHTML = `
	<html>
	<body>
		<div id="header">
			<h1>Welcome</h1>
		</div>
		<div class="content">
			<p>P1</p><p>P2</p>
			<ul>
				<li>Item 1</li>
				<!-- comment -->
				<li>Item 2</li>
				<li id="special">Item 3</li>
			</ul>
		</div>
		<div class="content"><p>P3</p><script>1</script><span data-x="it's">q</span></div>
	</body>
	</html>
	`

func TestStructuralPath(t *testing.T) {
	doc, err := htmlquery.Parse(strings.NewReader(testHTML))
	require.NoError(t, err)

	tests := []struct {
		name     string
		target   string
		expected string
	}{
		{"Body", "//body", "body"},
		{"Document element", "/html", "html"},
		{"Only child keeps bare tag", "//h1", "body/div[1]/h1"},
		{"Repeated tag gets ordinal", "(//p)[2]", "body/div[2]/p[2]"},
		{"List item skipping comments", "//ul/li[2]", "body/div[2]/ul/li[2]"},
		{"Unique among siblings", "//span", "body/div[3]/span"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := htmlquery.FindOne(doc, tt.target)
			require.NotNil(t, target, "target not found with %s", tt.target)

			path := dom.StructuralPath(target)
			assert.Equal(t, tt.expected, path)

			located, err := dom.Locate(doc, path)
			require.NoError(t, err)
			assert.Equal(t, target, located, "path did not select the original node")
		})
	}
}

func TestAnchoredXPath(t *testing.T) {
	doc, err := htmlquery.Parse(strings.NewReader(testHTML))
	require.NoError(t, err)

	tests := []struct {
		name     string
		target   string
		expected string
	}{
		{"Body", "//body", "/html[1]/body[1]"},
		{"Element with ID", "//div[@id='header']", `//*[@id='header']`},
		{"Child of ID element", "//h1", `//*[@id='header']/h1[1]`},
		{"Specific index", "(//p)[2]", "/html[1]/body[1]/div[2]/p[2]"},
		{"List item with ID", "//li[@id='special']", `//*[@id='special']`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := htmlquery.FindOne(doc, tt.target)
			require.NotNil(t, target)

			generated := dom.AnchoredXPath(target)
			assert.Equal(t, tt.expected, generated)
			assert.Equal(t, target, htmlquery.FindOne(doc, generated))
		})
	}
}

func TestAnchoredXPathQuotesIDs(t *testing.T) {
	doc, err := htmlquery.Parse(strings.NewReader(`<body><b id="it's">x</b><i id='say "hi" it&#39;s'>y</i></body>`))
	require.NoError(t, err)

	for _, target := range []string{"//b", "//i"} {
		n := htmlquery.FindOne(doc, target)
		require.NotNil(t, n)
		assert.Equal(t, n, htmlquery.FindOne(doc, dom.AnchoredXPath(n)), target)
	}
}

func TestLocateErrors(t *testing.T) {
	doc, err := htmlquery.Parse(strings.NewReader(testHTML))
	require.NoError(t, err)

	_, err = dom.Locate(doc, "body/table")
	assert.ErrorIs(t, err, dom.ErrNotFound)

	_, err = dom.Locate(doc, "body/div[")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, dom.ErrNotFound)

	_, err = dom.Locate(nil, "body")
	assert.ErrorIs(t, err, dom.ErrNotFound)
}

// Every element record of a snapshot resolves back to the node it was built from.
func TestResolveSnapshotRecords(t *testing.T) {
	doc, err := htmltree.Parse(strings.NewReader(testHTML))
	require.NoError(t, err)
	snap := snapshot.NewBuilder(zaptest.NewLogger(t)).Build(doc)
	require.NotZero(t, snap.Len())

	for _, rec := range snap.Nodes {
		if !rec.IsElement() {
			_, err := dom.Resolve(snap, doc.HTML(), rec.ID)
			assert.Error(t, err)
			continue
		}
		n, err := dom.Resolve(snap, doc.HTML(), rec.ID)
		require.NoError(t, err, rec.XPath)
		assert.Equal(t, rec.TagName, n.Data)
		assert.Equal(t, rec.XPath, dom.StructuralPath(n))
	}

	_, err = dom.Resolve(snap, doc.HTML(), snap.Len())
	assert.ErrorIs(t, err, dom.ErrNotFound)
}
