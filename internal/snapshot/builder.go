package snapshot

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesnap/api/schemas"
)

// Option configures a Builder.
type Option func(*Builder)

// WithExcludedIDs replaces the set of element ids whose subtrees are never recorded.
func WithExcludedIDs(ids ...string) Option {
	return func(b *Builder) {
		b.excluded = newSet(ids...)
	}
}

// WithVisibilityRules overrides the visibility chain.
func WithVisibilityRules(rules Chain) Option {
	return func(b *Builder) {
		b.visibility = &VisibilityClassifier{rules: rules}
	}
}

// WithInteractivityRules overrides the interactivity chain.
func WithInteractivityRules(rules Chain) Option {
	return func(b *Builder) {
		b.interactivity = &InteractivityClassifier{rules: rules}
	}
}

// Builder turns a Document into a flat node map. A Builder holds no per-call state and
// may be shared between goroutines as long as each call gets its own Document.
type Builder struct {
	logger        *zap.Logger
	excluded      set
	visibility    *VisibilityClassifier
	interactivity *InteractivityClassifier
}

// NewBuilder creates a Builder with the default classification chains.
func NewBuilder(logger *zap.Logger, opts ...Option) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Builder{
		logger:        logger.With(zap.String("component", "snapshot_builder")),
		excluded:      newSet(DefaultExcludedID),
		visibility:    NewVisibilityClassifier(),
		interactivity: NewInteractivityClassifier(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// frame is a pending node on the work stack.
type frame struct {
	node          Node
	parentID      int // -1 for the root
	parentPath    string
	segment       string
	parentVisible bool
}

// traversal holds everything that lives for exactly one Build call.
type traversal struct {
	doc           Document
	nodes         []schemas.NodeRecord
	stack         []frame
	nextHighlight int
	fallbacks     int
	undecided     int
}

// Build snapshots doc. It never fails: a document without a content root yields the
// empty snapshot.
func (b *Builder) Build(doc Document) *schemas.Snapshot {
	start := time.Now()
	root := doc.ContentRoot()
	if root == nil {
		b.logger.Debug("Document has no content root, returning empty snapshot.")
		return schemas.EmptySnapshot()
	}

	t := &traversal{doc: doc, nextHighlight: 1}
	t.stack = append(t.stack, frame{node: root, parentID: -1, segment: Segment(root)})

	for len(t.stack) > 0 {
		f := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		b.visit(t, f)
	}

	snap := &schemas.Snapshot{Nodes: t.nodes}
	if len(t.nodes) > 0 {
		rootID := 0
		snap.RootID = &rootID
	} else {
		snap.Nodes = []schemas.NodeRecord{}
	}

	b.logger.Debug("Snapshot built.",
		zap.Int("nodes", len(t.nodes)),
		zap.Int("highlighted", t.nextHighlight-1),
		zap.Int("visibility_fallbacks", t.fallbacks),
		zap.Int("visibility_undecided", t.undecided),
		zap.Duration("elapsed", time.Since(start)))
	return snap
}

// visit records one node and schedules its children.
func (b *Builder) visit(t *traversal, f frame) {
	n := f.node
	switch n.Kind() {
	case TextNode:
		text := strings.TrimSpace(n.Data())
		if text == "" {
			return
		}
		t.emit(f.parentID, schemas.NodeRecord{
			Kind:      schemas.KindText,
			Text:      text,
			IsVisible: f.parentID >= 0 && f.parentVisible,
		})
		return
	case ElementNode:
	default:
		return
	}

	tag := n.Tag()
	if droppedTags.has(tag) || b.isExcluded(n) {
		return
	}

	visible, rule := b.visibility.Classify(t.doc, n)
	switch rule {
	case RulePreciseVisibility:
	case "":
		t.undecided++
	default:
		t.fallbacks++
	}
	interactive := visible && b.interactivity.IsInteractive(t.doc, n)
	path := JoinPath(f.parentPath, f.segment)

	rec := schemas.NodeRecord{
		Kind:          schemas.KindElement,
		TagName:       tag,
		XPath:         path,
		Attributes:    collectAttributes(n),
		Children:      []int{},
		IsVisible:     visible,
		IsInteractive: interactive,
	}
	if visible && interactive {
		rec.HighlightIndex = t.nextHighlight
		t.nextHighlight++
	}
	id := t.emit(f.parentID, rec)

	if noExpandTags.has(tag) {
		return
	}
	children := n.ChildNodes()
	segs := siblingSegments(children)
	// Pushed in reverse so the first child is popped next.
	for i := len(children) - 1; i >= 0; i-- {
		t.stack = append(t.stack, frame{
			node:          children[i],
			parentID:      id,
			parentPath:    path,
			segment:       segs[i],
			parentVisible: visible,
		})
	}
}

// emit allocates the next id for rec and links it into its parent's children.
func (t *traversal) emit(parentID int, rec schemas.NodeRecord) int {
	id := len(t.nodes)
	rec.ID = id
	t.nodes = append(t.nodes, rec)
	if parentID >= 0 {
		t.nodes[parentID].Children = append(t.nodes[parentID].Children, id)
	}
	return id
}

func (b *Builder) isExcluded(n Node) bool {
	id, ok := n.Attribute("id")
	return ok && b.excluded.has(id)
}

// collectAttributes copies allowlisted attributes and, for form controls, the live value
// when no value attribute was authored.
func collectAttributes(n Node) map[string]string {
	attrs := make(map[string]string)
	for _, a := range n.Attributes() {
		if includedAttributes.has(a.Name) {
			attrs[a.Name] = a.Value
		}
	}
	if !valueTags.has(n.Tag()) {
		return attrs
	}
	if _, authored := attrs["value"]; authored {
		return attrs
	}
	if fc, ok := n.(FormControl); ok {
		if v, ok := fc.Value(); ok {
			attrs["value"] = v
		}
	}
	return attrs
}
