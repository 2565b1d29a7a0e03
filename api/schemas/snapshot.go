package schemas

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	json "github.com/json-iterator/go"
)

// wire sorts map keys so equal snapshots encode to identical bytes.
var wire = json.ConfigCompatibleWithStandardLibrary

// ErrInvalidSnapshot is returned when a decoded snapshot violates the node map invariants.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// NodeKind discriminates the two record variants of a node map.
type NodeKind string

const (
	// KindElement is written as "ELEMENT_NODE". Decoding also accepts "ELEMENT".
	KindElement NodeKind = "ELEMENT_NODE"
	KindText    NodeKind = "TEXT_NODE"
)

// NodeRecord is one retained node of a snapshot. Text records only use ID, Kind, Text
// and IsVisible. HighlightIndex is zero when the element has none.
type NodeRecord struct {
	ID             int
	Kind           NodeKind
	TagName        string
	XPath          string
	Text           string
	Attributes     map[string]string
	Children       []int
	IsVisible      bool
	IsInteractive  bool
	HighlightIndex int
}

// IsElement reports whether the record is an element record.
func (r *NodeRecord) IsElement() bool { return r.Kind == KindElement }

// Highlighted reports whether the record carries a highlight index.
func (r *NodeRecord) Highlighted() bool { return r.HighlightIndex > 0 }

// Snapshot is the flat node map produced by a single traversal. Nodes is an arena:
// the record with id i is stored at Nodes[i].
type Snapshot struct {
	RootID *int
	Nodes  []NodeRecord
}

// EmptySnapshot returns the sentinel result used when a document has no content root.
func EmptySnapshot() *Snapshot {
	return &Snapshot{Nodes: []NodeRecord{}}
}

// Len returns the number of retained nodes.
func (s *Snapshot) Len() int { return len(s.Nodes) }

// Lookup returns the record for id.
func (s *Snapshot) Lookup(id int) (*NodeRecord, bool) {
	if id < 0 || id >= len(s.Nodes) {
		return nil, false
	}
	return &s.Nodes[id], true
}

// Root returns the root record, or nil for an empty snapshot.
func (s *Snapshot) Root() *NodeRecord {
	if s.RootID == nil {
		return nil
	}
	r, _ := s.Lookup(*s.RootID)
	return r
}

// Highlighted returns the actionable elements ordered by highlight index.
func (s *Snapshot) Highlighted() []*NodeRecord {
	var out []*NodeRecord
	for i := range s.Nodes {
		if s.Nodes[i].Highlighted() {
			out = append(out, &s.Nodes[i])
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].HighlightIndex < out[b].HighlightIndex })
	return out
}

// -- Wire format --

type elementWire struct {
	ID             int               `json:"id"`
	Kind           NodeKind          `json:"kind"`
	TagName        string            `json:"tagName"`
	XPath          string            `json:"xpath"`
	Attributes     map[string]string `json:"attributes"`
	Children       []int             `json:"children"`
	IsVisible      bool              `json:"isVisible"`
	IsInteractive  bool              `json:"isInteractive"`
	HighlightIndex *int              `json:"highlightIndex"`
}

type textWire struct {
	ID        int      `json:"id"`
	Kind      NodeKind `json:"kind"`
	Text      string   `json:"text"`
	IsVisible bool     `json:"isVisible"`
	Children  []int    `json:"children"`
	XPath     *string  `json:"xpath"`
}

// recordWire is the permissive decoding shape. Older producers used "type" instead of
// "kind" and "ELEMENT" for elements.
type recordWire struct {
	ID             *int              `json:"id"`
	Kind           string            `json:"kind"`
	Type           string            `json:"type"`
	TagName        string            `json:"tagName"`
	XPath          *string           `json:"xpath"`
	Text           string            `json:"text"`
	Attributes     map[string]string `json:"attributes"`
	Children       []int             `json:"children"`
	IsVisible      bool              `json:"isVisible"`
	IsInteractive  bool              `json:"isInteractive"`
	HighlightIndex *int              `json:"highlightIndex"`
}

// MarshalJSON emits the variant shape for the record kind.
func (r NodeRecord) MarshalJSON() ([]byte, error) {
	if r.Kind == KindText {
		return wire.Marshal(textWire{ID: r.ID, Kind: KindText, Text: r.Text, IsVisible: r.IsVisible, Children: []int{}})
	}
	w := elementWire{
		ID:            r.ID,
		Kind:          KindElement,
		TagName:       r.TagName,
		XPath:         r.XPath,
		Attributes:    r.Attributes,
		Children:      r.Children,
		IsVisible:     r.IsVisible,
		IsInteractive: r.IsInteractive,
	}
	if w.Attributes == nil {
		w.Attributes = map[string]string{}
	}
	if w.Children == nil {
		w.Children = []int{}
	}
	if r.HighlightIndex > 0 {
		h := r.HighlightIndex
		w.HighlightIndex = &h
	}
	return wire.Marshal(w)
}

// UnmarshalJSON decodes either record variant.
func (r *NodeRecord) UnmarshalJSON(data []byte) error {
	var w recordWire
	if err := wire.Unmarshal(data, &w); err != nil {
		return err
	}
	kind := w.Kind
	if kind == "" {
		kind = w.Type
	}
	if w.ID == nil {
		return fmt.Errorf("%w: record without id", ErrInvalidSnapshot)
	}
	*r = NodeRecord{ID: *w.ID, IsVisible: w.IsVisible}
	switch kind {
	case string(KindText), "TEXT":
		r.Kind = KindText
		r.Text = w.Text
	case string(KindElement), "ELEMENT":
		r.Kind = KindElement
		r.TagName = w.TagName
		if w.XPath != nil {
			r.XPath = *w.XPath
		}
		r.Attributes = w.Attributes
		if r.Attributes == nil {
			r.Attributes = map[string]string{}
		}
		r.Children = w.Children
		if r.Children == nil {
			r.Children = []int{}
		}
		r.IsInteractive = w.IsInteractive
		if w.HighlightIndex != nil {
			r.HighlightIndex = *w.HighlightIndex
		}
	default:
		return fmt.Errorf("%w: record %d has unknown kind %q", ErrInvalidSnapshot, *w.ID, kind)
	}
	return nil
}

// MarshalJSON writes {"rootId": ..., "map": {...}} with map keys in id order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	stream := wire.BorrowStream(nil)
	defer wire.ReturnStream(stream)

	stream.WriteObjectStart()
	stream.WriteObjectField("rootId")
	if s.RootID == nil {
		stream.WriteNil()
	} else {
		stream.WriteInt(*s.RootID)
	}
	stream.WriteMore()
	stream.WriteObjectField("map")
	stream.WriteObjectStart()
	for i := range s.Nodes {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(strconv.Itoa(i))
		stream.WriteVal(s.Nodes[i])
	}
	stream.WriteObjectEnd()
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}

	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}

// UnmarshalJSON decodes a node map and checks that ids are dense, keys match record ids,
// and every child and root reference resolves.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w struct {
		RootID *int                  `json:"rootId"`
		Map    map[string]NodeRecord `json:"map"`
	}
	if err := wire.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	nodes := make([]NodeRecord, len(w.Map))
	seen := make([]bool, len(w.Map))
	for key, rec := range w.Map {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 || id >= len(nodes) {
			return fmt.Errorf("%w: key %q outside dense id range [0,%d)", ErrInvalidSnapshot, key, len(nodes))
		}
		if rec.ID != id {
			return fmt.Errorf("%w: key %q holds record with id %d", ErrInvalidSnapshot, key, rec.ID)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate id %d", ErrInvalidSnapshot, id)
		}
		seen[id] = true
		nodes[id] = rec
	}
	for i := range nodes {
		for _, c := range nodes[i].Children {
			if c < 0 || c >= len(nodes) {
				return fmt.Errorf("%w: node %d references missing child %d", ErrInvalidSnapshot, i, c)
			}
		}
	}
	if w.RootID != nil && (*w.RootID < 0 || *w.RootID >= len(nodes)) {
		return fmt.Errorf("%w: root id %d not in map", ErrInvalidSnapshot, *w.RootID)
	}

	s.RootID = w.RootID
	s.Nodes = nodes
	return nil
}

// -- Page Snapshot Envelope --

// PageSnapshot wraps a node map with the page it was taken from.
type PageSnapshot struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	TakenAt  time.Time `json:"takenAt"`
	Snapshot *Snapshot `json:"snapshot"`
}

// json-iterator reports errors from a nested UnmarshalJSON as plain text, so decoding a
// Snapshot through wire.Unmarshal loses ErrInvalidSnapshot. The Decode helpers call
// (*Snapshot).UnmarshalJSON directly and keep it.

// DecodeSnapshot decodes a bare node map. Every error wraps ErrInvalidSnapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &s, nil
}

// DecodePageSnapshot decodes one envelope. A missing or null "snapshot" leaves Snapshot nil.
func DecodePageSnapshot(data []byte) (*PageSnapshot, error) {
	var w struct {
		ID       string          `json:"id"`
		URL      string          `json:"url"`
		Title    string          `json:"title"`
		TakenAt  time.Time       `json:"takenAt"`
		Snapshot json.RawMessage `json:"snapshot"`
	}
	if err := wire.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	page := &PageSnapshot{ID: w.ID, URL: w.URL, Title: w.Title, TakenAt: w.TakenAt}
	if raw := bytes.TrimSpace(w.Snapshot); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		snap, err := DecodeSnapshot(raw)
		if err != nil {
			return nil, err
		}
		page.Snapshot = snap
	}
	return page, nil
}

// DecodePageSnapshots decodes a JSON array of envelopes, as written for batch runs.
func DecodePageSnapshots(data []byte) ([]*PageSnapshot, error) {
	var raws []json.RawMessage
	if err := wire.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	pages := make([]*PageSnapshot, 0, len(raws))
	for i, raw := range raws {
		page, err := DecodePageSnapshot(raw)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, page)
	}
	return pages, nil
}
