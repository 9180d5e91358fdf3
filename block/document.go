package block

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Page lists one page's root blocks in reading order.
type Page struct {
	Index int      `json:"index"`
	Roots []string `json:"roots"`
}

// Document is one input document: a forest of blocks, one tree per page.
// The upstream detector creates it once; the pipeline mutates it in place
// (heading annotations, table replacement/merging) and hands it to the
// renderer alongside the derived section hierarchy.
type Document struct {
	ID     string            `json:"id"`
	Pages  []Page            `json:"pages"`
	Blocks map[string]*Block `json:"blocks"`
}

// NewDocument returns an empty document. A fresh UUID is assigned when id is
// empty.
func NewDocument(id string) *Document {
	if id == "" {
		id = uuid.NewString()
	}
	return &Document{ID: id, Blocks: make(map[string]*Block)}
}

// Get returns the block with the given ID, or nil.
func (d *Document) Get(id string) *Block {
	return d.Blocks[id]
}

// AddRoot registers b as the next root of the given page, creating the page
// on first use. Pages are kept ordered by index.
func (d *Document) AddRoot(page int, b *Block) *Block {
	b.Page = page
	d.Blocks[b.ID] = b
	for i := range d.Pages {
		if d.Pages[i].Index == page {
			d.Pages[i].Roots = append(d.Pages[i].Roots, b.ID)
			return b
		}
	}
	d.Pages = append(d.Pages, Page{Index: page, Roots: []string{b.ID}})
	sort.Slice(d.Pages, func(i, j int) bool { return d.Pages[i].Index < d.Pages[j].Index })
	return b
}

// AddChild registers b as the next child of parent. The child inherits the
// parent's page.
func (d *Document) AddChild(parent *Block, b *Block) *Block {
	b.Page = parent.Page
	d.Blocks[b.ID] = b
	parent.Children = append(parent.Children, b.ID)
	return b
}

// Roots returns all root blocks in document order: page order, then reading
// order within each page. Missing IDs are skipped.
func (d *Document) Roots() []*Block {
	var out []*Block
	for _, p := range d.Pages {
		for _, id := range p.Roots {
			if b := d.Blocks[id]; b != nil {
				out = append(out, b)
			}
		}
	}
	return out
}

// Walk visits every reachable block depth-first in document order, calling
// fn with the block and its depth (roots at depth 0).
func (d *Document) Walk(fn func(b *Block, depth int)) {
	for _, r := range d.Roots() {
		d.walk(r, 0, fn)
	}
}

func (d *Document) walk(b *Block, depth int, fn func(*Block, int)) {
	fn(b, depth)
	for _, id := range b.Children {
		if c := d.Blocks[id]; c != nil {
			d.walk(c, depth+1, fn)
		}
	}
}

// Headers returns every section-header block in document order.
func (d *Document) Headers() []*Block {
	var out []*Block
	d.Walk(func(b *Block, _ int) {
		if b.IsHeader() {
			out = append(out, b)
		}
	})
	return out
}

// Tables returns every table block in document order.
func (d *Document) Tables() []*Block {
	var out []*Block
	d.Walk(func(b *Block, _ int) {
		if b.IsTable() {
			out = append(out, b)
		}
	})
	return out
}

// RawText assembles the text of a block by depth-first concatenation over
// its children, terminating at leaf kinds. A container with no children
// contributes nothing; parts are joined with single spaces.
func (d *Document) RawText(id string) string {
	b := d.Blocks[id]
	if b == nil {
		return ""
	}
	var parts []string
	d.collectText(b, &parts)
	return strings.Join(parts, " ")
}

func (d *Document) collectText(b *Block, parts *[]string) {
	if b.Kind.IsLeaf() {
		if t := strings.TrimSpace(b.Text); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for _, id := range b.Children {
		if c := d.Blocks[id]; c != nil {
			d.collectText(c, parts)
		}
	}
}

// Remove detaches the block and its whole subtree from the document: the
// reference is removed from its parent's children or its page's roots, and
// the subtree's blocks are dropped from the index.
func (d *Document) Remove(id string) {
	b := d.Blocks[id]
	if b == nil {
		return
	}
	for i := range d.Pages {
		for j, rid := range d.Pages[i].Roots {
			if rid == id {
				d.Pages[i].Roots = append(d.Pages[i].Roots[:j], d.Pages[i].Roots[j+1:]...)
				d.dropSubtree(id)
				return
			}
		}
	}
	for _, p := range d.Blocks {
		for j, cid := range p.Children {
			if cid == id {
				p.Children = append(p.Children[:j], p.Children[j+1:]...)
				d.dropSubtree(id)
				return
			}
		}
	}
	// Not referenced anywhere; drop the index entries anyway.
	d.dropSubtree(id)
}

func (d *Document) dropSubtree(id string) {
	b := d.Blocks[id]
	if b == nil {
		return
	}
	for _, cid := range b.Children {
		d.dropSubtree(cid)
	}
	delete(d.Blocks, id)
}

// DecodeDocument reads a detector-serialized document from r, assigns an ID
// when the payload carries none, and validates the forest invariant.
func DecodeDocument(r io.Reader) (*Document, error) {
	var d Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if d.Blocks == nil {
		d.Blocks = make(map[string]*Block)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	// The index key is authoritative for the block's ID.
	for id, b := range d.Blocks {
		if b.ID == "" {
			b.ID = id
		} else if b.ID != id {
			return nil, fmt.Errorf("block indexed as %q carries id %q", id, b.ID)
		}
	}
	sort.Slice(d.Pages, func(i, j int) bool { return d.Pages[i].Index < d.Pages[j].Index })
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}
