package block

import "fmt"

// Validate checks the forest invariant: every referenced block exists, no
// block is the child of two parents or both a root and a child, every block
// is reachable from exactly one page root, and the children relation is
// acyclic. A validated document can be walked without revisiting a block.
func (d *Document) Validate() error {
	seen := make(map[string]bool, len(d.Blocks))
	pageSeen := make(map[int]bool, len(d.Pages))

	for _, p := range d.Pages {
		if pageSeen[p.Index] {
			return fmt.Errorf("page %d listed twice", p.Index)
		}
		pageSeen[p.Index] = true
		for _, id := range p.Roots {
			b := d.Blocks[id]
			if b == nil {
				return fmt.Errorf("page %d lists missing root %q", p.Index, id)
			}
			if err := d.validateSubtree(b, seen); err != nil {
				return err
			}
		}
	}

	for id := range d.Blocks {
		if !seen[id] {
			return fmt.Errorf("block %q unreachable from any page root", id)
		}
	}
	return nil
}

func (d *Document) validateSubtree(b *Block, seen map[string]bool) error {
	if seen[b.ID] {
		// Second visit means two parents, a root listed as a child, or a
		// cycle closing back on itself.
		return fmt.Errorf("block %q reachable twice", b.ID)
	}
	seen[b.ID] = true
	if !b.Kind.Valid() {
		return fmt.Errorf("block %q has unknown kind %q", b.ID, b.Kind)
	}
	for _, cid := range b.Children {
		c := d.Blocks[cid]
		if c == nil {
			return fmt.Errorf("block %q references missing child %q", b.ID, cid)
		}
		if err := d.validateSubtree(c, seen); err != nil {
			return err
		}
	}
	return nil
}
