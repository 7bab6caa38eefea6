package depgraph

import (
	"slices"

	"github.com/roach88/glyph/internal/card"
)

// TreeNode is one card placed in the dependency forest under its primary
// parent. A node marked Cycle repeats an ancestor on its own path and is not
// expanded further.
type TreeNode struct {
	ID       card.CardID `json:"id"`
	Card     card.Card   `json:"card"`
	Cycle    bool        `json:"cycle,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// MissingLink is a card whose primary parent is not among the rendered
// cards. The card itself is rendered as a root.
type MissingLink struct {
	Card          card.Card   `json:"card"`
	MissingParent card.CardID `json:"missing_parent_id"`
	// OutsideFilter is set when the parent exists but was excluded by the
	// project filter.
	OutsideFilter bool `json:"outside_filter,omitempty"`
}

// Forest is the parent/child view of a card set.
type Forest struct {
	Trees        []*TreeNode   `json:"trees"`
	MissingLinks []MissingLink `json:"missing_links"`
	// Unattached holds records that cannot be placed: cards without an id
	// and later records that repeat an id.
	Unattached []card.Card `json:"unattached"`
}

// BuildDependencyForest arranges cards into trees following each card's
// primary parent. When project is non-empty only cards of that project are
// rendered.
//
// Every rendered id appears exactly once as an expanded node. Roots and
// sibling lists are ordered by id. Cards that sit on a pure cycle, with no
// path to a root, are entered at the cycle's smallest id.
func BuildDependencyForest(cards []card.Card, project string) Forest {
	visible := cards
	if project != "" {
		visible = make([]card.Card, 0, len(cards))
		for _, c := range cards {
			if c.Project == project {
				visible = append(visible, c)
			}
		}
	}

	b := &forestBuilder{
		index:    NewIndex(visible),
		children: make(map[card.CardID][]card.CardID),
		visited:  make(map[card.CardID]bool),
	}
	all := b.index
	if project != "" {
		all = NewIndex(cards)
	}

	forest := Forest{
		Trees:        []*TreeNode{},
		MissingLinks: []MissingLink{},
		Unattached:   append(append([]card.Card{}, b.index.Anonymous()...), b.index.Duplicates()...),
	}

	var roots []card.CardID
	for _, id := range b.index.order {
		c := b.index.byID[id]
		parent := c.PrimaryParent()
		switch {
		case parent.IsZero():
			roots = append(roots, id)
		case b.index.has(parent):
			b.children[parent] = append(b.children[parent], id)
		default:
			forest.MissingLinks = append(forest.MissingLinks, MissingLink{
				Card:          c,
				MissingParent: parent,
				OutsideFilter: all.has(parent),
			})
			roots = append(roots, id)
		}
	}

	slices.SortFunc(roots, card.CardID.Compare)
	for _, kids := range b.children {
		slices.SortFunc(kids, card.CardID.Compare)
	}

	for _, id := range roots {
		forest.Trees = append(forest.Trees, b.build(id, make(map[card.CardID]bool)))
	}

	// Whatever is left hangs off a cycle with no root.
	for _, id := range b.index.SortedIDs() {
		if b.visited[id] {
			continue
		}
		entry := b.cycleEntry(id)
		forest.Trees = append(forest.Trees, b.build(entry, make(map[card.CardID]bool)))
	}

	return forest
}

type forestBuilder struct {
	index    *Index
	children map[card.CardID][]card.CardID
	visited  map[card.CardID]bool
}

func (b *forestBuilder) build(id card.CardID, path map[card.CardID]bool) *TreeNode {
	node := &TreeNode{ID: id, Card: b.index.byID[id]}
	if path[id] || b.visited[id] {
		node.Cycle = true
		return node
	}
	path[id] = true
	b.visited[id] = true
	for _, child := range b.children[id] {
		node.Children = append(node.Children, b.build(child, path))
	}
	delete(path, id)
	return node
}

// cycleEntry follows primary parents up from id until a card repeats and
// returns the smallest id on that cycle.
func (b *forestBuilder) cycleEntry(id card.CardID) card.CardID {
	seen := make(map[card.CardID]int)
	var chain []card.CardID
	cur := id
	for {
		if at, ok := seen[cur]; ok {
			return slices.MinFunc(chain[at:], card.CardID.Compare)
		}
		seen[cur] = len(chain)
		chain = append(chain, cur)

		parent := b.index.byID[cur].PrimaryParent()
		if parent.IsZero() || !b.index.has(parent) || b.visited[parent] {
			return cur
		}
		cur = parent
	}
}

// Walk visits every node depth-first in render order.
func (f Forest) Walk(fn func(n *TreeNode, depth int)) {
	for _, t := range f.Trees {
		walk(t, 0, fn)
	}
}

func walk(n *TreeNode, depth int, fn func(*TreeNode, int)) {
	fn(n, depth)
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}

// Count returns the number of expanded nodes in the forest.
func (f Forest) Count() int {
	n := 0
	f.Walk(func(node *TreeNode, _ int) {
		if !node.Cycle {
			n++
		}
	})
	return n
}
