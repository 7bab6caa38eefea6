package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/testutil"
)

// rendered counts how often each id appears as an expanded node.
func rendered(f Forest) map[card.CardID]int {
	counts := make(map[card.CardID]int)
	f.Walk(func(n *TreeNode, _ int) {
		if !n.Cycle {
			counts[n.ID]++
		}
	})
	return counts
}

func TestBuildDependencyForest_Simple(t *testing.T) {
	cards := []card.Card{
		testutil.NewCard(3, card.StatusAvailable, 1),
		testutil.NewCard(1, card.StatusAccepted),
		testutil.NewCard(2, card.StatusAvailable, 1),
		testutil.NewCard(4, card.StatusAvailable),
	}

	f := BuildDependencyForest(cards, "")
	require.Len(t, f.Trees, 2)
	assert.Equal(t, card.Numeric(1), f.Trees[0].ID)
	assert.Equal(t, card.Numeric(4), f.Trees[1].ID)

	kids := f.Trees[0].Children
	require.Len(t, kids, 2)
	assert.Equal(t, card.Numeric(2), kids[0].ID)
	assert.Equal(t, card.Numeric(3), kids[1].ID)
	assert.Empty(t, f.MissingLinks)
	assert.Empty(t, f.Unattached)
	assert.Equal(t, 4, f.Count())
}

func TestBuildDependencyForest_ProjectFilterReportsMissingLink(t *testing.T) {
	parent := testutil.NewCard(1, card.StatusAccepted)
	parent.Project = "beta"
	child := testutil.NewCard(2, card.StatusAvailable, 1)
	child.Project = "alpha"

	f := BuildDependencyForest([]card.Card{parent, child}, "alpha")
	require.Len(t, f.Trees, 1)
	assert.Equal(t, card.Numeric(2), f.Trees[0].ID)

	require.Len(t, f.MissingLinks, 1)
	assert.Equal(t, card.Numeric(2), f.MissingLinks[0].Card.ID)
	assert.Equal(t, card.Numeric(1), f.MissingLinks[0].MissingParent)
	assert.True(t, f.MissingLinks[0].OutsideFilter)
}

func TestBuildDependencyForest_DanglingParent(t *testing.T) {
	f := BuildDependencyForest([]card.Card{testutil.NewCard(9, card.StatusBlocked, 99)}, "")
	require.Len(t, f.Trees, 1)
	require.Len(t, f.MissingLinks, 1)
	assert.False(t, f.MissingLinks[0].OutsideFilter)
}

func TestBuildDependencyForest_ThreeCycle(t *testing.T) {
	cards := []card.Card{
		testutil.NewCard(1, card.StatusBlocked, 3),
		testutil.NewCard(2, card.StatusBlocked, 1),
		testutil.NewCard(3, card.StatusBlocked, 2),
	}

	f := BuildDependencyForest(cards, "")
	assert.Equal(t, map[card.CardID]int{
		card.Numeric(1): 1,
		card.Numeric(2): 1,
		card.Numeric(3): 1,
	}, rendered(f))

	cycles := 0
	f.Walk(func(n *TreeNode, _ int) {
		if n.Cycle {
			cycles++
		}
	})
	assert.GreaterOrEqual(t, cycles, 1)

	require.Len(t, f.Trees, 1)
	assert.Equal(t, card.Numeric(1), f.Trees[0].ID)
}

func TestBuildDependencyForest_CycleWithTail(t *testing.T) {
	cards := []card.Card{
		testutil.NewCard(5, card.StatusBlocked, 6),
		testutil.NewCard(6, card.StatusBlocked, 5),
		testutil.NewCard(2, card.StatusBlocked, 6),
		testutil.NewCard(1, card.StatusAvailable),
	}

	f := BuildDependencyForest(cards, "")
	counts := rendered(f)
	assert.Len(t, counts, 4)
	for id, n := range counts {
		assert.Equal(t, 1, n, "card %s", id)
	}
	require.Len(t, f.Trees, 2)
	assert.Equal(t, card.Numeric(1), f.Trees[0].ID)
	assert.Equal(t, card.Numeric(5), f.Trees[1].ID)
}

func TestBuildDependencyForest_SelfReference(t *testing.T) {
	f := BuildDependencyForest([]card.Card{testutil.NewCard(5, card.StatusBlocked, 5)}, "")
	require.Len(t, f.Trees, 1)
	root := f.Trees[0]
	assert.Equal(t, card.Numeric(5), root.ID)
	assert.False(t, root.Cycle)
	require.Len(t, root.Children, 1)
	assert.True(t, root.Children[0].Cycle)
}

func TestBuildDependencyForest_UsesPrimaryParentOnly(t *testing.T) {
	cards := []card.Card{
		testutil.NewCard(1, card.StatusAccepted),
		testutil.NewCard(2, card.StatusAccepted),
		testutil.NewCard(3, card.StatusBlocked, 2, 1),
	}

	f := BuildDependencyForest(cards, "")
	require.Len(t, f.Trees, 2)
	assert.Empty(t, f.Trees[0].Children)
	require.Len(t, f.Trees[1].Children, 1)
	assert.Equal(t, card.Numeric(3), f.Trees[1].Children[0].ID)
}

func TestBuildDependencyForest_Unattached(t *testing.T) {
	dup := testutil.NewCard(1, card.StatusAvailable)
	dup.Title = "shadow"
	cards := []card.Card{
		testutil.NewCard(1, card.StatusAvailable),
		{Title: "no id", Status: card.StatusAvailable},
		dup,
	}

	f := BuildDependencyForest(cards, "")
	require.Len(t, f.Trees, 1)
	require.Len(t, f.Unattached, 2)
	assert.Equal(t, "no id", f.Unattached[0].Title)
	assert.Equal(t, "shadow", f.Unattached[1].Title)
}

func TestBuildDependencyForest_MixedIDKinds(t *testing.T) {
	cards := []card.Card{
		{ID: card.ParseID("zeta"), Status: card.StatusAvailable},
		{ID: card.ParseID("alpha"), Status: card.StatusAvailable},
		testutil.NewCard(12, card.StatusAvailable),
		testutil.NewCard(2, card.StatusAvailable),
	}

	f := BuildDependencyForest(cards, "")
	var order []string
	for _, tree := range f.Trees {
		order = append(order, tree.ID.String())
	}
	assert.Equal(t, []string{"002", "012", "alpha", "zeta"}, order)
}

func TestBuildDependencyForest_Empty(t *testing.T) {
	f := BuildDependencyForest(nil, "")
	assert.Empty(t, f.Trees)
	assert.NotNil(t, f.Trees)
	assert.Equal(t, 0, f.Count())
}
