package cli

import (
	"fmt"
	"io"

	"github.com/roach88/glyph/internal/depgraph"
)

// RenderForest writes the dependency forest as an indented tree, followed by
// cards whose parent is missing and records that could not be placed.
func RenderForest(w io.Writer, s *Styler, f depgraph.Forest) {
	if len(f.Trees) == 0 && len(f.Unattached) == 0 {
		fmt.Fprintln(w, "No cards")
		return
	}
	for _, t := range f.Trees {
		writeNode(w, s, t, "", "", "")
	}

	if len(f.MissingLinks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.Bold("Missing parents"))
		for _, m := range f.MissingLinks {
			reason := "not found"
			if m.OutsideFilter {
				reason = "outside project"
			}
			fmt.Fprintf(w, "  %s -> %s %s\n", s.ID(m.Card.ID), s.ID(m.MissingParent), s.Muted("("+reason+")"))
		}
	}

	if len(f.Unattached) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.Bold("Unattached"))
		for _, c := range f.Unattached {
			label := c.ID.String()
			if label == "" {
				label = "(no id)"
			}
			fmt.Fprintf(w, "  %s %s %s\n", label, c.Title, s.Status(c.Status))
		}
	}
}

// writeNode prints n after prefix+branch, then its children indented by
// prefix+stem.
func writeNode(w io.Writer, s *Styler, n *depgraph.TreeNode, prefix, branch, stem string) {
	if n.Cycle {
		fmt.Fprintf(w, "%s%s%s %s\n", prefix, branch, s.ID(n.ID), s.Warn("(cycle)"))
		return
	}
	fmt.Fprintf(w, "%s%s%s %s %s\n", prefix, branch, s.ID(n.ID), n.Card.Title, s.Status(n.Card.Status))

	childPrefix := prefix + stem
	for i, c := range n.Children {
		if i == len(n.Children)-1 {
			writeNode(w, s, c, childPrefix, "└── ", "    ")
		} else {
			writeNode(w, s, c, childPrefix, "├── ", "│   ")
		}
	}
}
