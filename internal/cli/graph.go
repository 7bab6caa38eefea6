package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/glyph/internal/board"
	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/depgraph"
)

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Bring card statuses in line with the acceptance ledger",
		Long: `Recompute which cards are blocked and write the status changes.

Accepted and needs_revision cards are never touched. Running reconcile
twice in a row changes nothing the second time.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				if dryRun {
					return planReconcile(cmd, e)
				}
				return runReconcile(cmd.Context(), e)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without writing them")
	return cmd
}

func runReconcile(ctx context.Context, e *env) error {
	report, err := e.board.Reconcile(ctx)
	if err != nil {
		if report != nil {
			if partial := outputPartialReconcile(e.out, "reconcile", report.Changes, report, err); partial != nil {
				return partial
			}
		}
		return e.out.Fail("reconcile", err)
	}
	return e.out.Success(report, func(w io.Writer, s *Styler) {
		if len(report.Changes) == 0 {
			fmt.Fprintf(w, "%s All %d card(s) up to date\n", s.OK("✓"), report.Index.Len())
			return
		}
		fmt.Fprintf(w, "%s Updated %d card(s)\n", s.OK("✓"), len(report.Changes))
		writeChanges(w, s, report.Changes)
	})
}

func planReconcile(cmd *cobra.Command, e *env) error {
	cards, err := e.store.LoadCards(cmd.Context())
	if err != nil {
		return e.out.Fail("reconcile", err)
	}
	ledger, err := e.store.LoadLedger(cmd.Context())
	if err != nil {
		return e.out.Fail("reconcile", err)
	}
	changes, _, _ := depgraph.PlanReconcile(cards, ledger)
	return e.out.Success(changes, func(w io.Writer, s *Styler) {
		if len(changes) == 0 {
			fmt.Fprintf(w, "%s Nothing to change\n", s.OK("✓"))
			return
		}
		fmt.Fprintf(w, "Would update %d card(s)\n", len(changes))
		writeChanges(w, s, changes)
	})
}

// NewDepsCommand creates the deps command.
func NewDepsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "deps <id>",
		Short:         "Explain whether a card's dependencies are met",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				id, err := parseIDArg(e.out, args[0])
				if err != nil {
					return err
				}
				report, err := e.board.Dependencies(cmd.Context(), id)
				if err != nil {
					return e.out.Fail("check dependencies", err)
				}
				return e.out.Success(report, func(w io.Writer, s *Styler) {
					writeDependencies(w, s, report)
				})
			})
		},
	}
}

func writeDependencies(w io.Writer, s *Styler, r *board.DependencyReport) {
	fmt.Fprintf(w, "%s %s %s\n", s.ID(r.Card.ID), r.Card.Title, s.Status(r.Card.Status))
	if len(r.Parents) == 0 {
		fmt.Fprintln(w, "  no dependencies")
		return
	}
	for _, p := range r.Parents {
		mark := s.Error("✗")
		if p.Met {
			mark = s.OK("✓")
		}
		label := s.ID(p.ID)
		if p.Title != "" {
			label += " " + p.Title
		}
		fmt.Fprintf(w, "  %s %s: %s\n", mark, label, p.Explanation)
	}
	if r.Met {
		fmt.Fprintf(w, "%s\n", s.OK("dependencies met"))
	} else {
		fmt.Fprintf(w, "%s\n", s.Error("blocked"))
	}
}

// NewBlockedCommand creates the blocked command.
func NewBlockedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "blocked",
		Short:         "List cards whose dependencies are not met",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				blocked, err := e.board.Blocked(cmd.Context(), e.session)
				if err != nil {
					return e.out.Fail("list blocked", err)
				}
				return e.out.Success(blocked, func(w io.Writer, s *Styler) {
					if len(blocked) == 0 {
						fmt.Fprintf(w, "%s Nothing is blocked\n", s.OK("✓"))
						return
					}
					for _, b := range blocked {
						fmt.Fprintf(w, "%s %s %s\n", s.ID(b.Card.ID), b.Card.Title, s.Status(b.Card.Status))
						writeReasons(w, s, b.State)
					}
				})
			})
		},
	}
}

func writeReasons(w io.Writer, s *Styler, st depgraph.State) {
	if ids := joinIDs(s, st.MissingParents); ids != "" {
		fmt.Fprintf(w, "  missing: %s\n", ids)
	}
	if ids := joinIDs(s, st.PendingParents); ids != "" {
		fmt.Fprintf(w, "  awaiting review: %s\n", ids)
	}
	var unaccepted []card.CardID
	for _, p := range st.Parents {
		if !containsID(st.MissingParents, p) && !containsID(st.PendingParents, p) && !containsID(st.ResolvedParents, p) {
			unaccepted = append(unaccepted, p)
		}
	}
	if ids := joinIDs(s, unaccepted); ids != "" {
		fmt.Fprintf(w, "  not accepted: %s\n", ids)
	}
}

func joinIDs(s *Styler, ids []card.CardID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, s.ID(id))
	}
	return strings.Join(parts, ", ")
}

func containsID(ids []card.CardID, id card.CardID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// NewTreeCommand creates the tree command.
func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show cards as a dependency tree",
		Long: `Show cards arranged under their primary (first) linked card.
Scoped to the active project unless --project is given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				forest, err := e.board.Forest(cmd.Context(), e.session, "")
				if err != nil {
					return e.out.Fail("render tree", err)
				}
				return e.out.Success(forest, func(w io.Writer, s *Styler) {
					RenderForest(w, s, forest)
				})
			})
		},
	}
}

// NewWorkCommand creates the work command.
func NewWorkCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "work",
		Short:         "Show the session agent's work queue",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				q, err := e.board.DiscoverWork(cmd.Context(), e.session)
				if err != nil {
					return e.out.Fail("discover work", err)
				}
				return e.out.Success(q, func(w io.Writer, s *Styler) {
					scope := "all projects"
					if q.Project != "" {
						scope = "project " + q.Project
					}
					fmt.Fprintf(w, "Work for %s (%s)\n", s.Bold(q.Agent), scope)
					fmt.Fprintf(w, "\nReady (%d)\n", len(q.Ready))
					for _, it := range q.Ready {
						note := ""
						if it.HasReviewNotes {
							note = " " + s.Warn("has review notes")
						}
						fmt.Fprintf(w, "  %s %s %s%s\n", s.ID(it.Card.ID), it.Card.Title, s.Status(it.Card.Status), note)
					}
					fmt.Fprintf(w, "\nBlocked (%d)\n", len(q.Blocked))
					for _, it := range q.Blocked {
						fmt.Fprintf(w, "  %s %s %s\n", s.ID(it.Card.ID), it.Card.Title, s.Status(it.Card.Status))
					}
				})
			})
		},
	}
}

// NewQueueCommand creates the queue command.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "queue",
		Short:         "Show the review ledger",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				ledger, err := e.board.ReviewQueue(cmd.Context())
				if err != nil {
					return e.out.Fail("review queue", err)
				}
				return e.out.Success(ledger, func(w io.Writer, s *Styler) {
					for _, set := range []struct {
						title string
						set   card.LedgerSet
					}{
						{"Pending review", card.SetPendingReview},
						{"Needs revision", card.SetNeedsRevision},
						{"Accepted", card.SetAccepted},
					} {
						entries := ledger.Entries(set.set)
						fmt.Fprintf(w, "%s (%d)\n", s.Bold(set.title), len(entries))
						for _, entry := range entries {
							line := "  " + s.ID(entry.ID)
							if entry.Title != "" {
								line += " " + entry.Title
							}
							if entry.Assignee != "" {
								line += " " + s.Muted("@"+entry.Assignee)
							}
							fmt.Fprintln(w, line)
						}
					}
				})
			})
		},
	}
}
