package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/glyph/internal/board"
	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/depgraph"
)

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		links    []string
		assignee string
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a card",
		Long: `Create a card under the next free numeric id.

The card joins the active project unless --project is given, and starts
blocked when any linked card is missing or not yet accepted.

Example:
  glyph create "Design the schema"
  glyph create "Build the store" --link 1 --link 2`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				req := board.NewCard{
					Title:      strings.Join(args, " "),
					AssignedTo: assignee,
					Project:    e.session.ActiveProject,
				}
				for _, l := range links {
					for _, part := range strings.Split(l, ",") {
						if id := card.ParseID(part); !id.IsZero() {
							req.Parents = append(req.Parents, id)
						}
					}
				}

				c, err := e.board.CreateCard(cmd.Context(), e.session, req)
				if err != nil {
					return e.out.Fail("create card", err)
				}
				return e.out.Success(c, func(w io.Writer, s *Styler) {
					fmt.Fprintf(w, "%s Created %s %s %s\n", s.OK("✓"), s.ID(c.ID), c.Title, s.Status(c.Status))
				})
			})
		},
	}

	cmd.Flags().StringSliceVarP(&links, "link", "l", nil, "id of a card this one depends on (repeatable)")
	cmd.Flags().StringVar(&assignee, "assign", "", "agent to assign (default: session agent)")
	return cmd
}

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	var next bool

	cmd := &cobra.Command{
		Use:   "start [id]",
		Short: "Start work on a card",
		Long: `Move a card to in_progress. Blocked cards cannot be started.

With --next, resume the agent's card in progress or start its first ready card.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if next {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				if next {
					return startNext(cmd, e)
				}
				id, err := parseIDArg(e.out, args[0])
				if err != nil {
					return err
				}
				c, err := e.board.Start(cmd.Context(), e.session, id)
				if err != nil {
					return e.out.Fail("start card", err)
				}
				return e.out.Success(c, func(w io.Writer, s *Styler) {
					fmt.Fprintf(w, "%s Started %s %s\n", s.OK("✓"), s.ID(c.ID), c.Title)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&next, "next", false, "pick the next ready card for the session agent")
	return cmd
}

func startNext(cmd *cobra.Command, e *env) error {
	c, q, err := e.board.StartNext(cmd.Context(), e.session)
	if err != nil {
		return e.out.Fail("start next card", err)
	}
	if c == nil {
		_ = e.out.Error(ErrCodeBlocked, fmt.Sprintf("no ready work for %s (%d blocked)", q.Agent, len(q.Blocked)), q)
		return NewExitError(ExitFailure, "no ready work")
	}
	return e.out.Success(c, func(w io.Writer, s *Styler) {
		fmt.Fprintf(w, "%s Working on %s %s %s\n", s.OK("✓"), s.ID(c.ID), c.Title, s.Status(c.Status))
		if len(c.ReviewNotes) > 0 {
			last := c.ReviewNotes[len(c.ReviewNotes)-1]
			fmt.Fprintf(w, "  %s %s\n", s.Warn("review notes:"), last.Notes)
		}
	})
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:           "submit <id>",
		Short:         "Submit a card for review",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				id, err := parseIDArg(e.out, args[0])
				if err != nil {
					return err
				}
				c, err := e.board.Submit(cmd.Context(), e.session, id, notes)
				if err != nil {
					return e.out.Fail("submit card", err)
				}
				return e.out.Success(c, func(w io.Writer, s *Styler) {
					fmt.Fprintf(w, "%s Submitted %s %s for review\n", s.OK("✓"), s.ID(c.ID), c.Title)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&notes, "message", "m", "", "notes for the reviewer")
	return cmd
}

// NewAcceptCommand creates the accept command.
func NewAcceptCommand(rootOpts *RootOptions) *cobra.Command {
	var reviewer, notes string

	cmd := &cobra.Command{
		Use:   "accept <id>",
		Short: "Accept a card awaiting review",
		Long: `Accept a card awaiting review and reconcile every card status.
Cards that were waiting only on this one become available.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				id, err := parseIDArg(e.out, args[0])
				if err != nil {
					return err
				}
				result, err := e.board.Accept(cmd.Context(), id, reviewerOr(e, reviewer), notes)
				return outputReview(e, "accept card", "Accepted", result, err)
			})
		},
	}

	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer name (default from config)")
	cmd.Flags().StringVarP(&notes, "message", "m", "", "acceptance notes")
	return cmd
}

// NewReviseCommand creates the revise command.
func NewReviseCommand(rootOpts *RootOptions) *cobra.Command {
	var reviewer, notes string

	cmd := &cobra.Command{
		Use:           "revise <id>",
		Short:         "Send a card back for revision",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				id, err := parseIDArg(e.out, args[0])
				if err != nil {
					return err
				}
				result, err := e.board.RequestChanges(cmd.Context(), id, reviewerOr(e, reviewer), notes)
				return outputReview(e, "request changes", "Sent back", result, err)
			})
		},
	}

	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer name (default from config)")
	cmd.Flags().StringVarP(&notes, "message", "m", "", "what needs to change (required)")
	return cmd
}

func reviewerOr(e *env, flag string) string {
	if flag != "" {
		return flag
	}
	return e.ws.Config.Reviewer
}

func outputReview(e *env, op, verb string, result *board.ReviewResult, err error) error {
	if err != nil {
		if result != nil && result.Reconcile != nil {
			if partial := outputPartialReconcile(e.out, op, result.Reconcile.Changes, result, err); partial != nil {
				return partial
			}
		}
		return e.out.Fail(op, err)
	}
	return e.out.Success(result, func(w io.Writer, s *Styler) {
		fmt.Fprintf(w, "%s %s %s %s\n", s.OK("✓"), verb, s.ID(result.Card.ID), result.Card.Title)
		if result.Reconcile != nil {
			writeChanges(w, s, result.Reconcile.Changes)
		}
	})
}

// NewArchiveCommand creates the archive command.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive an accepted card",
		Long: `Move an accepted card out of the active set and drop its ledger entries.
Cards that still link to it will report it as missing.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				id, err := parseIDArg(e.out, args[0])
				if err != nil {
					return err
				}
				result, err := e.board.Archive(cmd.Context(), id)
				if err != nil {
					return e.out.Fail("archive card", err)
				}
				return e.out.Success(result, func(w io.Writer, s *Styler) {
					fmt.Fprintf(w, "%s Archived %s (%d ledger entr%s removed)\n",
						s.OK("✓"), s.ID(result.ID), result.LedgerEntriesRemoved, plural(result.LedgerEntriesRemoved, "y", "ies"))
				})
			})
		},
	}
}

// NewCleanupCommand creates the cleanup command.
func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "cleanup",
		Short:         "Remove ledger entries of archived cards",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				result, err := e.board.CleanupLedger(cmd.Context())
				if err != nil {
					return e.out.Fail("cleanup ledger", err)
				}
				return e.out.Success(result, func(w io.Writer, s *Styler) {
					if len(result.Removed) == 0 {
						fmt.Fprintf(w, "%s Ledger clean (%d archived card(s))\n", s.OK("✓"), result.ArchivedCount)
						return
					}
					ids := make([]string, 0, len(result.Removed))
					for _, id := range result.Removed {
						ids = append(ids, s.ID(id))
					}
					fmt.Fprintf(w, "%s Removed ledger entries for %s\n", s.OK("✓"), strings.Join(ids, ", "))
				})
			})
		},
	}
}

// NewArchivedCommand creates the archived command.
func NewArchivedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "archived",
		Short:         "List archived cards",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				cards, err := e.board.ListArchived(cmd.Context())
				if err != nil {
					return e.out.Fail("list archived", err)
				}
				return e.out.Success(cards, func(w io.Writer, s *Styler) {
					if len(cards) == 0 {
						fmt.Fprintln(w, "No archived cards")
						return
					}
					for _, c := range cards {
						fmt.Fprintf(w, "%s %s\n", s.ID(c.ID), c.Title)
					}
				})
			})
		},
	}
}

// outputPartialReconcile reports a reconcile pass that saved some changes
// and failed others: the error envelope carries details in json, and text
// output lists the saved changes under the error line. It returns nil when
// err is not a partial failure.
func outputPartialReconcile(out *OutputFormatter, op string, saved []depgraph.Change, details any, err error) error {
	if _, ok := depgraph.AsPartialFailure(err); !ok {
		return nil
	}
	if outErr := out.Error(ErrCodePartialReconcile, err.Error(), details); outErr != nil {
		return outErr
	}
	if out.Format != "json" {
		s := out.styler()
		fmt.Fprintf(out.Writer, "Saved %d change(s) before the failure\n", len(saved))
		writeChanges(out.Writer, s, saved)
	}
	return WrapExitError(ExitFailure, op, err)
}

func writeChanges(w io.Writer, s *Styler, changes []depgraph.Change) {
	for _, ch := range changes {
		fmt.Fprintf(w, "  %s %s -> %s\n", s.ID(ch.ID), s.Status(ch.From), s.Status(ch.To))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
