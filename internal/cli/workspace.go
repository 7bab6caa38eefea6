package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/config"
)

// InitResult is the output of glyph init.
type InitResult struct {
	Root    string `json:"root"`
	Config  string `json:"config"`
	Backend string `json:"backend"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .glyph workspace",
		Long: `Create .glyph/config.yaml with default settings in the workspace root.
An existing config is left untouched.

Example:
  glyph init
  glyph init --backend sqlite`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			ws, err := config.Init(rootOpts.Dir, backend)
			if err != nil {
				_ = out.Error(ErrCodeWorkspace, err.Error(), nil)
				return WrapExitError(ExitCommandError, "init workspace", err)
			}
			result := InitResult{Root: ws.Root, Config: ws.ConfigPath(), Backend: ws.Config.Backend}
			return out.Success(result, func(w io.Writer, s *Styler) {
				fmt.Fprintf(w, "%s Initialized %s workspace in %s\n", s.OK("✓"), result.Backend, result.Root)
			})
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "storage backend (yaml|sqlite)")
	return cmd
}

// NewProjectCommand creates the project command group.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "List and select projects",
		Long: `Projects are discovered from the project field of active cards.
Activating a project scopes work, blocked and tree to it.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List projects with card counts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				projects, err := e.board.Projects(cmd.Context(), e.session)
				if err != nil {
					return e.out.Fail("list projects", err)
				}
				return e.out.Success(projects, func(w io.Writer, s *Styler) {
					if len(projects) == 0 {
						fmt.Fprintln(w, "No projects")
						return
					}
					for _, p := range projects {
						marker := " "
						if p.Active {
							marker = "*"
						}
						fmt.Fprintf(w, "%s %s  %d card(s)  %s\n", marker, s.Bold(p.Name), p.Total, formatCounts(p.Counts))
					}
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "activate <name>",
		Short:         "Scope the session to a project",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				name := strings.TrimSpace(args[0])
				if err := e.board.CheckProject(cmd.Context(), name); err != nil {
					return e.out.Fail("activate project", err)
				}
				sess := e.ws.Session
				sess.ActiveProject = name
				if err := e.ws.SaveSession(sess); err != nil {
					return e.out.Fail("activate project", err)
				}
				return e.out.Success(sess, func(w io.Writer, s *Styler) {
					fmt.Fprintf(w, "%s Active project: %s\n", s.OK("✓"), s.Bold(name))
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "deactivate",
		Short:         "Clear the active project",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				sess := e.ws.Session
				sess.ActiveProject = ""
				if err := e.ws.SaveSession(sess); err != nil {
					return e.out.Fail("deactivate project", err)
				}
				return e.out.Success(sess, func(w io.Writer, s *Styler) {
					fmt.Fprintf(w, "%s No active project\n", s.OK("✓"))
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "status",
		Short:         "Show the active project",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				summary, err := e.board.ProjectStatus(cmd.Context(), e.session)
				if err != nil {
					return e.out.Fail("project status", err)
				}
				return e.out.Success(summary, func(w io.Writer, s *Styler) {
					if summary == nil {
						fmt.Fprintln(w, "No active project; all cards are visible")
						return
					}
					fmt.Fprintf(w, "Active project: %s\n", s.Bold(summary.Name))
					fmt.Fprintf(w, "Agent: %s\n", e.session.Agent())
					fmt.Fprintf(w, "%d card(s)  %s\n", summary.Total, formatCounts(summary.Counts))
				})
			})
		},
	})

	return cmd
}

// formatCounts renders status counts in lifecycle order, skipping zeros.
func formatCounts(counts map[card.Status]int) string {
	var parts []string
	for _, st := range card.AllStatuses {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", st, n))
		}
	}
	return strings.Join(parts, " ")
}
