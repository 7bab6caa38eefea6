package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/glyph/internal/board"
	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/config"
	"github.com/roach88/glyph/internal/filestore"
	"github.com/roach88/glyph/internal/store"
)

// env is everything a command needs: the workspace, an open board over the
// configured backend, and the effective session.
type env struct {
	ws      *config.Workspace
	board   *board.Board
	session card.Session
	logger  *slog.Logger
	out     *OutputFormatter

	files *filestore.Store // set for the yaml backend
	db    *store.Store     // set for the sqlite backend
	store board.Store
}

func (e *env) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// openEnv loads the workspace at opts.Dir and opens its store.
func openEnv(opts *RootOptions, cmd *cobra.Command, level slog.Level) (*env, error) {
	ws, err := config.Load(opts.Dir)
	if err != nil {
		return nil, err
	}

	e := &env{
		ws:      ws,
		session: ws.Session,
		logger:  newLogger(opts, cmd.ErrOrStderr(), level),
		out:     newFormatter(opts, cmd),
	}
	if opts.Project != "" {
		e.session.ActiveProject = opts.Project
	}
	if opts.Agent != "" {
		e.session.AgentID = opts.Agent
	}

	switch ws.Config.Backend {
	case config.BackendSQLite:
		path := ws.DatabasePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("open workspace: %w", err)
		}
		db, err := store.Open(path, store.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.db, e.store = db, db
	default:
		files, err := filestore.Open(filestore.Layout{
			CardsDir:   ws.CardsPath(),
			ArchiveDir: ws.ArchivePath(),
			LedgerFile: ws.LedgerPath(),
		}, filestore.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.files, e.store = files, files
	}

	e.board = board.New(e.store, board.WithLogger(e.logger))
	e.logger.Debug("workspace opened", "root", ws.Root, "backend", ws.Config.Backend,
		"project", e.session.ActiveProject, "agent", e.session.Agent())
	return e, nil
}

// withEnv opens the workspace, runs fn and closes it. Workspace errors are
// reported as E002.
func withEnv(opts *RootOptions, cmd *cobra.Command, fn func(e *env) error) error {
	e, err := openEnv(opts, cmd, slog.LevelWarn)
	if err != nil {
		out := newFormatter(opts, cmd)
		_ = out.Error(ErrCodeWorkspace, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open workspace", err)
	}
	defer e.Close()
	return fn(e)
}

// parseIDArg parses a card id argument.
func parseIDArg(out *OutputFormatter, arg string) (card.CardID, error) {
	id := card.ParseID(arg)
	if id.IsZero() {
		msg := fmt.Sprintf("invalid card id %q", strings.TrimSpace(arg))
		_ = out.Error(ErrCodeInvalidInput, msg, nil)
		return card.CardID{}, NewExitError(ExitCommandError, msg)
	}
	return id, nil
}
