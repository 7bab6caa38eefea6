package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs one glyph invocation against dir and returns its stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--dir", dir}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func mustExecute(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := execute(t, dir, args...)
	require.NoError(t, err, "glyph %v: %s", args, out)
	return out
}

func decode(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func newWorkspace(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	mustExecute(t, dir, "init", "--backend", backend)
	return dir
}

func TestInit_WritesConfig(t *testing.T) {
	dir := t.TempDir()
	out := mustExecute(t, dir, "init")
	assert.Contains(t, out, "Initialized yaml workspace")
	assert.FileExists(t, filepath.Join(dir, ".glyph", "config.yaml"))
}

func TestWorkflow_AcceptUnblocksChild(t *testing.T) {
	for _, backend := range []string{"yaml", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			dir := newWorkspace(t, backend)

			out := mustExecute(t, dir, "create", "Design", "schema")
			assert.Contains(t, out, "Created 001 Design schema [available]")

			out = mustExecute(t, dir, "create", "Build store", "--link", "1")
			assert.Contains(t, out, "Created 002 Build store [blocked]")

			_, err := execute(t, dir, "start", "2")
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			mustExecute(t, dir, "start", "1")
			mustExecute(t, dir, "submit", "001", "-m", "ready")

			out = mustExecute(t, dir, "queue")
			assert.Contains(t, out, "Pending review (1)\n  001 Design schema @claude")

			out = mustExecute(t, dir, "accept", "1")
			assert.Contains(t, out, "Accepted 001 Design schema")
			assert.Contains(t, out, "002 [blocked] -> [available]")

			out = mustExecute(t, dir, "--format", "json", "deps", "2")
			resp := decode(t, out)
			assert.Equal(t, "ok", resp.Status)
			data := resp.Data.(map[string]any)
			assert.Equal(t, true, data["dependencies_met"])

			out = mustExecute(t, dir, "reconcile")
			assert.Contains(t, out, "All 2 card(s) up to date")
		})
	}
}

func TestRevise_RequiresMessage(t *testing.T) {
	dir := newWorkspace(t, "yaml")
	mustExecute(t, dir, "create", "Only card")
	mustExecute(t, dir, "submit", "1")

	out, err := execute(t, dir, "--format", "json", "revise", "1")
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidInput, decode(t, out).Error.Code)

	out = mustExecute(t, dir, "revise", "1", "-m", "needs tests", "--reviewer", "sam")
	assert.Contains(t, out, "Sent back 001 Only card")

	out = mustExecute(t, dir, "work")
	assert.Contains(t, out, "001 Only card [needs_revision] has review notes")
}

func TestStart_UnknownCard(t *testing.T) {
	dir := newWorkspace(t, "yaml")

	out, err := execute(t, dir, "--format", "json", "start", "99")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp := decode(t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeCardNotFound, resp.Error.Code)

	out, err = execute(t, dir, "--format", "json", "start", "none")
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidInput, decode(t, out).Error.Code)
}

func TestStartNext(t *testing.T) {
	dir := newWorkspace(t, "yaml")
	mustExecute(t, dir, "create", "First")
	mustExecute(t, dir, "create", "Second", "--link", "1")

	out := mustExecute(t, dir, "start", "--next")
	assert.Contains(t, out, "Working on 001 First [in_progress]")

	out = mustExecute(t, dir, "start", "--next")
	assert.Contains(t, out, "Working on 001 First [in_progress]")

	_, err := execute(t, dir, "--agent", "codex", "start", "--next")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestProjects(t *testing.T) {
	for _, backend := range []string{"yaml", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			dir := newWorkspace(t, backend)
			mustExecute(t, dir, "--project", "web", "create", "Landing page")
			mustExecute(t, dir, "--project", "api", "create", "Endpoints")

			_, err := execute(t, dir, "project", "activate", "mobile")
			require.Error(t, err)

			mustExecute(t, dir, "project", "activate", "web")
			out := mustExecute(t, dir, "project", "list")
			assert.Contains(t, out, "  api  1 card(s)")
			assert.Contains(t, out, "* web  1 card(s)")

			out = mustExecute(t, dir, "tree")
			assert.Contains(t, out, "001 Landing page")
			assert.NotContains(t, out, "Endpoints")

			out = mustExecute(t, dir, "project", "status")
			assert.Contains(t, out, "Active project: web")

			mustExecute(t, dir, "project", "deactivate")
			out = mustExecute(t, dir, "tree")
			assert.Contains(t, out, "Endpoints")
		})
	}
}

func TestArchiveAndCleanup(t *testing.T) {
	dir := newWorkspace(t, "yaml")
	mustExecute(t, dir, "create", "Ship it")

	_, err := execute(t, dir, "archive", "1")
	require.Error(t, err)

	mustExecute(t, dir, "submit", "1")
	mustExecute(t, dir, "accept", "1")
	out := mustExecute(t, dir, "archive", "1")
	assert.Contains(t, out, "Archived 001 (1 ledger entry removed)")

	out = mustExecute(t, dir, "archived")
	assert.Contains(t, out, "001 Ship it")

	out = mustExecute(t, dir, "cleanup")
	assert.Contains(t, out, "Ledger clean (1 archived card(s))")
}

func TestBlockedAndValidate(t *testing.T) {
	dir := newWorkspace(t, "yaml")
	mustExecute(t, dir, "create", "Needs ghost", "--link", "42")

	out := mustExecute(t, dir, "blocked")
	assert.Contains(t, out, "001 Needs ghost [blocked]\n  missing: 042")

	out = mustExecute(t, dir, "validate")
	assert.Contains(t, out, "All cards valid")

	bad := filepath.Join(dir, "cards", "007_bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("id: 7\ntitle: 12\nstatus: available\n"), 0o644))

	out, err := execute(t, dir, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Validation failed")
}

func TestReconcile_DryRun(t *testing.T) {
	dir := newWorkspace(t, "yaml")
	mustExecute(t, dir, "create", "Parent")
	mustExecute(t, dir, "create", "Child", "--link", "1")

	ledger := filepath.Join(dir, "acceptance.yaml")
	require.NoError(t, os.WriteFile(ledger, []byte("accepted:\n  - id: 1\n"), 0o644))

	out := mustExecute(t, dir, "reconcile", "--dry-run")
	assert.Contains(t, out, "Would update 1 card(s)")

	out = mustExecute(t, dir, "reconcile")
	assert.Contains(t, out, "Updated 1 card(s)\n  002 [blocked] -> [available]")

	out = mustExecute(t, dir, "reconcile", "--dry-run")
	assert.Contains(t, out, "Nothing to change")
}

func TestWatch_RequiresYAMLBackend(t *testing.T) {
	dir := newWorkspace(t, "sqlite")
	_, err := execute(t, dir, "watch")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
