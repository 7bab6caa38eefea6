package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/glyph/internal/card"
)

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, Dir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, Dir, "config.yaml"), []byte(content), 0o644))
}

func TestLoad_DefaultsWithoutFiles(t *testing.T) {
	root := t.TempDir()

	ws, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, Default(), ws.Config)
	assert.Equal(t, card.Session{}, ws.Session)
	assert.Equal(t, filepath.Join(ws.Root, "cards"), ws.CardsPath())
	assert.Equal(t, filepath.Join(ws.Root, "acceptance.yaml"), ws.LedgerPath())
}

func TestInit_WritesDefaultConfig(t *testing.T) {
	root := t.TempDir()

	ws, err := Init(root, "")
	require.NoError(t, err)
	assert.Equal(t, BackendYAML, ws.Config.Backend)

	data, err := os.ReadFile(ws.ConfigPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: yaml")
}

func TestInit_SQLiteBackend(t *testing.T) {
	root := t.TempDir()

	ws, err := Init(root, BackendSQLite)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, ws.Config.Backend)
	assert.Equal(t, filepath.Join(ws.Root, ".glyph", "glyph.db"), ws.DatabasePath())
}

func TestInit_KeepsExistingConfig(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "backend: sqlite\ncards_dir: work/cards\n")

	ws, err := Init(root, BackendYAML)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, ws.Config.Backend)
	assert.Equal(t, filepath.Join("work", "cards"), ws.Config.CardsDir)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "ledger_file: review/acceptance.yaml\n")

	ws, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "review/acceptance.yaml", ws.Config.LedgerFile)
	assert.Equal(t, "cards", ws.Config.CardsDir)
	assert.Equal(t, 1, ws.Config.Version)
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown backend", "backend: postgres\n", "Backend fails oneof"},
		{"empty cards dir", "cards_dir: \"\"\n", "CardsDir fails required"},
		{"archive equals cards", "cards_dir: cards\narchive_dir: cards\n", "ArchiveDir fails nefield"},
		{"sqlite without database", "backend: sqlite\ndatabase: \"\"\n", "Database fails required_if"},
		{"bad yaml", "backend: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeConfig(t, root, tt.content)

			_, err := Load(root)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_BackendIsCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "backend: SQLite\n")

	ws, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, ws.Config.Backend)
}

func TestSession_SaveAndLoad(t *testing.T) {
	root := t.TempDir()
	ws, err := Init(root, "")
	require.NoError(t, err)

	require.NoError(t, ws.SaveSession(card.Session{ActiveProject: "alpha", AgentID: "codex"}))
	assert.Equal(t, "alpha", ws.Session.ActiveProject)

	reloaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, card.Session{ActiveProject: "alpha", AgentID: "codex"}, reloaded.Session)
	assert.Equal(t, "codex", reloaded.Session.Agent())

	require.NoError(t, ws.SaveSession(card.Session{}))
	reloaded, err = Load(root)
	require.NoError(t, err)
	assert.False(t, reloaded.Session.ProjectMode())
	assert.Equal(t, card.DefaultAgent, reloaded.Session.Agent())
}

func TestSession_RejectsPathLikeProject(t *testing.T) {
	ws, err := Init(t.TempDir(), "")
	require.NoError(t, err)

	err = ws.SaveSession(card.Session{ActiveProject: "../escape"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ActiveProject fails excludesall")
}

func TestPath_AbsoluteUnchanged(t *testing.T) {
	ws := &Workspace{Root: "/work"}
	assert.Equal(t, "/elsewhere/db", ws.Path("/elsewhere/db"))
	assert.Equal(t, filepath.Join("/work", "cards"), ws.Path("cards"))
}
