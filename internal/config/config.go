// Package config handles the .glyph workspace directory: config.yaml for
// storage settings and session.yaml for the caller's active project and
// agent.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/glyph/internal/card"
)

const (
	// Dir is the workspace metadata directory.
	Dir = ".glyph"

	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

const defaultConfigYAML = `# glyph workspace configuration
version: 1

# Where cards and the acceptance ledger live: yaml (one file per card) or sqlite.
backend: yaml

# Paths are relative to the workspace root.
cards_dir: cards
archive_dir: archive/cards
ledger_file: acceptance.yaml
database: .glyph/glyph.db

# Name recorded on ledger entries when no reviewer is given.
reviewer: pm
`

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config models .glyph/config.yaml.
type Config struct {
	Version    int    `yaml:"version" validate:"gte=1"`
	Backend    string `yaml:"backend" validate:"required,oneof=yaml sqlite"`
	CardsDir   string `yaml:"cards_dir" validate:"required"`
	ArchiveDir string `yaml:"archive_dir" validate:"required,nefield=CardsDir"`
	LedgerFile string `yaml:"ledger_file" validate:"required"`
	Database   string `yaml:"database" validate:"required_if=Backend sqlite"`
	Reviewer   string `yaml:"reviewer" validate:"omitempty,max=64"`
}

// sessionFile models .glyph/session.yaml.
type sessionFile struct {
	ActiveProject string `yaml:"active_project,omitempty" validate:"omitempty,max=128,excludesall=/\\"`
	Agent         string `yaml:"agent,omitempty" validate:"omitempty,max=64"`
}

// Workspace is a loaded workspace root.
type Workspace struct {
	Root    string
	Config  Config
	Session card.Session
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Version:    1,
		Backend:    BackendYAML,
		CardsDir:   "cards",
		ArchiveDir: filepath.Join("archive", "cards"),
		LedgerFile: "acceptance.yaml",
		Database:   filepath.Join(Dir, "glyph.db"),
		Reviewer:   "pm",
	}
}

// Init creates the .glyph directory under root and writes a default
// config.yaml when none exists. backend overrides the default backend when
// non-empty. An existing config is left untouched.
func Init(root, backend string) (*Workspace, error) {
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		content := defaultConfigYAML
		if backend != "" && backend != BackendYAML {
			content = strings.Replace(content, "backend: yaml", "backend: "+backend, 1)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("config: write %s: %w", path, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	return Load(root)
}

// Load reads the workspace at root. Missing files fall back to defaults.
func Load(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	ws := &Workspace{Root: abs, Config: Default()}
	if err := ws.loadConfig(); err != nil {
		return nil, err
	}
	if err := ws.loadSession(); err != nil {
		return nil, err
	}
	return ws, nil
}

// ConfigPath returns .glyph/config.yaml.
func (w *Workspace) ConfigPath() string {
	return filepath.Join(w.Root, Dir, "config.yaml")
}

// SessionPath returns .glyph/session.yaml.
func (w *Workspace) SessionPath() string {
	return filepath.Join(w.Root, Dir, "session.yaml")
}

// Path resolves p against the workspace root.
func (w *Workspace) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.Root, p)
}

// CardsPath returns the absolute cards directory.
func (w *Workspace) CardsPath() string { return w.Path(w.Config.CardsDir) }

// ArchivePath returns the absolute archive directory.
func (w *Workspace) ArchivePath() string { return w.Path(w.Config.ArchiveDir) }

// LedgerPath returns the absolute ledger file path.
func (w *Workspace) LedgerPath() string { return w.Path(w.Config.LedgerFile) }

// DatabasePath returns the absolute SQLite database path.
func (w *Workspace) DatabasePath() string { return w.Path(w.Config.Database) }

// SaveSession persists s to session.yaml and makes it the workspace session.
func (w *Workspace) SaveSession(s card.Session) error {
	sf := sessionFile{ActiveProject: s.ActiveProject, Agent: s.AgentID}
	if err := validate.Struct(sf); err != nil {
		return fmt.Errorf("config: session: %w", describe(err))
	}
	if err := os.MkdirAll(filepath.Dir(w.SessionPath()), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(sf)
	if err != nil {
		return fmt.Errorf("config: marshal session: %w", err)
	}
	if err := os.WriteFile(w.SessionPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", w.SessionPath(), err)
	}
	w.Session = s
	return nil
}

func (w *Workspace) loadConfig() error {
	path := w.ConfigPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := Default()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.normalize()
	if err := validate.Struct(parsed); err != nil {
		return fmt.Errorf("config: %s: %w", path, describe(err))
	}
	w.Config = parsed
	return nil
}

func (w *Workspace) loadSession() error {
	path := w.SessionPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var sf sessionFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	sf.ActiveProject = strings.TrimSpace(sf.ActiveProject)
	sf.Agent = strings.TrimSpace(sf.Agent)
	if err := validate.Struct(sf); err != nil {
		return fmt.Errorf("config: %s: %w", path, describe(err))
	}
	w.Session = card.Session{ActiveProject: sf.ActiveProject, AgentID: sf.Agent}
	return nil
}

func (c *Config) normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.CardsDir = cleanPath(c.CardsDir)
	c.ArchiveDir = cleanPath(c.ArchiveDir)
	c.LedgerFile = strings.TrimSpace(c.LedgerFile)
	c.Database = strings.TrimSpace(c.Database)
	if c.Version == 0 {
		c.Version = 1
	}
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}

// describe flattens validator errors into one readable error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s fails %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
