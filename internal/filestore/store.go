package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/schema"
)

// Layout names the files and directories the store uses.
type Layout struct {
	CardsDir   string
	ArchiveDir string
	LedgerFile string
}

// DefaultLayout returns the standard layout rooted at dir.
func DefaultLayout(dir string) Layout {
	return Layout{
		CardsDir:   filepath.Join(dir, "cards"),
		ArchiveDir: filepath.Join(dir, "archive", "cards"),
		LedgerFile: filepath.Join(dir, "acceptance.yaml"),
	}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped files.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store reads and writes card documents and the ledger on disk.
type Store struct {
	layout Layout
	logger *slog.Logger

	mu    sync.Mutex
	paths map[card.CardID]string
}

// Open prepares the directories in layout and returns a store over them.
func Open(layout Layout, opts ...Option) (*Store, error) {
	s := &Store{
		layout: layout,
		logger: slog.Default(),
		paths:  make(map[card.CardID]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, dir := range []string{layout.CardsDir, layout.ArchiveDir, filepath.Dir(layout.LedgerFile)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
	}
	return s, nil
}

// Layout returns the store's layout.
func (s *Store) Layout() Layout { return s.layout }

// LedgerPath returns the ledger file path.
func (s *Store) LedgerPath() string { return s.layout.LedgerFile }

// Close is a no-op; it lets the file store satisfy the same lifecycle as
// the SQLite store.
func (s *Store) Close() error { return nil }

// LoadCards reads every active card, ordered by file name.
func (s *Store) LoadCards(_ context.Context) ([]card.Card, error) {
	loaded, err := s.readDir(s.layout.CardsDir)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = make(map[card.CardID]string, len(loaded))
	cards := make([]card.Card, 0, len(loaded))
	for _, l := range loaded {
		if _, seen := s.paths[l.card.ID]; !seen && !l.card.ID.IsZero() {
			s.paths[l.card.ID] = l.path
		}
		cards = append(cards, l.card)
	}
	return cards, nil
}

// ListArchived reads every archived card, ordered by file name.
func (s *Store) ListArchived(_ context.Context) ([]card.Card, error) {
	loaded, err := s.readDir(s.layout.ArchiveDir)
	if err != nil {
		return nil, fmt.Errorf("list archived: %w", err)
	}
	cards := make([]card.Card, 0, len(loaded))
	for _, l := range loaded {
		cards = append(cards, l.card)
	}
	return cards, nil
}

// SaveCard writes c over its existing file, or to a new NNN_slug.yaml file
// when the id has not been seen.
func (s *Store) SaveCard(_ context.Context, c card.Card) error {
	if c.ID.IsZero() {
		return errors.New("save card: card has no id")
	}
	path, err := s.pathFor(c.ID)
	if err != nil {
		return fmt.Errorf("save card %s: %w", c.ID, err)
	}
	if path == "" {
		path = filepath.Join(s.layout.CardsDir, FileName(c))
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("save card %s: %w", c.ID, err)
	}
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("save card %s: %w", c.ID, err)
	}

	s.mu.Lock()
	s.paths[c.ID] = path
	s.mu.Unlock()
	return nil
}

// ArchiveCard moves the card's file into the archive directory.
func (s *Store) ArchiveCard(_ context.Context, id card.CardID) error {
	path, err := s.pathFor(id)
	if err != nil {
		return fmt.Errorf("archive card %s: %w", id, err)
	}
	if path == "" {
		return fmt.Errorf("archive card %s: %w", id, fs.ErrNotExist)
	}
	dest := filepath.Join(s.layout.ArchiveDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("archive card %s: %w", id, err)
	}

	s.mu.Lock()
	delete(s.paths, id)
	s.mu.Unlock()
	return nil
}

// LoadLedger reads the ledger. A missing file is an empty ledger.
func (s *Store) LoadLedger(_ context.Context) (card.Ledger, error) {
	var l card.Ledger
	data, err := os.ReadFile(s.layout.LedgerFile)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return l, fmt.Errorf("load ledger: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return l, nil
	}
	if err := yaml.Unmarshal(data, &l); err != nil {
		return card.Ledger{}, fmt.Errorf("load ledger %s: %w", s.layout.LedgerFile, err)
	}
	return l, nil
}

// SaveLedger writes the ledger.
func (s *Store) SaveLedger(_ context.Context, l card.Ledger) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	if err := writeAtomic(s.layout.LedgerFile, data); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// RawDocuments parses every active card file into a generic map without
// applying card decoding rules.
func (s *Store) RawDocuments(_ context.Context) ([]schema.Document, error) {
	names, err := yamlFiles(s.layout.CardsDir)
	if err != nil {
		return nil, fmt.Errorf("raw documents: %w", err)
	}
	docs := make([]schema.Document, 0, len(names))
	for _, name := range names {
		path := filepath.Join(s.layout.CardsDir, name)
		doc := schema.Document{Source: path}
		data, err := os.ReadFile(path)
		if err == nil {
			err = yaml.Unmarshal(data, &doc.Data)
		}
		doc.Err = err
		docs = append(docs, doc)
	}
	return docs, nil
}

type loadedCard struct {
	path string
	card card.Card
}

func (s *Store) readDir(dir string) ([]loadedCard, error) {
	names, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	out := make([]loadedCard, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		c, err := readCard(path)
		if err != nil {
			s.logger.Warn("skipping card file", "path", path, "error", err)
			continue
		}
		if c.ID.IsZero() {
			c.ID = idFromFileName(name)
		}
		out = append(out, loadedCard{path: path, card: c})
	}
	return out, nil
}

func readCard(path string) (card.Card, error) {
	var c card.Card
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return c, errors.New("empty document")
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return card.Card{}, err
	}
	if c.Status == "" {
		c.Status = card.StatusAvailable
	}
	return c, nil
}

// pathFor returns the file backing id, rescanning the cards directory when
// the id is not cached. An unknown id yields "".
func (s *Store) pathFor(id card.CardID) (string, error) {
	s.mu.Lock()
	path, ok := s.paths[id]
	s.mu.Unlock()
	if ok {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	loaded, err := s.readDir(s.layout.CardsDir)
	if err != nil {
		return "", err
	}
	for _, l := range loaded {
		if l.card.ID == id {
			s.mu.Lock()
			s.paths[id] = l.path
			s.mu.Unlock()
			return l.path, nil
		}
	}
	return "", nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// writeAtomic writes data to a temp file beside path and renames it over
// path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
