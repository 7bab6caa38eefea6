package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/roach88/glyph/internal/card"
)

var (
	colorAccepted = lipgloss.Color("#2CD7C7")
	colorActive   = lipgloss.Color("#20B9B4")
	colorWaiting  = lipgloss.Color("#F4D03F")
	colorBlocked  = lipgloss.Color("#E74C3C")
	colorMuted    = lipgloss.Color("#2C4A54")
)

// Styler colours text output. It is a no-op unless the writer is a
// terminal, so piped output and golden files stay plain.
type Styler struct {
	enabled bool

	id     lipgloss.Style
	muted  lipgloss.Style
	bold   lipgloss.Style
	err    lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	status map[card.Status]lipgloss.Style
}

// NewStyler returns a styler for w.
func NewStyler(w io.Writer) *Styler {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return &Styler{}
	}

	r := lipgloss.NewRenderer(w)
	return &Styler{
		enabled: true,
		id:      r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(colorMuted),
		bold:    r.NewStyle().Bold(true),
		err:     r.NewStyle().Foreground(colorBlocked).Bold(true),
		ok:      r.NewStyle().Foreground(colorAccepted),
		warn:    r.NewStyle().Foreground(colorWaiting),
		status: map[card.Status]lipgloss.Style{
			card.StatusAvailable:          r.NewStyle().Foreground(colorActive),
			card.StatusBlocked:            r.NewStyle().Foreground(colorBlocked),
			card.StatusInProgress:         r.NewStyle().Foreground(colorActive).Bold(true),
			card.StatusAwaitingAcceptance: r.NewStyle().Foreground(colorWaiting),
			card.StatusAccepted:           r.NewStyle().Foreground(colorAccepted),
			card.StatusNeedsRevision:      r.NewStyle().Foreground(colorWaiting).Bold(true),
		},
	}
}

func (s *Styler) render(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return st.Render(text)
}

// ID styles a card id.
func (s *Styler) ID(id card.CardID) string { return s.render(s.id, id.String()) }

// Status styles a status in brackets.
func (s *Styler) Status(st card.Status) string {
	return s.render(s.status[st], "["+string(st)+"]")
}

func (s *Styler) Muted(text string) string { return s.render(s.muted, text) }
func (s *Styler) Bold(text string) string  { return s.render(s.bold, text) }
func (s *Styler) Error(text string) string { return s.render(s.err, text) }
func (s *Styler) OK(text string) string    { return s.render(s.ok, text) }
func (s *Styler) Warn(text string) string  { return s.render(s.warn, text) }
