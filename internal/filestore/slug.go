package filestore

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/glyph/internal/card"
)

const maxSlugLen = 48

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug turns a title into a lowercase file-name fragment: accents are
// folded, runs of anything other than letters and digits become a single
// underscore.
func Slug(title string) string {
	folded, _, err := transform.String(foldMarks, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	s := b.String()
	if len(s) > maxSlugLen {
		s = strings.TrimRight(truncateRunes(s, maxSlugLen), "_")
	}
	if s == "" {
		return "card"
	}
	return s
}

// truncateRunes cuts s to at most max bytes on a rune boundary.
func truncateRunes(s string, max int) string {
	cut := 0
	for i := range s {
		if i > max {
			break
		}
		cut = i
	}
	return s[:cut]
}

// FileName returns the file name a new card is written under.
func FileName(c card.Card) string {
	return fmt.Sprintf("%s_%s.yaml", c.ID.String(), Slug(c.Title))
}

// idFromFileName derives a card id from "NNN_slug.yaml" or "slug.yaml".
func idFromFileName(name string) card.CardID {
	stem := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
	if prefix, _, ok := strings.Cut(stem, "_"); ok {
		if id := card.ParseID(prefix); id.Kind() == card.KindNumeric {
			return id
		}
	}
	return card.ParseID(stem)
}
