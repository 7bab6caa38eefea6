package card

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// IDKind tags which variant of a CardID is populated.
type IDKind uint8

const (
	KindNone IDKind = iota
	KindNumeric
	KindToken
)

// CardID identifies a card: either a non-negative integer or an opaque token.
//
// CardID is comparable and is used directly as a map key. Construct it with
// Numeric, ParseID or NormalizeID so that equal logical ids compare equal.
type CardID struct {
	kind  IDKind
	num   uint64
	token string
}

// Numeric returns the numeric id n.
func Numeric(n uint64) CardID {
	return CardID{kind: KindNumeric, num: n}
}

// ParseID canonicalizes a textual card id. It never fails:
//   - "", "none", "null", "nil" and "~" (any case) yield the zero CardID
//   - digits-only text yields a numeric id, leading zeros ignored
//   - anything else yields a trimmed, NFC-normalized token
//
// Digit strings too large for uint64 stay tokens, stripped of leading zeros,
// so "0099…" and "99…" still agree.
func ParseID(s string) CardID {
	text := strings.TrimSpace(s)
	if text == "" {
		return CardID{}
	}
	switch strings.ToLower(text) {
	case "none", "null", "nil", "~":
		return CardID{}
	}
	if isDigits(text) {
		trimmed := strings.TrimLeft(text, "0")
		if trimmed == "" {
			return Numeric(0)
		}
		if n, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
			return Numeric(n)
		}
		return CardID{kind: KindToken, token: trimmed}
	}
	return CardID{kind: KindToken, token: norm.NFC.String(text)}
}

// NormalizeID canonicalizes any scalar representation of a card id
// (integers, whole floats, strings, byte slices, Stringers). Like ParseID it
// is total and has no side effects.
func NormalizeID(v any) CardID {
	switch x := v.(type) {
	case nil:
		return CardID{}
	case CardID:
		return x
	case *CardID:
		if x == nil {
			return CardID{}
		}
		return *x
	case int:
		return fromInt64(int64(x))
	case int8:
		return fromInt64(int64(x))
	case int16:
		return fromInt64(int64(x))
	case int32:
		return fromInt64(int64(x))
	case int64:
		return fromInt64(x)
	case uint:
		return Numeric(uint64(x))
	case uint8:
		return Numeric(uint64(x))
	case uint16:
		return Numeric(uint64(x))
	case uint32:
		return Numeric(uint64(x))
	case uint64:
		return Numeric(x)
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case string:
		return ParseID(x)
	case []byte:
		return ParseID(string(x))
	case fmt.Stringer:
		return ParseID(x.String())
	default:
		return ParseID(fmt.Sprint(x))
	}
}

func fromInt64(n int64) CardID {
	if n < 0 {
		return ParseID(strconv.FormatInt(n, 10))
	}
	return Numeric(uint64(n))
}

func fromFloat(f float64) CardID {
	if f >= 0 && f == math.Trunc(f) && f < 1<<53 {
		return Numeric(uint64(f))
	}
	return ParseID(strconv.FormatFloat(f, 'f', -1, 64))
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// IsZero reports whether the id is "no identifier".
func (id CardID) IsZero() bool { return id.kind == KindNone }

// Kind returns the populated variant.
func (id CardID) Kind() IDKind { return id.kind }

// Num returns the numeric value and true for numeric ids.
func (id CardID) Num() (uint64, bool) {
	return id.num, id.kind == KindNumeric
}

// String renders numeric ids zero-padded to three digits ("007") and tokens
// verbatim. The zero id renders as "".
func (id CardID) String() string {
	switch id.kind {
	case KindNumeric:
		return fmt.Sprintf("%03d", id.num)
	case KindToken:
		return id.token
	default:
		return ""
	}
}

// Key returns an unambiguous storage key ("n:7", "t:abc").
func (id CardID) Key() string {
	switch id.kind {
	case KindNumeric:
		return "n:" + strconv.FormatUint(id.num, 10)
	case KindToken:
		return "t:" + id.token
	default:
		return ""
	}
}

// ParseKey is the inverse of Key.
func ParseKey(key string) CardID {
	switch {
	case strings.HasPrefix(key, "n:"):
		return ParseID(key[2:])
	case strings.HasPrefix(key, "t:"):
		return ParseID(key[2:])
	default:
		return ParseID(key)
	}
}

// Compare orders ids: zero first, then numeric ascending, then tokens
// lexicographically.
func (id CardID) Compare(other CardID) int {
	if c := cmp.Compare(id.kind, other.kind); c != 0 {
		return c
	}
	switch id.kind {
	case KindNumeric:
		return cmp.Compare(id.num, other.num)
	case KindToken:
		return strings.Compare(id.token, other.token)
	default:
		return 0
	}
}

// MarshalYAML writes numeric ids as integers and tokens as strings.
func (id CardID) MarshalYAML() (any, error) {
	switch id.kind {
	case KindNumeric:
		return id.num, nil
	case KindToken:
		return id.token, nil
	default:
		return nil, nil
	}
}

// UnmarshalYAML accepts any scalar; the raw text goes through ParseID so
// "007" and 7 decode to the same id.
func (id *CardID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.AliasNode && value.Alias != nil {
		value = value.Alias
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("card id: expected scalar at line %d", value.Line)
	}
	*id = ParseID(value.Value)
	return nil
}

// MarshalJSON writes numeric ids as numbers, tokens as strings and the zero
// id as null.
func (id CardID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case KindNumeric:
		return []byte(strconv.FormatUint(id.num, 10)), nil
	case KindToken:
		return json.Marshal(id.token)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts numbers, strings and null.
func (id *CardID) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("card id: %w", err)
		}
		*id = ParseID(s)
		return nil
	}
	*id = ParseID(text)
	return nil
}
