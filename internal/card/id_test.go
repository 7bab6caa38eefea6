package card

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want CardID
	}{
		{"bare integer", "7", Numeric(7)},
		{"zero padded", "007", Numeric(7)},
		{"surrounding space", "  12 ", Numeric(12)},
		{"all zeros", "000", Numeric(0)},
		{"token", "auth-login", ParseID("auth-login")},
		{"token trimmed", "  auth-login\t", ParseID("auth-login")},
		{"empty", "", CardID{}},
		{"blank", "   ", CardID{}},
		{"none literal", "None", CardID{}},
		{"null literal", "NULL", CardID{}},
		{"negative is a token", "-3", ParseID("-3")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseID(tt.in))
		})
	}
}

func TestParseID_Kinds(t *testing.T) {
	assert.Equal(t, KindNumeric, ParseID("007").Kind())
	assert.Equal(t, KindToken, ParseID("x7").Kind())
	assert.Equal(t, KindToken, ParseID("-3").Kind())
	assert.Equal(t, KindNone, ParseID("null").Kind())
	assert.True(t, ParseID("").IsZero())
}

func TestParseID_HugeDigitsStayConsistent(t *testing.T) {
	a := ParseID("000123456789012345678901234567890")
	b := ParseID("123456789012345678901234567890")
	assert.Equal(t, KindToken, a.Kind())
	assert.Equal(t, a, b)
}

func TestParseID_NFC(t *testing.T) {
	composed := ParseID("caf\u00e9")
	decomposed := ParseID("cafe\u0301")
	assert.Equal(t, composed, decomposed)
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want CardID
	}{
		{"nil", nil, CardID{}},
		{"int", 7, Numeric(7)},
		{"int64", int64(7), Numeric(7)},
		{"uint8", uint8(7), Numeric(7)},
		{"whole float", 7.0, Numeric(7)},
		{"fractional float", 7.5, ParseID("7.5")},
		{"negative int", -2, ParseID("-2")},
		{"padded string", "007", Numeric(7)},
		{"bytes", []byte("9"), Numeric(9)},
		{"card id", Numeric(4), Numeric(4)},
		{"nil pointer", (*CardID)(nil), CardID{}},
		{"bool", true, ParseID("true")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeID(tt.in))
		})
	}
}

func TestCardID_String(t *testing.T) {
	assert.Equal(t, "007", Numeric(7).String())
	assert.Equal(t, "1234", Numeric(1234).String())
	assert.Equal(t, "auth", ParseID("auth").String())
	assert.Equal(t, "", CardID{}.String())
}

func TestCardID_KeyRoundTrip(t *testing.T) {
	for _, id := range []CardID{Numeric(0), Numeric(42), ParseID("alpha-1")} {
		assert.Equal(t, id, ParseKey(id.Key()), id.Key())
	}
	assert.Equal(t, "n:42", Numeric(42).Key())
	assert.Equal(t, "t:alpha-1", ParseID("alpha-1").Key())
}

func TestCardID_Compare(t *testing.T) {
	assert.Negative(t, CardID{}.Compare(Numeric(0)))
	assert.Negative(t, Numeric(2).Compare(Numeric(10)))
	assert.Negative(t, Numeric(999).Compare(ParseID("a")))
	assert.Negative(t, ParseID("a").Compare(ParseID("b")))
	assert.Zero(t, Numeric(3).Compare(ParseID("003")))
}

func TestCardID_YAML(t *testing.T) {
	var doc struct {
		A CardID `yaml:"a"`
		B CardID `yaml:"b"`
		C CardID `yaml:"c"`
		D CardID `yaml:"d"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 007\nb: \"7\"\nc: ux-2\nd: null\n"), &doc))
	assert.Equal(t, Numeric(7), doc.A)
	assert.Equal(t, Numeric(7), doc.B)
	assert.Equal(t, ParseID("ux-2"), doc.C)
	assert.True(t, doc.D.IsZero())

	out, err := yaml.Marshal(map[string]CardID{"num": Numeric(7), "tok": ParseID("ux-2")})
	require.NoError(t, err)
	assert.Equal(t, "num: 7\ntok: ux-2\n", string(out))
}

func TestCardID_YAMLRejectsMapping(t *testing.T) {
	var doc struct {
		A CardID `yaml:"a"`
	}
	err := yaml.Unmarshal([]byte("a: {x: 1}\n"), &doc)
	assert.Error(t, err)
}

func TestCardID_JSON(t *testing.T) {
	out, err := json.Marshal([]CardID{Numeric(7), ParseID("ux"), {}})
	require.NoError(t, err)
	assert.JSONEq(t, `[7, "ux", null]`, string(out))

	var ids []CardID
	require.NoError(t, json.Unmarshal([]byte(`[7, "007", "ux", null]`), &ids))
	assert.Equal(t, []CardID{Numeric(7), Numeric(7), ParseID("ux"), {}}, ids)
}
