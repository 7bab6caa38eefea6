// Package schema validates raw card documents against an embedded CUE
// schema before they are decoded into cards.
package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed card.cue
var cardSchema string

// Validation error codes (E200-E299)
const (
	ErrDocumentUnreadable = "E201" // file or row could not be parsed
	ErrSchemaViolation    = "E202" // document does not satisfy #Card
	ErrDuplicateID        = "E203" // two documents normalize to one id
	ErrLedgerConflict     = "E204" // id present in more than one ledger set
	ErrLedgerOrphan       = "E205" // ledger entry names no known card
)

// ValidationError is one problem found in a document or the ledger.
type ValidationError struct {
	Source  string `json:"source"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Source, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Source, e.Message)
}

// Document is an undecoded card document. Err is set when the source could
// not be parsed at all.
type Document struct {
	Source string
	Data   map[string]any
	Err    error
}

// Validator checks documents against #Card.
type Validator struct {
	ctx  *cue.Context
	card cue.Value
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(cardSchema, cue.Filename("card.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile card schema: %w", err)
	}
	def := root.LookupPath(cue.ParsePath("#Card"))
	if !def.Exists() {
		return nil, fmt.Errorf("compile card schema: #Card not defined")
	}
	return &Validator{ctx: ctx, card: def}, nil
}

// Validate returns every schema problem in doc. A nil result means the
// document is valid.
func (v *Validator) Validate(doc Document) []ValidationError {
	if doc.Err != nil {
		return []ValidationError{{
			Source:  doc.Source,
			Message: doc.Err.Error(),
			Code:    ErrDocumentUnreadable,
		}}
	}
	if doc.Data == nil {
		return []ValidationError{{
			Source:  doc.Source,
			Message: "document is empty",
			Code:    ErrDocumentUnreadable,
		}}
	}

	value := v.ctx.Encode(doc.Data)
	if err := value.Err(); err != nil {
		return []ValidationError{{
			Source:  doc.Source,
			Message: err.Error(),
			Code:    ErrDocumentUnreadable,
		}}
	}

	err := v.card.Unify(value).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		out = append(out, ValidationError{
			Source:  doc.Source,
			Field:   fieldPath(e.Path()),
			Message: fmt.Sprintf(format, args...),
			Code:    ErrSchemaViolation,
		})
	}
	return out
}

// ValidateAll validates documents in order.
func (v *Validator) ValidateAll(docs []Document) []ValidationError {
	var out []ValidationError
	for _, d := range docs {
		out = append(out, v.Validate(d)...)
	}
	return out
}

func fieldPath(path []string) string {
	var parts []string
	for _, p := range path {
		if strings.HasPrefix(p, "#") {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ".")
}
