package card

import (
	"maps"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Card is a unit of trackable work.
//
// Fields the engine does not interpret are kept in Extra so a load/save cycle
// preserves them.
type Card struct {
	ID          CardID         `yaml:"id" json:"id"`
	Title       string         `yaml:"title,omitempty" json:"title,omitempty"`
	Status      Status         `yaml:"status" json:"status"`
	AssignedTo  string         `yaml:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	Project     string         `yaml:"project,omitempty" json:"project,omitempty"`
	Parents     ParentRefs     `yaml:"linked_to" json:"parents"`
	ReviewNotes []ReviewNote   `yaml:"review_notes,omitempty" json:"review_notes,omitempty"`
	Extra       map[string]any `yaml:",inline" json:"-"`
}

// ReviewNote is a reviewer comment appended when changes are requested.
type ReviewNote struct {
	Date     time.Time `yaml:"date" json:"date"`
	Reviewer string    `yaml:"reviewer,omitempty" json:"reviewer,omitempty"`
	Notes    string    `yaml:"notes" json:"notes"`
}

// PrimaryParent returns the first parent reference, or the zero id.
// Tree rendering only follows this link.
func (c Card) PrimaryParent() CardID {
	for _, p := range c.Parents {
		if !p.IsZero() {
			return p
		}
	}
	return CardID{}
}

// Clone returns a deep copy safe to mutate.
func (c Card) Clone() Card {
	out := c
	out.Parents = slices.Clone(c.Parents)
	out.ReviewNotes = slices.Clone(c.ReviewNotes)
	if c.Extra != nil {
		out.Extra = maps.Clone(c.Extra)
	}
	return out
}

// ParentRefs is the list of cards a card depends on. In YAML it is written
// under linked_to as null, a single scalar, or a sequence.
type ParentRefs []CardID

// Parents builds a ParentRefs from arbitrary id representations, dropping
// values that normalize to no identifier and duplicates.
func Parents(values ...any) ParentRefs {
	var out ParentRefs
	for _, v := range values {
		out = out.add(NormalizeID(v))
	}
	return out
}

func (p ParentRefs) add(id CardID) ParentRefs {
	if id.IsZero() || slices.Contains(p, id) {
		return p
	}
	return append(p, id)
}

// UnmarshalYAML never fails: malformed references (mappings, nested lists,
// empty values) are treated as "no parent" so one corrupt card cannot stop a
// whole reconciliation pass.
func (p *ParentRefs) UnmarshalYAML(value *yaml.Node) error {
	*p = parseParentNode(value)
	return nil
}

func parseParentNode(n *yaml.Node) ParentRefs {
	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil
		}
		return parseParentNode(n.Alias)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil
		}
		return ParentRefs(nil).add(ParseID(n.Value))
	case yaml.SequenceNode:
		var out ParentRefs
		for _, child := range n.Content {
			if child.Kind == yaml.AliasNode && child.Alias != nil {
				child = child.Alias
			}
			if child.Kind != yaml.ScalarNode || child.Tag == "!!null" {
				continue
			}
			out = out.add(ParseID(child.Value))
		}
		return out
	default:
		return nil
	}
}

// MarshalYAML writes null, a scalar, or a sequence.
func (p ParentRefs) MarshalYAML() (any, error) {
	switch len(p) {
	case 0:
		return nil, nil
	case 1:
		return p[0], nil
	default:
		return []CardID(p), nil
	}
}
