package fields

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joseph-ayodele/fieldextract/constants"
	"github.com/joseph-ayodele/fieldextract/internal/common"
)

// Type is the declared type of a field value.
type Type string

const (
	TypeString  Type = constants.FieldTypeString
	TypeInteger Type = constants.FieldTypeInteger
)

// Valid reports whether t is a supported declared type.
func (t Type) Valid() bool {
	return t == TypeString || t == TypeInteger
}

const (
	maxNameLen        = 200
	maxDescriptionLen = 2000
	maxFields         = 100
)

// Spec describes one value the caller wants extracted.
type Spec struct {
	Key         string `json:"-"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        Type   `json:"type"`
}

// SpecSet is an ordered, key-unique set of field specs.
// The zero value is an empty set.
type SpecSet struct {
	specs []Spec
	index map[string]int
}

// NewSpecSet validates specs and returns them as a set, keeping their order.
func NewSpecSet(specs ...Spec) (SpecSet, error) {
	v := common.NewValidator()
	if len(specs) == 0 {
		v.Add("fields", nil, "at least one field is required")
	}
	if len(specs) > maxFields {
		v.Add("fields", len(specs), fmt.Sprintf("at most %d fields are allowed", maxFields))
	}

	set := SpecSet{
		specs: make([]Spec, 0, len(specs)),
		index: make(map[string]int, len(specs)),
	}
	for _, s := range specs {
		s.Name = strings.TrimSpace(s.Name)
		s.Description = strings.TrimSpace(s.Description)
		s.Type = Type(strings.ToLower(strings.TrimSpace(string(s.Type))))

		path := "fields." + s.Key
		v.Field(path, s.Key, common.Identifier)
		v.Field(path+".name", s.Name, common.Required, common.MaxLength(maxNameLen))
		v.Field(path+".description", s.Description, common.MaxLength(maxDescriptionLen))
		v.Field(path+".type", string(s.Type), common.OneOf(string(TypeString), string(TypeInteger)))

		if _, dup := set.index[s.Key]; dup {
			v.Add(path, s.Key, "duplicate field key")
			continue
		}
		set.index[s.Key] = len(set.specs)
		set.specs = append(set.specs, s)
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		return SpecSet{}, err
	}
	return set, nil
}

type wireSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// ParseSpecSet decodes a JSON object of key -> {name, description, type},
// preserving key order and rejecting duplicate keys.
func ParseSpecSet(data []byte) (SpecSet, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return SpecSet{}, invalidJSON(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return SpecSet{}, common.InvalidInputf("fields must be a JSON object")
	}

	var specs []Spec
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return SpecSet{}, invalidJSON(err)
		}
		key, _ := tok.(string)

		var w wireSpec
		if err := dec.Decode(&w); err != nil {
			return SpecSet{}, common.InvalidInputf("fields.%s: %v", key, err)
		}
		specs = append(specs, Spec{Key: key, Name: w.Name, Description: w.Description, Type: Type(w.Type)})
	}
	if _, err := dec.Token(); err != nil {
		return SpecSet{}, invalidJSON(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return SpecSet{}, common.InvalidInputf("fields: unexpected data after object")
	}
	return NewSpecSet(specs...)
}

func invalidJSON(err error) error {
	return common.InvalidInputf("fields: malformed JSON: %v", err)
}

// Len returns the number of specs.
func (s SpecSet) Len() int { return len(s.specs) }

// Specs returns a copy of the specs in order.
func (s SpecSet) Specs() []Spec {
	out := make([]Spec, len(s.specs))
	copy(out, s.specs)
	return out
}

// Keys returns the field keys in order.
func (s SpecSet) Keys() []string {
	out := make([]string, len(s.specs))
	for i, sp := range s.specs {
		out[i] = sp.Key
	}
	return out
}

// Get returns the spec for key.
func (s SpecSet) Get(key string) (Spec, bool) {
	i, ok := s.index[key]
	if !ok {
		return Spec{}, false
	}
	return s.specs[i], true
}

// Has reports whether key is part of the set.
func (s SpecSet) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// MarshalJSON renders the set back into its wire shape, in order.
func (s SpecSet) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, sp := range s.specs {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(sp.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(sp)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler via ParseSpecSet.
func (s *SpecSet) UnmarshalJSON(data []byte) error {
	set, err := ParseSpecSet(data)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
