// Package document defines the persisted Graphvana file format: a
// serialized graph plus style rules and named transformation queries,
// stored as JSON.
package document

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/graphvana/graphvana/pkg/graph"
	"github.com/graphvana/graphvana/pkg/gql/parser"
)

// Document is one saved file.
type Document struct {
	// Graph is the serialized graph snapshot.
	Graph *graph.SerializedGraph `json:"graph" validate:"required"`

	// Styles are display rules applied to matching nodes.
	Styles []StyleRule `json:"styles,omitempty" validate:"dive"`

	// Transformations are named queries the user can apply to the graph.
	Transformations []Transformation `json:"transformations,omitempty" validate:"dive"`
}

// StyleRule styles every node matching its selector, a node pattern in
// query syntax, e.g. "(:Person{active: true})".
type StyleRule struct {
	Selector   string            `json:"selector" validate:"required"`
	Properties map[string]string `json:"properties" validate:"required,min=1"`
}

// Transformation is a named, stored query.
type Transformation struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name" validate:"required"`
	Query string `json:"query" validate:"required"`
}

// New wraps a graph snapshot in an empty document.
func New(g *graph.Graph) (*Document, error) {
	sg, err := g.Serialize(nil)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return &Document{Graph: sg}, nil
}

// Parse decodes a document from JSON and fills in missing transformation
// IDs. It does not validate; call Validate separately.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	doc.Normalize()
	return &doc, nil
}

// Load reads and parses a document file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return Parse(data)
}

// Marshal encodes the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return data, nil
}

// Save writes the document to a file.
func (d *Document) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("document: %w", err)
	}
	return nil
}

// Normalize assigns fresh UUIDs to transformations without an ID.
func (d *Document) Normalize() {
	for i := range d.Transformations {
		if d.Transformations[i].ID == "" {
			d.Transformations[i].ID = uuid.NewString()
		}
	}
}

// BuildGraph deserializes the document's graph snapshot.
func (d *Document) BuildGraph() (*graph.Graph, error) {
	if d.Graph == nil {
		return graph.New(), nil
	}
	g, err := graph.Deserialize(d.Graph, nil)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return g, nil
}

// Transformation returns the named transformation.
func (d *Document) Transformation(name string) (Transformation, bool) {
	for _, t := range d.Transformations {
		if t.Name == name {
			return t, true
		}
	}
	return Transformation{}, false
}

var validate = validator.New()

// Validate checks structure via validator tags, then semantics: the graph
// must deserialize, style selectors must parse as node patterns, and
// transformation queries must parse.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("document: %w", err)
	}
	if _, err := d.BuildGraph(); err != nil {
		return err
	}
	for _, s := range d.Styles {
		if _, err := parser.ParseNodePattern(s.Selector); err != nil {
			return fmt.Errorf("document: style selector %q: %w", s.Selector, err)
		}
	}
	seen := make(map[string]bool, len(d.Transformations))
	for _, t := range d.Transformations {
		if seen[t.Name] {
			return fmt.Errorf("document: duplicate transformation name %q", t.Name)
		}
		seen[t.Name] = true
		if _, err := parser.ParseQuery(t.Query); err != nil {
			return fmt.Errorf("document: transformation %q: %w", t.Name, err)
		}
	}
	return nil
}
