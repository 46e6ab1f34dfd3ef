// Package workflowfile reads and writes workflow graphs as YAML documents.
package workflowfile

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dukex/opsplan/pkg/models"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

const Version = 1

var (
	ErrInvalidDocument  = errors.New("invalid workflow document")
	ErrUnknownOperation = errors.New("operation is not in the project palette")
)

//go:embed schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Document is the portable form of a workflow. Nodes are addressed by document-local refs
// and operations by their catalog code.
type Document struct {
	Version int    `yaml:"version"`
	Project string `yaml:"project,omitempty"`
	Nodes   []Node `yaml:"nodes"`
	Edges   []Edge `yaml:"edges,omitempty"`
}

type Node struct {
	Ref           string          `yaml:"ref"`
	Kind          models.NodeKind `yaml:"kind"`
	Operation     string          `yaml:"operation,omitempty"` // Catalog code, operation nodes only
	X             float64         `yaml:"x"`
	Y             float64         `yaml:"y"`
	EstimatedTime int             `yaml:"estimated_time,omitempty"`
}

type Edge struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Label string `yaml:"label,omitempty"`
}

// Parse decodes a YAML document and validates it against the document schema.
func Parse(data []byte) (*Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if err := doc.checkRefs(); err != nil {
		return nil, err
	}

	return &doc, nil
}

func Marshal(doc *Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

func validateSchema(raw any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile workflow document schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(messages, "; "))
	}

	return nil
}

func (d *Document) checkRefs() error {
	refs := make(map[string]bool, len(d.Nodes))

	for _, node := range d.Nodes {
		if refs[node.Ref] {
			return fmt.Errorf("%w: duplicate node ref %q", ErrInvalidDocument, node.Ref)
		}

		refs[node.Ref] = true
	}

	for _, edge := range d.Edges {
		for _, ref := range []string{edge.From, edge.To} {
			if !refs[ref] {
				return fmt.Errorf("%w: edge %s -> %s references unknown node %q", ErrInvalidDocument, edge.From, edge.To, ref)
			}
		}
	}

	return nil
}
