package page

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// Version is the export format version written by Export.
const Version = "1.0"

// ErrInvalidDocument is returned for documents Import cannot use.
var ErrInvalidDocument = errors.New("invalid page document")

// Export converts a tree into the flat export document.
func Export(nodes []types.ComponentNode) types.PageDocument {
	doc := types.PageDocument{Version: Version, Components: make([]types.PageComponent, 0, len(nodes))}
	for _, n := range nodes {
		c := n.Clone()
		doc.Components = append(doc.Components, types.PageComponent{
			ID:       c.ID,
			Type:     c.Type,
			Name:     c.Name,
			Props:    c.Props,
			ParentID: c.Parent(),
		})
	}
	return doc
}

// Import converts an export document back into tree nodes. Structural
// problems such as dangling parents are left for the tree store to repair.
func Import(doc types.PageDocument, reg *registry.Registry) ([]types.ComponentNode, error) {
	major, _, _ := strings.Cut(doc.Version, ".")
	if want, _, _ := strings.Cut(Version, "."); major != want {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidDocument, doc.Version)
	}

	nodes := make([]types.ComponentNode, 0, len(doc.Components))
	for i, c := range doc.Components {
		if c.ID == "" || c.Type == "" {
			return nil, fmt.Errorf("%w: component %d needs an id and a type", ErrInvalidDocument, i)
		}
		n := types.ComponentNode{
			ID:          c.ID,
			Type:        c.Type,
			Name:        c.Name,
			Props:       c.Props,
			ParentID:    types.StringPtr(c.ParentID),
			IsContainer: reg.IsContainer(c.Type),
			IsVisible:   true,
		}
		if n.Name == "" {
			n.Name = c.Type
		}
		nodes = append(nodes, n.Clone())
	}
	return nodes, nil
}

// Format is an encoding of the export document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts a format name or a file name with a known extension.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(s)
	if ext := filepath.Ext(name); ext != "" {
		name = ext[1:]
	}
	switch name {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown page format %q", s)
}

// ContentType is the media type of the format.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Encode writes doc in the given format.
func Encode(w io.Writer, doc types.PageDocument, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	return fmt.Errorf("unknown page format %q", f)
}

// Decode reads a document in the given format. Prop values come back as
// they would from JSON whichever format was used.
func Decode(r io.Reader, f Format) (types.PageDocument, error) {
	var doc types.PageDocument
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return doc, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return doc, nil
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return doc, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return normalize(doc)
	}
	return doc, fmt.Errorf("unknown page format %q", f)
}

// normalize passes props through JSON so numbers are float64 and maps are
// map[string]any.
func normalize(doc types.PageDocument) (types.PageDocument, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return doc, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var out types.PageDocument
	if err := json.Unmarshal(b, &out); err != nil {
		return doc, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return out, nil
}
