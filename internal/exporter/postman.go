package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mblydenburgh/postie/internal/core"
	"gopkg.in/yaml.v3"
)

// PostmanExporter writes Postman v2.1 collection JSON that imports back
// unchanged.
type PostmanExporter struct{}

// NewPostmanExporter creates a Postman exporter.
func NewPostmanExporter() *PostmanExporter {
	return &PostmanExporter{}
}

func (p *PostmanExporter) Name() string          { return "Postman Collection v2.1" }
func (p *PostmanExporter) Format() Format        { return FormatPostman }
func (p *PostmanExporter) FileExtension() string { return ".postman_collection.json" }

func (p *PostmanExporter) Export(_ context.Context, c core.Collection) ([]byte, error) {
	return marshalCollection(c)
}

// YAMLExporter writes the Postman document as YAML, keeping key order.
type YAMLExporter struct{}

// NewYAMLExporter creates a YAML exporter.
func NewYAMLExporter() *YAMLExporter {
	return &YAMLExporter{}
}

func (y *YAMLExporter) Name() string          { return "Postman Collection (YAML)" }
func (y *YAMLExporter) Format() Format        { return FormatYAML }
func (y *YAMLExporter) FileExtension() string { return ".yaml" }

func (y *YAMLExporter) Export(_ context.Context, c core.Collection) ([]byte, error) {
	doc, err := marshalCollection(c)
	if err != nil {
		return nil, err
	}

	// JSON is valid YAML, so the node tree keeps the JSON key order.
	var node yaml.Node
	if err := yaml.Unmarshal(doc, &node); err != nil {
		return nil, fmt.Errorf("failed to convert to yaml: %w", err)
	}
	plainStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func marshalCollection(c core.Collection) ([]byte, error) {
	if c.Info.Schema == "" {
		c.Info.Schema = core.PostmanSchemaV21
	}
	c.Item = arrayItems(c.Item)
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal collection: %w", err)
	}
	return data, nil
}

// arrayItems copies nodes with every nil folder list replaced by an empty
// one, since the collection schema requires item to be an array.
func arrayItems(nodes core.Nodes) core.Nodes {
	out := make(core.Nodes, 0, len(nodes))
	for _, node := range nodes {
		if f, ok := node.(core.Folder); ok {
			f.Item = arrayItems(f.Item)
			node = f
		}
		out = append(out, node)
	}
	return out
}

// plainStyle drops the flow and quoting styles the JSON input carried; the
// encoder re-quotes scalars that need it.
func plainStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		plainStyle(child)
	}
}
