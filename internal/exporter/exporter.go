// Package exporter writes collections out in external formats.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mblydenburgh/postie/internal/core"
)

// ErrUnknownFormat is returned for a format no exporter handles.
var ErrUnknownFormat = errors.New("unknown export format")

// Format is a supported export format.
type Format string

const (
	FormatPostman Format = "postman"
	FormatYAML    Format = "yaml"
	FormatCurl    Format = "curl"
)

// Exporter converts a collection into one output format.
type Exporter interface {
	// Name returns a human readable name.
	Name() string

	// Format returns the format this exporter produces.
	Format() Format

	// FileExtension returns the extension for exported files.
	FileExtension() string

	// Export converts the collection.
	Export(ctx context.Context, c core.Collection) ([]byte, error)
}

// Result is the output of one export.
type Result struct {
	Content       []byte
	Format        Format
	FileExtension string
}

// Registry holds exporters by format.
type Registry struct {
	exporters map[Format]Exporter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		exporters: make(map[Format]Exporter),
	}
}

// DefaultRegistry returns a registry with every built-in exporter.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewPostmanExporter())
	r.Register(NewYAMLExporter())
	r.Register(NewCurlExporter())
	return r
}

// Register adds an exporter, replacing any previous one for its format.
func (r *Registry) Register(exp Exporter) {
	r.exporters[exp.Format()] = exp
}

// Get returns the exporter for format.
func (r *Registry) Get(format Format) (Exporter, bool) {
	exp, ok := r.exporters[format]
	return exp, ok
}

// Export converts c with the exporter registered for format. "json" is
// accepted as an alias of the Postman format.
func (r *Registry) Export(ctx context.Context, format Format, c core.Collection) (*Result, error) {
	format = Format(strings.ToLower(string(format)))
	if format == "json" || format == "" {
		format = FormatPostman
	}
	if format == "yml" {
		format = FormatYAML
	}

	exp, ok := r.exporters[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	content, err := exp.Export(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to export collection %q: %w", c.Info.Name, err)
	}

	return &Result{
		Content:       content,
		Format:        format,
		FileExtension: exp.FileExtension(),
	}, nil
}

// ListFormats returns the registered formats, sorted.
func (r *Registry) ListFormats() []Format {
	formats := make([]Format, 0, len(r.exporters))
	for f := range r.exporters {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}
