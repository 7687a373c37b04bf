// Package importer reads collections and environments from external files.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mblydenburgh/postie/internal/core"
)

// Format is a supported import format.
type Format string

const (
	FormatAuto               Format = "auto"
	FormatPostman            Format = "postman"
	FormatPostmanEnvironment Format = "postman-environment"
	FormatDotenv             Format = "dotenv"
	FormatCurl               Format = "curl"
)

// ParseFormat maps a user supplied name onto a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatPostman, FormatPostmanEnvironment, FormatDotenv, FormatCurl:
		return f, nil
	case "env", ".env":
		return FormatDotenv, nil
	default:
		return "", fmt.Errorf("%w: unknown import format %q", core.ErrParse, s)
	}
}

// FileReader is the file-read capability imports go through.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// OSReader reads from the local filesystem.
type OSReader struct{}

func (OSReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Importer turns files into collections and environments.
type Importer struct {
	reader FileReader
	ids    core.IDGenerator
}

// Option configures an Importer.
type Option func(*Importer)

// WithIDGenerator sets the generator used when a document carries no ID.
func WithIDGenerator(ids core.IDGenerator) Option {
	return func(i *Importer) {
		i.ids = ids
	}
}

// New creates an Importer reading through reader.
func New(reader FileReader, opts ...Option) *Importer {
	i := &Importer{
		reader: reader,
		ids:    core.UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Collection reads and validates a Postman v2.1 collection file. A missing
// _postman_id is replaced by a generated one.
func (i *Importer) Collection(ctx context.Context, path string) (core.Collection, error) {
	data, err := i.read(ctx, path)
	if err != nil {
		return core.Collection{}, err
	}

	c, err := ParseCollection(data)
	if err != nil {
		return core.Collection{}, fmt.Errorf("failed to import %s: %w", path, err)
	}
	if c.Info.ID == "" {
		c.Info.ID = i.ids.New()
	}
	return c, nil
}

// Environment reads an environment file. With FormatAuto, JSON content is
// read as a Postman environment and anything else as a dotenv file.
func (i *Importer) Environment(ctx context.Context, path string, format Format) (core.EnvironmentFile, error) {
	data, err := i.read(ctx, path)
	if err != nil {
		return core.EnvironmentFile{}, err
	}

	if format == FormatAuto {
		format = DetectEnvironmentFormat(data)
	}

	var env core.EnvironmentFile
	switch format {
	case FormatPostmanEnvironment:
		env, err = ParseEnvironment(data)
	case FormatDotenv:
		env, err = ParseDotenv(data, environmentName(path))
	default:
		err = fmt.Errorf("%w: %s is not an environment format", core.ErrParse, format)
	}
	if err != nil {
		return core.EnvironmentFile{}, fmt.Errorf("failed to import %s: %w", path, err)
	}

	if env.ID == "" {
		env.ID = i.ids.New()
	}
	if env.Name == "" {
		env.Name = environmentName(path)
	}
	return env, nil
}

// Curl reads a file holding one curl command and returns it as a request.
func (i *Importer) Curl(ctx context.Context, path string) (core.Item, error) {
	data, err := i.read(ctx, path)
	if err != nil {
		return core.Item{}, err
	}
	item, err := ParseCurl(string(data))
	if err != nil {
		return core.Item{}, fmt.Errorf("failed to import %s: %w", path, err)
	}
	return item, nil
}

func (i *Importer) read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := i.reader.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// DetectEnvironmentFormat tells a Postman environment from a dotenv file.
func DetectEnvironmentFormat(data []byte) Format {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return FormatPostmanEnvironment
	}
	return FormatDotenv
}

// environmentName derives a name from a file path: "staging.postman_environment.json",
// "staging.env" and ".env.staging" all become "staging".
func environmentName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".json")
	name = strings.TrimSuffix(name, ".postman_environment")
	if name != ".env" {
		name = strings.TrimSuffix(name, ".env")
	}
	name = strings.TrimPrefix(name, ".env.")
	name = strings.TrimPrefix(name, ".")
	return name
}
