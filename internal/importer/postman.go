package importer

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/xeipuuv/gojsonschema"
)

var (
	//go:embed schema/collection.json
	collectionSchemaJSON []byte

	//go:embed schema/environment.json
	environmentSchemaJSON []byte
)

var (
	collectionSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
		return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(collectionSchemaJSON))
	})
	environmentSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
		return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(environmentSchemaJSON))
	})
)

// ParseCollection validates data against the Postman v2.1 collection shape
// and decodes it.
func ParseCollection(data []byte) (core.Collection, error) {
	if err := validate(collectionSchema, data); err != nil {
		return core.Collection{}, fmt.Errorf("collection: %w", err)
	}
	return core.ParseCollection(data)
}

// ParseEnvironment validates and decodes a Postman environment.
func ParseEnvironment(data []byte) (core.EnvironmentFile, error) {
	if err := validate(environmentSchema, data); err != nil {
		return core.EnvironmentFile{}, fmt.Errorf("environment: %w", err)
	}
	return core.ParseEnvironment(data)
}

func validate(schema func() (*gojsonschema.Schema, error), data []byte) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrParse, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return fmt.Errorf("%w: %s", core.ErrParse, strings.Join(problems, "; "))
	}
	return nil
}
