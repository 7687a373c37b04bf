package importer

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/joho/godotenv"
	"github.com/mblydenburgh/postie/internal/core"
)

// ParseDotenv reads KEY=VALUE lines into an environment named name. Every
// key becomes an enabled "default" variable. Keys are sorted because the
// parser does not keep file order.
func ParseDotenv(data []byte, name string) (core.EnvironmentFile, error) {
	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return core.EnvironmentFile{}, fmt.Errorf("%w: dotenv: %w", core.ErrParse, err)
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := core.EnvironmentFile{Name: name, Values: []core.EnvironmentValue{}}
	for _, k := range keys {
		env.Values = append(env.Values, core.EnvironmentValue{
			Key:     k,
			Value:   vars[k],
			Type:    "default",
			Enabled: true,
		})
	}
	return env, nil
}
