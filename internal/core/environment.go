package core

import (
	"encoding/json"
	"fmt"
)

// EnvironmentFile is a named set of variables, Postman environment format.
type EnvironmentFile struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Values []EnvironmentValue `json:"values,omitempty"`
}

// MarshalJSON omits values only when the list is absent; an empty list is
// written as [] so it parses back empty rather than absent.
func (e EnvironmentFile) MarshalJSON() ([]byte, error) {
	type plain EnvironmentFile
	if e.Values == nil {
		return json.Marshal(plain(e))
	}
	return json.Marshal(struct {
		ID     string             `json:"id"`
		Name   string             `json:"name"`
		Values []EnvironmentValue `json:"values"`
	}{e.ID, e.Name, e.Values})
}

// EnvironmentValue is a single variable.
type EnvironmentValue struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// ParseEnvironment decodes an environment document.
func ParseEnvironment(data []byte) (EnvironmentFile, error) {
	var env EnvironmentFile
	if err := json.Unmarshal(data, &env); err != nil {
		return EnvironmentFile{}, fmt.Errorf("%w: environment: %w", ErrParse, err)
	}
	return env, nil
}

// DefaultEnvironment is the environment selected when none has been loaded.
func DefaultEnvironment() EnvironmentFile {
	return EnvironmentFile{
		ID:   "default",
		Name: "default",
		Values: []EnvironmentValue{
			{Key: "HOST_URL", Value: "https://httpbin.org", Type: "default", Enabled: true},
		},
	}
}

// Get returns the value of key, ignoring the enabled flag.
func (e EnvironmentFile) Get(key string) (string, bool) {
	for _, v := range e.Values {
		if v.Key == key {
			return v.Value, true
		}
	}
	return "", false
}

// Set replaces the value of key or appends a new enabled variable.
func (e *EnvironmentFile) Set(key, value string) {
	for i := range e.Values {
		if e.Values[i].Key == key {
			e.Values[i].Value = value
			return
		}
	}
	e.Values = append(e.Values, EnvironmentValue{Key: key, Value: value, Type: "default", Enabled: true})
}
