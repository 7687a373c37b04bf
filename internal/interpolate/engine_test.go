package interpolate

import (
	"testing"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/stretchr/testify/assert"
)

func env(values ...core.EnvironmentValue) core.EnvironmentFile {
	return core.EnvironmentFile{ID: "e", Name: "test", Values: values}
}

func value(key, val string) core.EnvironmentValue {
	return core.EnvironmentValue{Key: key, Value: val, Type: "default", Enabled: true}
}

func TestSubstitute(t *testing.T) {
	t.Run("replaces a placeholder", func(t *testing.T) {
		got := Substitute(env(value("HOST", "http://a")), "{{HOST}}/x")
		assert.Equal(t, "http://a/x", got)
	})

	t.Run("environment without values returns input unchanged", func(t *testing.T) {
		raw := "{{HOST}}/x"
		assert.Equal(t, raw, Substitute(core.EnvironmentFile{ID: "e"}, raw))
	})

	t.Run("empty value list substitutes nothing", func(t *testing.T) {
		assert.Equal(t, "{{A}}", Substitute(env(), "{{A}}"))
	})

	t.Run("replaces every occurrence", func(t *testing.T) {
		got := Substitute(env(value("ID", "7")), "/a/{{ID}}/b/{{ID}}")
		assert.Equal(t, "/a/7/b/7", got)
	})

	t.Run("disabled values still substitute", func(t *testing.T) {
		disabled := core.EnvironmentValue{Key: "HOST", Value: "http://off", Enabled: false}
		assert.Equal(t, "http://off/", Substitute(env(disabled), "{{HOST}}/"))
	})

	t.Run("is literal, not a pattern", func(t *testing.T) {
		got := Substitute(env(value("a.b", "X"), value("c*", "Y")), "{{a.b}}{{aXb}}{{c*}}{{cc}}")
		assert.Equal(t, "X{{aXb}}Y{{cc}}", got)
	})

	t.Run("does not tolerate spacing", func(t *testing.T) {
		assert.Equal(t, "{{ HOST }}", Substitute(env(value("HOST", "h")), "{{ HOST }}"))
	})

	t.Run("applies values in list order without recursion", func(t *testing.T) {
		// A's value introduces {{B}}; B comes later, so it is expanded once.
		got := Substitute(env(value("A", "{{B}}"), value("B", "b")), "{{A}}")
		assert.Equal(t, "b", got)

		// Reversed order leaves the introduced placeholder in place.
		got = Substitute(env(value("B", "b"), value("A", "{{B}}")), "{{A}}")
		assert.Equal(t, "{{B}}", got)
	})

	t.Run("self reference does not loop", func(t *testing.T) {
		got := Substitute(env(value("A", "{{A}}")), "{{A}}")
		assert.Equal(t, "{{A}}", got)
	})
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"HOST", "ID"}, Placeholders("{{HOST}}/users/{{ID}}/{{HOST}}"))
	assert.Nil(t, Placeholders("https://example.com"))
}
