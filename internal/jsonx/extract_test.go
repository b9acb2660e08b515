package jsonx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	t.Run("Bare Object", func(t *testing.T) {
		out, err := ExtractObject(`{"category": "login_issue"}`)
		require.NoError(t, err)
		assert.Equal(t, `{"category": "login_issue"}`, out)
	})

	t.Run("Surrounding Commentary", func(t *testing.T) {
		text := "Sure! Here is the classification:\n```json\n{\"category\": \"bug_report\"}\n```\nLet me know if you need more."
		out, err := ExtractObject(text)
		require.NoError(t, err)
		assert.Equal(t, `{"category": "bug_report"}`, out)
	})

	t.Run("Nested Object", func(t *testing.T) {
		text := `prefix {"category": "x", "scores": {"a": 1, "b": 2}} suffix {"other": true}`
		out, err := ExtractObject(text)
		require.NoError(t, err)

		var parsed struct {
			Scores map[string]float64 `json:"scores"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &parsed))
		assert.Len(t, parsed.Scores, 2)
	})

	t.Run("Braces Inside Strings", func(t *testing.T) {
		text := `{"note": "use {placeholders} like }{", "ok": true}`
		out, err := ExtractObject(text)
		require.NoError(t, err)
		assert.Equal(t, text, out)
		assert.True(t, json.Valid([]byte(out)))
	})

	t.Run("Escaped Quote Inside String", func(t *testing.T) {
		text := `{"note": "she said \"hi\" {", "n": 1}`
		out, err := ExtractObject(text)
		require.NoError(t, err)
		assert.True(t, json.Valid([]byte(out)))
	})

	t.Run("No Object", func(t *testing.T) {
		_, err := ExtractObject("the model refused to answer")
		assert.ErrorIs(t, err, ErrNoObject)
	})

	t.Run("Unbalanced", func(t *testing.T) {
		_, err := ExtractObject(`{"category": "login_issue"`)
		assert.ErrorIs(t, err, ErrNoObject)
	})

	t.Run("Empty Input", func(t *testing.T) {
		_, err := ExtractObject("")
		assert.ErrorIs(t, err, ErrNoObject)
	})
}
