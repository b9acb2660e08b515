// Package jsonx extracts JSON objects from free-form model output.
package jsonx

import "errors"

// ErrNoObject is returned when the text contains no balanced JSON object.
var ErrNoObject = errors.New("no json object found")

// ExtractObject returns the first balanced JSON object embedded in text.
// Models often wrap their JSON in commentary or markdown fences; this scans
// for the first '{' and tracks brace depth, ignoring braces inside string
// literals, until the object closes. The returned slice is the raw object
// text, ready for json.Unmarshal.
func ExtractObject(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range text {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", ErrNoObject
}
