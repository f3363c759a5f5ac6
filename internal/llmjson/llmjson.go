// Package llmjson decodes structured JSON out of free-form collaborator
// output. Models frequently wrap the payload in prose or markdown fences, so
// callers first extract the outermost object and then decode it into a typed
// struct, treating any failure as "no structured answer".
package llmjson

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoObject is returned when the text contains no decodable JSON object.
var ErrNoObject = errors.New("no JSON object found in output")

// ExtractObject returns the first balanced {...} region of text, skipping
// markdown code fences and surrounding prose. It does not validate the
// content beyond brace balancing inside string-literal awareness.
func ExtractObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoObject
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
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

// Decode extracts the first JSON object from raw and unmarshals it into v.
func Decode(raw string, v any) error {
	obj, err := ExtractObject(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return err
	}
	return nil
}

// DecodeStrict behaves like Decode but rejects unknown fields, for payloads
// where shape drift should be treated as a miss.
func DecodeStrict(raw string, v any) error {
	obj, err := ExtractObject(raw)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
