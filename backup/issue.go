package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Issue is an issue exactly as the tracker returned it,
// plus the comments collected for it.
type Issue struct {
	// Number identifies the issue within its project;
	// the "iid" of GitLab issues.
	Number int
	// Raw is the tracker's JSON object for the issue.
	Raw      json.RawMessage
	Comments []json.RawMessage
}

// MarshalJSON returns the tracker's object with a "comments" array added.
// Fields keep their original order and values.
// An existing "comments" field is replaced in place;
// otherwise the array is the last field.
func (is Issue) MarshalJSON() ([]byte, error) {
	fields, err := objectFields(is.Raw)
	if err != nil {
		return nil, fmt.Errorf("issue %d: %w", is.Number, err)
	}
	comments := &bytes.Buffer{}
	comments.WriteByte('[')
	for i, c := range is.Comments {
		if i > 0 {
			comments.WriteByte(',')
		}
		if len(c) == 0 {
			c = json.RawMessage("null")
		}
		comments.Write(c)
	}
	comments.WriteByte(']')

	replaced := false
	for i := range fields {
		if fields[i].key == "comments" {
			fields[i].value = comments.Bytes()
			replaced = true
		}
	}
	if !replaced {
		fields = append(fields, field{"comments", comments.Bytes()})
	}

	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(f.value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type field struct {
	key   string
	value json.RawMessage
}

// objectFields splits a JSON object into its fields, in order.
func objectFields(obj json.RawMessage) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("not a JSON object")
	}
	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		fields = append(fields, field{key, v})
	}
	return fields, nil
}

// Encode writes issues to w as a JSON array indented by two spaces.
// HTML characters are left unescaped.
func Encode(w io.Writer, issues []Issue) error {
	if issues == nil {
		issues = []Issue{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(issues)
}

// Write replaces the contents of the named file with the encoded issues.
// The file is written once, only after encoding has succeeded.
func Write(name string, issues []Issue) error {
	buf := &bytes.Buffer{}
	if err := Encode(buf, issues); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return os.WriteFile(name, buf.Bytes(), 0o644)
}
