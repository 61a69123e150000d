package sections

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Section is one heading and its trimmed body.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Map is an ordered heading → body mapping. The zero value is empty and ready
// to use. Methods that change content return a new Map.
type Map struct {
	entries []Section
	index   map[string]int
}

// FromEntries builds a Map from sections in order. A repeated heading keeps
// its first position and takes the last body.
func FromEntries(entries ...Section) Map {
	var m Map
	for _, s := range entries {
		m.put(s.Heading, s.Body)
	}
	return m
}

func (m *Map) put(heading, body string) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[heading]; ok {
		m.entries[i].Body = body
		return
	}
	m.index[heading] = len(m.entries)
	m.entries = append(m.entries, Section{Heading: heading, Body: body})
}

// Len returns the number of sections.
func (m Map) Len() int { return len(m.entries) }

// Get returns the body stored under heading.
func (m Map) Get(heading string) (string, bool) {
	i, ok := m.index[heading]
	if !ok {
		return "", false
	}
	return m.entries[i].Body, true
}

// Has reports whether heading was seen.
func (m Map) Has(heading string) bool {
	_, ok := m.index[heading]
	return ok
}

// Headings returns the headings in order.
func (m Map) Headings() []string {
	out := make([]string, len(m.entries))
	for i, s := range m.entries {
		out[i] = s.Heading
	}
	return out
}

// Entries returns a copy of the sections in order.
func (m Map) Entries() []Section {
	return append([]Section(nil), m.entries...)
}

// With returns a copy of m with heading set to body.
func (m Map) With(heading, body string) Map {
	out := FromEntries(m.entries...)
	out.put(heading, body)
	return out
}

// MarshalJSON writes the map as a JSON object in heading order.
func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(s.Heading)
		v, _ := json.Marshal(s.Body)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of string bodies keeping key order.
func (m *Map) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = Map{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("sections: expected JSON object")
	}
	var out Map
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		heading, _ := kt.(string)
		var body string
		if err := dec.Decode(&body); err != nil {
			return fmt.Errorf("sections: %q: %w", heading, err)
		}
		out.put(heading, body)
	}
	*m = out
	return nil
}
