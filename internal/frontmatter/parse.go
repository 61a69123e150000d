package frontmatter

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// ErrInvalidYAML is returned when a delimited block exists but is not a YAML
// mapping.
var ErrInvalidYAML = errors.New("frontmatter: invalid yaml")

// Split separates a leading ---delimited block from the rest of the document.
// Leading blank lines and CRLF line endings are tolerated. When there is no
// complete block, ok is false and body is the whole text.
func Split(text string) (block, body string, ok bool) {
	trimmed := strings.TrimLeft(text, "\r\n")
	if !strings.HasPrefix(trimmed, delim) {
		return "", text, false
	}
	rest := trimmed[len(delim):]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 || strings.TrimSpace(rest[:nl]) != "" {
		return "", text, false
	}
	rest = rest[nl+1:]

	for pos := 0; pos <= len(rest); {
		line := rest[pos:]
		next := len(rest) + 1
		if end := strings.IndexByte(line, '\n'); end >= 0 {
			line = line[:end]
			next = pos + end + 1
		}
		if strings.TrimRight(line, " \t\r") == delim {
			block = rest[:pos]
			if next <= len(rest) {
				body = rest[next:]
			}
			return block, body, true
		}
		pos = next
	}
	return "", text, false
}

// Parse extracts the frontmatter of a document. It returns (nil, nil) when the
// document does not start with a delimited block.
func Parse(text string) (*Record, error) {
	block, _, ok := Split(text)
	if !ok {
		return nil, nil
	}
	return Decode(block)
}

// Decode parses the YAML between the delimiters into an ordered record.
// Blank values decode to nil, not to an absent key.
func Decode(block string) (*Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return NewRecord(), nil
		}
		root = root.Content[0]
	}
	switch {
	case root.Kind == 0:
		return NewRecord(), nil
	case root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null":
		return NewRecord(), nil
	case root.Kind != yaml.MappingNode:
		return nil, fmt.Errorf("%w: top level is not a mapping", ErrInvalidYAML)
	}
	return decodeMapping(root)
}

func decodeMapping(n *yaml.Node) (*Record, error) {
	rec := NewRecord()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		v, err := decodeNode(val)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key.Value, err)
		}
		rec.Set(key.Value, v)
	}
	return rec, nil
}

func decodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, nil
		}
		return decodeNode(n.Alias)
	case yaml.MappingNode:
		return decodeMapping(n)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := decodeNode(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		return decodeScalar(n)
	}
	return nil, nil
}

func decodeScalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int":
		var i int
		if err := n.Decode(&i); err == nil {
			return i, nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return n.Value, nil
		}
		return f, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		// Strings, timestamps and custom tags keep their literal text.
		return n.Value, nil
	}
}
