package frontmatter

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Emit serializes r as YAML lines in key order, without delimiters. Empty
// strings are always written double-quoted (key: "") so they are neither
// dropped nor read back as null. An empty record yields "".
func Emit(r *Record) (string, error) {
	if r.Len() == 0 {
		return "", nil
	}
	node, err := encodeRecord(r)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return "", fmt.Errorf("frontmatter: emit: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("frontmatter: emit: %w", err)
	}
	return buf.String(), nil
}

// Wrap emits r between --- delimiter lines. An empty record yields "".
func Wrap(r *Record) (string, error) {
	out, err := Emit(r)
	if err != nil || out == "" {
		return out, err
	}
	return delim + "\n" + out + delim + "\n", nil
}

func encodeRecord(r *Record) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range r.Keys() {
		v, _ := r.Get(k)
		val, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("frontmatter: encode %q: %w", k, err)
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}

func encodeValue(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case string:
		if t == "" {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "", Style: yaml.DoubleQuotedStyle}, nil
		}
	case float64:
		return floatNode(t), nil
	case *Record:
		if t == nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
		}
		return encodeRecord(t)
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			n, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			n, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	}
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return &n, nil
}

// floatNode keeps whole-number floats distinguishable from ints ("2.0", not "2").
func floatNode(f float64) *yaml.Node {
	var text string
	switch {
	case math.IsNaN(f):
		text = ".nan"
	case math.IsInf(f, 1):
		text = ".inf"
	case math.IsInf(f, -1):
		text = "-.inf"
	default:
		text = strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.ContainsAny(text, ".e") {
			text += ".0"
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: text}
}
