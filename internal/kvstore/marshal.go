package kvstore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/nodetree/internal/tree"
)

// encodeJSON serializes v without HTML escaping so names containing <, > or
// & are stored byte-for-byte.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder adds a trailing newline.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func marshalNode(n tree.Node) ([]byte, error) {
	data, err := encodeJSON(n)
	if err != nil {
		return nil, fmt.Errorf("marshal node: %w", err)
	}
	return data, nil
}

func unmarshalNode(data []byte) (tree.Node, error) {
	var n tree.Node
	if err := json.Unmarshal(data, &n); err != nil {
		return tree.Node{}, fmt.Errorf("unmarshal node: %w", err)
	}
	return n, nil
}

func marshalProperty(p tree.Property) ([]byte, error) {
	data, err := encodeJSON(p)
	if err != nil {
		return nil, fmt.Errorf("marshal property: %w", err)
	}
	return data, nil
}

func unmarshalProperty(data []byte) (tree.Property, error) {
	var p tree.Property
	if err := json.Unmarshal(data, &p); err != nil {
		return tree.Property{}, fmt.Errorf("unmarshal property: %w", err)
	}
	return p, nil
}
