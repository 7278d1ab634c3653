// Package seed loads YAML seed files and applies them to a node service.
//
// A seed file is checked against an embedded CUE schema before it is
// decoded, so malformed files are rejected without touching the store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nodetree/internal/tree"
)

//go:embed schema.cue
var schemaCUE string

//go:embed alphapc.yaml
var alphaPC []byte

// File is a parsed seed file.
type File struct {
	Nodes []Entry `yaml:"nodes"`
}

// Entry is one node with its properties and children.
type Entry struct {
	Name string `yaml:"name"`

	// Parent is the existing node path a top-level entry is created under.
	// Empty creates a root node. Ignored on children.
	Parent string `yaml:"parent,omitempty"`

	Properties map[string]float64 `yaml:"properties,omitempty"`
	Children   []Entry            `yaml:"children,omitempty"`
}

// Target is what Apply writes to. service.Service implements it.
type Target interface {
	CreateNode(ctx context.Context, name, parentPath string) (tree.Node, error)
	AddProperty(ctx context.Context, nodePath, key string, value float64) (tree.Property, error)
}

// Result summarizes an Apply.
type Result struct {
	// Roots are the paths of the top-level entries, in file order.
	Roots      []string
	Nodes      int
	Properties int
}

// Default returns the built-in AlphaPC seed.
func Default() *File {
	f, err := Parse(alphaPC)
	if err != nil {
		panic(fmt.Sprintf("built-in seed is invalid: %v", err))
	}
	return f
}

// Load reads and parses the seed file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse validates data against the seed schema and decodes it.
func Parse(data []byte) (*File, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}
	return &f, nil
}

// validate unifies the generic YAML document with #Seed.
func validate(raw any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile seed schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Seed"))
	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode seed document: %w", err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("seed does not match schema: %w", err)
	}
	return nil
}

// Apply creates every entry in f, depth-first in file order. Each node's
// properties are set right after it is created, in key order. Apply stops at
// the first error; nodes created before it remain.
func Apply(ctx context.Context, target Target, f *File) (Result, error) {
	var res Result
	for _, e := range f.Nodes {
		node, err := apply(ctx, target, e, e.Parent, &res)
		if err != nil {
			return res, err
		}
		res.Roots = append(res.Roots, node.Path)
	}
	return res, nil
}

func apply(ctx context.Context, target Target, e Entry, parentPath string, res *Result) (tree.Node, error) {
	node, err := target.CreateNode(ctx, e.Name, parentPath)
	if err != nil {
		return tree.Node{}, fmt.Errorf("seed node %q: %w", e.Name, err)
	}
	res.Nodes++

	keys := make([]string, 0, len(e.Properties))
	for k := range e.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := target.AddProperty(ctx, node.Path, k, e.Properties[k]); err != nil {
			return tree.Node{}, fmt.Errorf("seed property %s %q: %w", node.Path, k, err)
		}
		res.Properties++
	}

	for _, child := range e.Children {
		if _, err := apply(ctx, target, child, node.Path, res); err != nil {
			return tree.Node{}, err
		}
	}
	return node, nil
}
