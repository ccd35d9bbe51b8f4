package raml

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Path addresses a node by the mapping keys and sequence indices leading to it.
type Path []string

func (p Path) String() string { return strings.Join(p, "/") }

// Child returns a copy of p extended by seg.
func (p Path) Child(seg string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

// Index returns a copy of p extended by a sequence index.
func (p Path) Index(i int) Path { return p.Child(strconv.Itoa(i)) }

// Parent returns p without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// Last returns the final segment or "" for the root.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Contains reports whether any segment equals seg.
func (p Path) Contains(seg string) bool {
	for _, s := range p {
		if s == seg {
			return true
		}
	}
	return false
}

// Document is one RAML description flowing through the pipeline.
type Document struct {
	Name    string     // identity used in errors and for output naming
	BaseDir string     // location that relative includes and schema files resolve against
	Root    *yaml.Node // mapping node
}

// NewDocument wraps root, unwrapping a yaml document node if needed.
func NewDocument(name, baseDir string, root *yaml.Node) *Document {
	if root != nil && root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	return &Document{Name: name, BaseDir: baseDir, Root: root}
}

// Visitor is invoked for every node in pre-order. parent is nil for the root.
// Returning false skips the node's children.
type Visitor func(path Path, node, parent *yaml.Node) bool

// Walk traverses the tree rooted at root in document order.
func Walk(root *yaml.Node, fn Visitor) {
	if root == nil {
		return
	}
	walk(nil, root, nil, fn)
}

func walk(path Path, node, parent *yaml.Node, fn Visitor) {
	if !fn(path, node, parent) {
		return
	}
	switch node.Kind {
	case yaml.DocumentNode:
		for _, c := range node.Content {
			walk(path, c, node, fn)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			walk(path.Child(node.Content[i].Value), node.Content[i+1], node, fn)
		}
	case yaml.SequenceNode:
		for i, c := range node.Content {
			walk(path.Index(i), c, node, fn)
		}
	}
}

// Lookup returns the node at path or nil.
func Lookup(root *yaml.Node, path Path) *yaml.Node {
	node := root
	for _, seg := range path {
		if node == nil {
			return nil
		}
		switch node.Kind {
		case yaml.MappingNode:
			node = MappingValue(node, seg)
		case yaml.SequenceNode:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node.Content) {
				return nil
			}
			node = node.Content[i]
		default:
			return nil
		}
	}
	return node
}

// MappingIndex returns the Content index of key in mapping m, or -1.
func MappingIndex(m *yaml.Node, key string) int {
	if m == nil || m.Kind != yaml.MappingNode {
		return -1
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i
		}
	}
	return -1
}

// MappingValue returns the value stored under key, or nil.
func MappingValue(m *yaml.Node, key string) *yaml.Node {
	if i := MappingIndex(m, key); i >= 0 {
		return m.Content[i+1]
	}
	return nil
}

// MappingString returns the scalar value under key.
func MappingString(m *yaml.Node, key string) (string, bool) {
	v := MappingValue(m, key)
	if v == nil || v.Kind != yaml.ScalarNode || v.Tag == "!!null" {
		return "", false
	}
	return v.Value, true
}

// SetMappingValue replaces the value under key or appends a new pair.
func SetMappingValue(m *yaml.Node, key string, v *yaml.Node) {
	if i := MappingIndex(m, key); i >= 0 {
		m.Content[i+1] = v
		return
	}
	m.Content = append(m.Content, StringNode(key), v)
}

// DeleteMappingKey removes key from m and reports whether it was present.
func DeleteMappingKey(m *yaml.Node, key string) bool {
	i := MappingIndex(m, key)
	if i < 0 {
		return false
	}
	m.Content = append(m.Content[:i:i], m.Content[i+2:]...)
	return true
}

// StringNode builds a string scalar. Multi-line values use literal style.
func StringNode(s string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if strings.Contains(s, "\n") {
		n.Style = yaml.LiteralStyle
	}
	return n
}

// SetString rewrites a scalar node in place to hold s.
func SetString(n *yaml.Node, s string) {
	n.Kind = yaml.ScalarNode
	n.Tag = "!!str"
	n.Value = s
	n.Content = nil
	n.Style = 0
	if strings.Contains(s, "\n") {
		n.Style = yaml.LiteralStyle
	}
}

// IsString reports whether n is a string scalar.
func IsString(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.ScalarNode && (n.Tag == "!!str" || n.ShortTag() == "!!str")
}

// MappingNode returns an empty mapping.
func MappingNode() *yaml.Node { return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"} }

// SequenceNode returns a sequence holding items.
func SequenceNode(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

// Clone deep-copies n.
func Clone(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	out := *n
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return Clone(n.Alias)
	}
	if len(n.Content) > 0 {
		out.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			out.Content[i] = Clone(c)
		}
	}
	return &out
}

// EncodeYAML serializes n with two-space indentation.
func EncodeYAML(n *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}
