// SPDX-License-Identifier: MIT
package treebuild

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Layout defines the output field names of a [Node].
//
// A zero field takes its default; [Omit] drops the field.
type Layout struct {
	// ValueKey holds the node's value; [Omit] merges the value's own fields into the node.
	ValueKey string
	// ParentKey holds the parent's key; [Omit] also disables [Node.Parent] references.
	ParentKey string
	// ChildrenKey holds the children, absent when a node has none.
	ChildrenKey string
	// DepthKey holds the node's depth; any value other than [Omit] enables depth labelling & tree
	// validation.
	DepthKey string
}

const (
	// Omit disables a [Layout] field.
	Omit = "-"

	DefaultValueKey    = "value"
	DefaultParentKey   = "parent"
	DefaultChildrenKey = "children"
)

// Encoding errors.
var (
	ErrUnmergeableValue = errors.New("value cannot be merged into the node; it does not encode to an object")
)

// DefLayout obtains the default [Layout].
func DefLayout() Layout {
	return Layout{
		ValueKey:    DefaultValueKey,
		ParentKey:   DefaultParentKey,
		ChildrenKey: DefaultChildrenKey,
		DepthKey:    Omit,
	}
}

// Validate populates missing Layout entries with defaults & rejects fields sharing a name.
func (l *Layout) Validate() error {
	if l.ValueKey == "" {
		l.ValueKey = DefaultValueKey
	}
	if l.ParentKey == "" {
		l.ParentKey = DefaultParentKey
	}
	if l.ChildrenKey == "" || l.ChildrenKey == Omit {
		l.ChildrenKey = DefaultChildrenKey
	}
	if l.DepthKey == "" {
		l.DepthKey = Omit
	}

	fields := [...]struct{ name, key string }{
		{"value", l.ValueKey},
		{"parent", l.ParentKey},
		{"children", l.ChildrenKey},
		{"depth", l.DepthKey},
	}
	seen := make(map[string]string, len(fields))
	for _, field := range fields {
		if field.key == Omit {
			continue
		}
		if other, ok := seen[field.key]; ok {
			return fmt.Errorf("%w: layout %s & %s fields share the key %q", ErrConfiguration, other, field.name, field.key)
		}
		seen[field.key] = field.name
	}

	return nil
}

// ParentLinks reports whether nodes reference their parent.
func (l Layout) ParentLinks() bool { return l.ParentKey != Omit }

// Depths reports whether nodes are labelled with their depth.
func (l Layout) Depths() bool { return l.DepthKey != Omit }

// MarshalJSON encodes a [Node] & its subtree as an object shaped by the [Forest]'s [Layout].
//
// The parent is encoded by key.
func (n *Node[K, V]) MarshalJSON() ([]byte, error) {
	obj, err := n.encode(make(map[*Node[K, V]]struct{}))
	if err != nil {
		return nil, err
	}

	return json.Marshal(obj)
}

// MarshalJSON encodes a [Forest] as an array of its root trees.
func (f *Forest[K, V]) MarshalJSON() ([]byte, error) {
	out := make([]map[string]any, len(f.roots))
	for index, root := range f.roots {
		obj, err := root.encode(make(map[*Node[K, V]]struct{}))
		if err != nil {
			return nil, err
		}
		out[index] = obj
	}

	return json.Marshal(out)
}

// encode converts a [Node] to a generic object, path holds the ancestors being encoded.
func (n *Node[K, V]) encode(path map[*Node[K, V]]struct{}) (obj map[string]any, err error) {
	if _, ok := path[n]; ok {
		return nil, fmt.Errorf("%w: (%v) is its own ancestor", ErrCycle, n.key)
	}
	path[n] = struct{}{}
	defer delete(path, n)

	layout := n.layout
	if layout == nil {
		def := DefLayout()
		layout = &def
	}

	obj = make(map[string]any)
	if layout.ValueKey != Omit {
		obj[layout.ValueKey] = n.value
	} else if err = mergeValue(obj, n.value); err != nil {
		return nil, fmt.Errorf("(%v) %w", n.key, err)
	}

	// Structural fields replace merged fields of the same name.
	delete(obj, layout.ChildrenKey)
	if layout.ParentKey != Omit {
		delete(obj, layout.ParentKey)
		if n.parent != nil {
			obj[layout.ParentKey] = n.parent.key
		}
	}
	if layout.DepthKey != Omit {
		delete(obj, layout.DepthKey)
		if n.hasDepth {
			obj[layout.DepthKey] = n.depth
		}
	}

	if len(n.children) < 1 {
		return
	}

	children := make([]map[string]any, len(n.children))
	for index, child := range n.children {
		if children[index], err = child.encode(path); err != nil {
			return nil, err
		}
	}
	obj[layout.ChildrenKey] = children

	return
}

// mergeValue copies the top-level fields of value's JSON encoding into obj.
func mergeValue(obj map[string]any, value any) (err error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}

	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return
	}
	if len(raw) < 1 || raw[0] != '{' {
		return ErrUnmergeableValue
	}

	fields := make(map[string]json.RawMessage)
	if err = json.Unmarshal(raw, &fields); err != nil {
		return
	}
	for k, v := range fields {
		obj[k] = v
	}

	return
}
