// SPDX-License-Identifier: MIT

// Package treebuild links flat records into a forest through parent or child references.
package treebuild

import (
	"context"
	"errors"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

type (
	// KeyFunc obtains a record's identifier.
	KeyFunc[T any, K comparable] func(item T) K

	// ParentKeyFunc obtains a record's parent identifier, ok is false for records without one.
	ParentKeyFunc[T any, K comparable] func(item T) (parent K, ok bool)

	// ChildKeysFunc obtains a record's ordered child identifiers.
	ChildKeysFunc[T any, K comparable] func(item T) ([]K, error)

	// ValueFunc maps a record to the value stored in its [Node].
	ValueFunc[T, V any] func(item T) V

	// Config defines how records are read into a [Forest].
	//
	// Exactly one of ParentKey & ChildKeys is required.
	Config[T any, K comparable, V any] struct {
		Key       KeyFunc[T, K]
		ParentKey ParentKeyFunc[T, K]
		ChildKeys ChildKeysFunc[T, K]

		// Value defaults to the record itself, which requires T to be assignable to V.
		Value ValueFunc[T, V]

		Layout Layout

		// ValidateTree rejects cycles & nodes reachable via multiple paths.
		ValidateTree bool

		// ValidateReferences rejects parent or child references that match no record.
		ValidateReferences bool

		// RootParents lists parent keys accepted for roots in parent mode; a non-empty list
		// implies ValidateReferences.
		RootParents []K
	}

	// Builder generates a [Forest] from records.
	Builder[T any, K comparable, V any] struct {
		settings

		cfg    Config[T, K, V]
		layout Layout
	}

	// BuildOption defines the [Builder] functional option type.
	BuildOption func(*settings)

	settings struct {
		debug  bool
		logger logrus.FieldLogger
	}
)

// Forest building errors.
var (
	ErrBuildForest = errors.New("failed to build forest")

	ErrConfiguration        = errors.New("invalid configuration")
	ErrDuplicateIdentifier  = errors.New("duplicate identifier")
	ErrReferentialIntegrity = errors.New("referential integrity violation")
	ErrConflict             = errors.New("conflicting parent assignment")

	ErrPanicked = errors.New("recovery from panic")
)

// WithLogger configures the logger option.
func WithLogger(logger logrus.FieldLogger) BuildOption {
	return func(s *settings) { s.logger = logger }
}

// WithDebug configures the debug option.
func WithDebug(debug bool) BuildOption {
	return func(s *settings) { s.debug = debug }
}

// Validate checks the accessor combination & populates the [Layout] defaults.
func (c *Config[T, K, V]) Validate() error {
	switch {
	case c.Key == nil:
		return fmt.Errorf("%w: a key accessor is required", ErrConfiguration)
	case c.ParentKey != nil && c.ChildKeys != nil:
		return fmt.Errorf("%w: parent & child key accessors cannot be used together", ErrConfiguration)
	case c.ParentKey == nil && c.ChildKeys == nil:
		return fmt.Errorf("%w: either a parent or a child key accessor is required", ErrConfiguration)
	}

	return c.Layout.Validate()
}

// NewBuilder instantiates a [Builder].
//
// The Config is copied; later changes to it do not affect the Builder.
func NewBuilder[T any, K comparable, V any](cfg *Config[T, K, V], options ...BuildOption) *Builder[T, K, V] {
	b := &Builder[T, K, V]{settings: settings{logger: logrus.New()}}
	if cfg != nil {
		b.cfg = *cfg
	}

	for _, opt := range options {
		opt(&b.settings)
	}

	return b
}

// Build generates a [Forest] from records using cfg.
func Build[T any, K comparable, V any](ctx context.Context, items []T, cfg *Config[T, K, V], options ...BuildOption) (*Forest[K, V], error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: %w: missing config", ErrBuildForest, ErrConfiguration)
	}

	return NewBuilder(cfg, options...).Build(ctx, items)
}

// Build generates a [Forest] from records.
//
// Records are read once, in order; the result is nil on any error.
func (b *Builder[T, K, V]) Build(ctx context.Context, items []T) (f *Forest[K, V], err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrBuildForest, err)
		}
	}()

	var st *buildState[K, V]
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, r)
		}

		if err != nil {
			// Skip expensive operation if not debug.
			if b.debug && st != nil {
				b.logger.Debugf("built keys: %s \npending references: %s", spew.Sprint(st.forest.keys), spew.Sprint(st.pendingKeys()))
			}

			f = nil
		}
	}()

	select {
	case <-ctx.Done():
		err = ctx.Err()
		return
	default:
	}

	if err = b.cfg.Validate(); err != nil {
		return
	}
	b.layout = b.cfg.Layout

	// Every Forest owns its Layout.
	layout := b.layout
	st = newBuildState[K, V](&layout, len(items))
	if b.cfg.ParentKey != nil {
		err = b.linkParents(st, items)
	} else {
		err = b.linkChildren(st, items)
	}
	if err != nil {
		return
	}

	if b.cfg.ValidateTree || b.layout.Depths() {
		if err = validate(st.forest, b.layout.Depths()); err != nil {
			return
		}
	}

	if b.debug {
		b.logger.Debugf("built forest: %d node(s), %d root(s)", st.forest.Len(), len(st.forest.roots))
	}
	f = st.forest

	return
}

// node materializes the [Node] for a record.
func (b *Builder[T, K, V]) node(st *buildState[K, V], item T) (node *Node[K, V], err error) {
	key := b.cfg.Key(item)
	if _, ok := st.forest.nodes[key]; ok {
		err = fmt.Errorf("%w: (%v)", ErrDuplicateIdentifier, key)
		return
	}

	var value V
	if b.cfg.Value != nil {
		value = b.cfg.Value(item)
	} else {
		var ok bool
		if value, ok = any(item).(V); !ok {
			err = fmt.Errorf("%w: record (%v) of type %T needs a value resolver", ErrConfiguration, key, item)
			return
		}
	}

	node = st.forest.add(key, value)

	return
}

// linkParents builds the forest from parent references.
func (b *Builder[T, K, V]) linkParents(st *buildState[K, V], items []T) (err error) {
	linkParent := b.layout.ParentLinks()

	for _, item := range items {
		var node *Node[K, V]
		if node, err = b.node(st, item); err != nil {
			return
		}

		parentKey, hasParent := b.cfg.ParentKey(item)
		switch parent, ok := st.forest.nodes[parentKey]; {
		case !hasParent:
			st.wait(parentKey, false, node)
		case ok:
			parent.addChild(node, linkParent)
		default:
			// Parent not built yet, it may never be.
			st.wait(parentKey, true, node)
		}

		// Adopt earlier records waiting for this one.
		if pending, ok := st.waiting[node.key]; ok {
			for _, child := range pending.nodes {
				node.addChild(child, linkParent)
			}
			pending.resolved = true
			delete(st.waiting, node.key)
		}
	}

	validRefs := b.cfg.ValidateReferences || len(b.cfg.RootParents) > 0
	rootParents := make(map[K]struct{}, len(b.cfg.RootParents))
	for _, key := range b.cfg.RootParents {
		rootParents[key] = struct{}{}
	}

	// Children of unresolved parents become the roots.
	for _, pending := range st.buckets {
		if pending.resolved {
			continue
		}

		if validRefs && pending.hasParent {
			if _, ok := rootParents[pending.parent]; !ok {
				return fmt.Errorf("%w: parent (%v) of %v does not exist", ErrReferentialIntegrity, pending.parent, pending.nodes.Keys())
			}
		}

		st.forest.roots = append(st.forest.roots, pending.nodes...)
	}

	if b.debug {
		b.logger.Debugf("resolved %d parent bucket(s)", len(st.buckets))
	}

	return
}

// linkChildren builds the forest from child references.
func (b *Builder[T, K, V]) linkChildren(st *buildState[K, V], items []T) (err error) {
	linkParent := b.layout.ParentLinks()

	for _, item := range items {
		var node *Node[K, V]
		if node, err = b.node(st, item); err != nil {
			return
		}

		var childKeys []K
		if childKeys, err = b.cfg.ChildKeys(item); err != nil {
			if !errors.Is(err, ErrConfiguration) {
				err = fmt.Errorf("%w: %w", ErrConfiguration, err)
			}
			return fmt.Errorf("children of (%v): %w", node.key, err)
		}

		declared := make(map[K]struct{}, len(childKeys))
		for _, childKey := range childKeys {
			if _, ok := declared[childKey]; ok {
				continue
			}
			declared[childKey] = struct{}{}

			if child, ok := st.forest.nodes[childKey]; ok {
				if err = st.claim(node, child, linkParent); err != nil {
					return
				}
				continue
			}

			if slot, ok := st.awaited[childKey]; ok {
				return fmt.Errorf("%w: multiple parents reference the same unresolved child (%v): (%v), (%v)",
					ErrConflict, childKey, slot.parent.key, node.key)
			}
			st.reserve(node, childKey)
		}

		// Fill the slot reserved by an earlier parent.
		if slot, ok := st.awaited[node.key]; ok {
			slot.parent.children[slot.index] = node
			if linkParent {
				node.parent = slot.parent
			}
			st.claimed[node] = struct{}{}
			delete(st.awaited, node.key)
		}
	}

	if len(st.awaited) > 0 {
		if b.cfg.ValidateReferences {
			for _, req := range st.requests {
				if slot, ok := st.awaited[req.child]; ok && slot.parent == req.parent {
					return fmt.Errorf("%w: child (%v) of (%v) does not exist", ErrReferentialIntegrity, req.child, req.parent.key)
				}
			}
		}

		if b.debug {
			b.logger.Debugf("pruning %d unresolved child reference(s)", len(st.awaited))
		}
		st.prune()
	}

	for _, key := range st.forest.keys {
		node := st.forest.nodes[key]
		if _, ok := st.claimed[node]; !ok {
			st.forest.roots = append(st.forest.roots, node)
		}
	}

	return
}
