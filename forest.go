// SPDX-License-Identifier: MIT
package treebuild

import "context"

// Forest is the result of a [Build]: the root nodes & an identifier lookup over every node.
//
// Synchronization is unnecessary, the type is read-only once [Build] returns.
type Forest[K comparable, V any] struct {
	layout *Layout

	// roots are ordered by the first appearance of their (missing) parent reference.
	roots List[K, V]

	// nodes & keys preserve the input record order.
	nodes map[K]*Node[K, V]
	keys  []K
}

func newForest[K comparable, V any](layout *Layout, capacity int) *Forest[K, V] {
	return &Forest[K, V]{
		layout: layout,
		nodes:  make(map[K]*Node[K, V], capacity),
		keys:   make([]K, 0, capacity),
	}
}

// add registers a new [Node] for a key.
func (f *Forest[K, V]) add(key K, value V) (node *Node[K, V]) {
	node = &Node[K, V]{layout: f.layout, key: key, value: value}
	f.nodes[key] = node
	f.keys = append(f.keys, key)

	return
}

// Layout retrieves the output shape used by the [Forest]'s nodes.
func (f *Forest[K, V]) Layout() Layout { return *f.layout }

// Roots lists the nodes without a resolved parent.
//
// The returned slice is shared with the Forest; do not modify it.
func (f *Forest[K, V]) Roots() List[K, V] { return f.roots }

// Len is the number of nodes in the [Forest].
func (f *Forest[K, V]) Len() int { return len(f.keys) }

// Node retrieves the [Node] for some key.
func (f *Forest[K, V]) Node(key K) (node *Node[K, V], ok bool) {
	node, ok = f.nodes[key]
	return
}

// Keys lists every identifier in input record order.
func (f *Forest[K, V]) Keys() (keys []K) {
	keys = make([]K, len(f.keys))
	copy(keys, f.keys)

	return
}

// Nodes lists every [Node] in input record order.
func (f *Forest[K, V]) Nodes() (nodes List[K, V]) {
	nodes = make(List[K, V], len(f.keys))
	for index, key := range f.keys {
		nodes[index] = f.nodes[key]
	}

	return
}

// Walk performs breadth-first traversal over all trees of the [Forest], level by level.
//
// Roots form the first level. The channel is closed once the walk completes.
func (f *Forest[K, V]) Walk(ctx context.Context, traverseChan chan TraverseComm[K, V]) {
	queue := make(List[K, V], len(f.roots))
	copy(queue, f.roots)

	walk(ctx, queue, traverseChan)
}

// Levels lists the [Forest]'s nodes by level, roots first.
func (f *Forest[K, V]) Levels(ctx context.Context) (levels LevelList[K, V], err error) {
	traverseChan := make(chan TraverseComm[K, V], traverseBufferSize)
	go f.Walk(ctx, traverseChan)

	return collectLevels(traverseChan)
}

// Leaves returns the terminal nodes reachable from the [Forest]'s roots.
func (f *Forest[K, V]) Leaves(ctx context.Context) (termNodes List[K, V], err error) {
	traverseChan := make(chan TraverseComm[K, V], traverseBufferSize)
	go f.Walk(ctx, traverseChan)

	return collectLeaves(traverseChan)
}
