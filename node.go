// SPDX-License-Identifier: MIT
package treebuild

import (
	"context"
	"errors"
)

type (
	// Node holds one input record of a [Forest] & its links.
	//
	// Synchronization is unnecessary, the type is read-only once [Build] returns.
	Node[K comparable, V any] struct {
		// layout is shared by all nodes of a Forest.
		layout *Layout

		// key is the record's identifier.
		key K

		// value contains the node's data.
		value V

		// parent contains a reference to the upper Node.
		//
		// Value is nil for roots & when parent links are omitted.
		parent *Node[K, V]

		// children holds references to nodes at a lower level, in link order.
		children List[K, V]

		depth    int
		hasDepth bool
	}

	// List is a type wrapper for []*Node.
	List[K comparable, V any] []*Node[K, V]

	// LevelList holds a [List] per tree level.
	LevelList[K comparable, V any] []List[K, V]

	// TraverseComm defines a channel message between walk operations & their callers.
	TraverseComm[K comparable, V any] struct {
		node     *Node[K, V]
		err      error
		newPeers bool
	}
)

const traverseBufferSize = 10

// Errors encountered when querying a built Forest.
var (
	ErrNoChildren = errors.New("lacks children")
	ErrNoLeaves   = errors.New("lacks leaves")
)

// Key retrieves the [Node]'s identifier.
func (n *Node[K, V]) Key() K { return n.key }

// Value retrieves the [Node]'s data.
func (n *Node[K, V]) Value() V { return n.value }

// Parent retrieves a reference to the [Node]'s parent.
func (n *Node[K, V]) Parent() *Node[K, V] { return n.parent }

// Children lists the immediate children of a [Node].
//
// The returned slice is shared with the Node; do not modify it.
func (n *Node[K, V]) Children() List[K, V] { return n.children }

// Depth retrieves the [Node]'s distance from its root, ok is false when depths were not
// requested.
func (n *Node[K, V]) Depth() (depth int, ok bool) { return n.depth, n.hasDepth }

// Node retrieves the [Node] carried by a [TraverseComm].
func (t TraverseComm[K, V]) Node() *Node[K, V] { return t.node }

// Err retrieves the walk error carried by a [TraverseComm].
func (t TraverseComm[K, V]) Err() error { return t.err }

// NewPeers reports whether the carried [Node] starts a new level.
func (t TraverseComm[K, V]) NewPeers() bool { return t.newPeers }

func (n *Node[K, V]) addChild(child *Node[K, V], linkParent bool) {
	n.children = append(n.children, child)
	if linkParent {
		child.parent = n
	}
}

// AllChildren lists immediate and children-of children for a [Node], level by level.
func (n *Node[K, V]) AllChildren(ctx context.Context) (children List[K, V], err error) {
	levels, err := n.AllChildrenByLevel(ctx)
	if err != nil {
		return
	}

	for _, peers := range levels {
		children = append(children, peers...)
	}

	return
}

// AllChildrenByLevel lists immediate and children-of children for a [Node] by level.
func (n *Node[K, V]) AllChildrenByLevel(ctx context.Context) (children LevelList[K, V], err error) {
	traverseChan := make(chan TraverseComm[K, V], traverseBufferSize)
	go n.Walk(ctx, traverseChan)

	if children, err = collectLevels(traverseChan); err != nil {
		return
	}

	if len(children) > 0 {
		// Omit self from the list.
		children = children[1:]
	}

	if len(children) < 1 {
		err = ErrNoChildren
	}

	return
}

// Leaves returns the terminal nodes below (or including) a [Node].
func (n *Node[K, V]) Leaves(ctx context.Context) (termNodes List[K, V], err error) {
	traverseChan := make(chan TraverseComm[K, V], traverseBufferSize)
	go n.Walk(ctx, traverseChan)

	return collectLeaves(traverseChan)
}

// Walk performs breadth-first traversal from a [Node], pushing nodes to its channel argument.
//
// The channel is closed once the walk completes. Nodes already sent are skipped so an
// unvalidated cyclic structure still terminates.
// A context.Context is used to terminate the walk operation.
func (n *Node[K, V]) Walk(ctx context.Context, traverseChan chan TraverseComm[K, V]) {
	if n == nil {
		close(traverseChan)
		return
	}

	walk(ctx, List[K, V]{n}, traverseChan)
}

// walk performs level-order traversal over a queue seeded with the given nodes.
func walk[K comparable, V any](ctx context.Context, queue List[K, V], traverseChan chan TraverseComm[K, V]) {
	defer close(traverseChan)

	seen := make(map[*Node[K, V]]struct{}, len(queue))

	// Use a var for front to ensure the outer scope queue is modified.
	var front *Node[K, V]

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			traverseChan <- TraverseComm[K, V]{err: ctx.Err()}
			return
		default:
		}

		newPeers := true
		for queueLen := len(queue); queueLen > 0; queueLen-- {
			front, queue = queue[0], queue[1:]
			if _, ok := seen[front]; ok {
				continue
			}
			seen[front] = struct{}{}

			traverseChan <- TraverseComm[K, V]{node: front, newPeers: newPeers}
			newPeers = false

			queue = append(queue, front.children...)
		}
	}
}

func collectLevels[K comparable, V any](traverseChan chan TraverseComm[K, V]) (levels LevelList[K, V], err error) {
	var peers List[K, V]
	for resl := range traverseChan {
		if err == nil && resl.err != nil {
			err = resl.err
		}
		if err != nil {
			// Drain to release the walker.
			continue
		}

		if !resl.newPeers {
			peers = append(peers, resl.node)
			continue
		}

		if len(peers) > 0 {
			levels = append(levels, peers)
		}
		peers = List[K, V]{resl.node}
	}

	if err != nil {
		levels = nil
		return
	}

	if len(peers) > 0 {
		levels = append(levels, peers)
	}

	return
}

func collectLeaves[K comparable, V any](traverseChan chan TraverseComm[K, V]) (termNodes List[K, V], err error) {
	for resl := range traverseChan {
		if err == nil && resl.err != nil {
			err = resl.err
		}
		if err != nil {
			continue
		}

		if len(resl.node.children) < 1 {
			termNodes = append(termNodes, resl.node)
		}
	}

	if err != nil {
		termNodes = nil
		return
	}

	if len(termNodes) < 1 {
		err = ErrNoLeaves
	}

	return
}

// Keys returns the identifiers of a [List].
func (l List[K, V]) Keys() (keys []K) {
	keys = make([]K, len(l))
	for index := range l {
		keys[index] = l[index].key
	}

	return
}

// Keys returns the identifiers of a [LevelList], level by level.
func (l LevelList[K, V]) Keys() (keys [][]K) {
	keys = make([][]K, len(l))
	for index := range l {
		keys[index] = l[index].Keys()
	}

	return
}
