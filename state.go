// SPDX-License-Identifier: MIT
package treebuild

import "fmt"

type (
	// buildState holds the forward-reference bookkeeping of a single [Builder.Build].
	buildState[K comparable, V any] struct {
		forest *Forest[K, V]

		// waiting maps a missing parent key to the nodes declaring it (parent mode).
		waiting map[K]*bucket[K, V]
		// buckets preserves the order in which buckets were opened; orphans included.
		buckets []*bucket[K, V]
		// orphans holds nodes declaring no parent.
		orphans *bucket[K, V]

		// awaited maps a missing child key to its reserved slot (child mode).
		awaited map[K]slot[K, V]
		// requests preserves the order in which slots were reserved.
		requests []request[K, V]
		// claimed holds nodes linked as a child.
		claimed map[*Node[K, V]]struct{}
	}

	bucket[K comparable, V any] struct {
		parent    K
		hasParent bool
		resolved  bool
		nodes     List[K, V]
	}

	slot[K comparable, V any] struct {
		parent *Node[K, V]
		index  int
	}

	request[K comparable, V any] struct {
		parent *Node[K, V]
		child  K
	}
)

func newBuildState[K comparable, V any](layout *Layout, capacity int) *buildState[K, V] {
	return &buildState[K, V]{
		forest:  newForest[K, V](layout, capacity),
		waiting: make(map[K]*bucket[K, V]),
		awaited: make(map[K]slot[K, V]),
		claimed: make(map[*Node[K, V]]struct{}),
	}
}

// wait queues a node until its parent is built.
func (s *buildState[K, V]) wait(parent K, hasParent bool, node *Node[K, V]) {
	var pending *bucket[K, V]

	switch {
	case !hasParent && s.orphans != nil:
		pending = s.orphans
	case hasParent && s.waiting[parent] != nil:
		pending = s.waiting[parent]
	default:
		pending = &bucket[K, V]{parent: parent, hasParent: hasParent}
		s.buckets = append(s.buckets, pending)

		if hasParent {
			s.waiting[parent] = pending
		} else {
			s.orphans = pending
		}
	}

	pending.nodes = append(pending.nodes, node)
}

// claim links an existing child to parent.
func (s *buildState[K, V]) claim(parent, child *Node[K, V], linkParent bool) error {
	if linkParent && child.parent != nil && child.parent != parent {
		return fmt.Errorf("%w: (%v) already has a different parent (%v), cannot assign (%v)",
			ErrConflict, child.key, child.parent.key, parent.key)
	}

	parent.addChild(child, linkParent)
	s.claimed[child] = struct{}{}

	return nil
}

// reserve holds a children slot of parent for a child not built yet.
func (s *buildState[K, V]) reserve(parent *Node[K, V], child K) {
	s.awaited[child] = slot[K, V]{parent: parent, index: len(parent.children)}
	s.requests = append(s.requests, request[K, V]{parent: parent, child: child})
	parent.children = append(parent.children, nil)
}

// prune drops the slots of children that were never built.
func (s *buildState[K, V]) prune() {
	compacted := make(map[*Node[K, V]]struct{})

	for _, req := range s.requests {
		parent := req.parent
		if _, ok := compacted[parent]; ok {
			continue
		}
		compacted[parent] = struct{}{}

		children := parent.children[:0]
		for _, child := range parent.children {
			if child != nil {
				children = append(children, child)
			}
		}

		if len(children) < 1 {
			children = nil
		}
		parent.children = children
	}

	clear(s.awaited)
}

// pendingKeys lists unresolved references, for debugging.
func (s *buildState[K, V]) pendingKeys() (keys []K) {
	for key := range s.waiting {
		keys = append(keys, key)
	}
	for key := range s.awaited {
		keys = append(keys, key)
	}

	return
}
