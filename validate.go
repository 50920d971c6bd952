// SPDX-License-Identifier: MIT
package treebuild

import (
	"errors"
	"fmt"
)

// Tree validation errors.
var (
	ErrCycle         = errors.New("detected a cycle")
	ErrMultiplePaths = errors.New("node reachable via multiple paths")
)

type frame[K comparable, V any] struct {
	node  *Node[K, V]
	depth int
}

// validate checks that every node of f is reachable from exactly one root path, labelling
// depths when assignDepth is set.
func validate[K comparable, V any](f *Forest[K, V], assignDepth bool) error {
	total := f.Len()
	if len(f.roots) < 1 && total > 0 {
		return fmt.Errorf("%w: no root nodes among %d node(s)", ErrCycle, total)
	}

	visited := make(map[*Node[K, V]]struct{}, total)

	stack := make([]frame[K, V], 0, len(f.roots))
	for _, root := range f.roots {
		stack = append(stack, frame[K, V]{node: root})
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visited[top.node]; ok {
			return fmt.Errorf("%w: (%v)", ErrMultiplePaths, top.node.key)
		}
		visited[top.node] = struct{}{}

		if assignDepth {
			top.node.depth, top.node.hasDepth = top.depth, true
		}

		for _, child := range top.node.children {
			stack = append(stack, frame[K, V]{node: child, depth: top.depth + 1})
		}
	}

	if len(visited) != total {
		return fmt.Errorf("%w: %d of %d node(s) unreachable from the roots", ErrCycle, total-len(visited), total)
	}

	return nil
}
