// SPDX-License-Identifier: MIT
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"

	"gitlab.com/fisherprime/treebuild"
)

// cycleMark labels a child that is also one of its own ancestors.
const cycleMark = " (cycle)"

// Text draws every root tree of a [treebuild.Forest] with box-drawing branches.
func Text[K comparable, V any](f *treebuild.Forest[K, V]) string {
	var buf strings.Builder

	for _, root := range f.Roots() {
		path := make(map[*treebuild.Node[K, V]]struct{})
		buf.WriteString(textTree(root, path).String())
		buf.WriteString("\n")
	}

	return buf.String()
}

// textTree converts a subtree, path holds the ancestors being drawn.
func textTree[K comparable, V any](n *treebuild.Node[K, V], path map[*treebuild.Node[K, V]]struct{}) *tree.Tree {
	path[n] = struct{}{}
	defer delete(path, n)

	t := tree.Root(fmt.Sprint(n.Key()))
	for _, child := range n.Children() {
		switch _, onPath := path[child]; {
		case onPath:
			t.Child(fmt.Sprint(child.Key()) + cycleMark)
		case len(child.Children()) < 1:
			t.Child(fmt.Sprint(child.Key()))
		default:
			t.Child(textTree(child, path))
		}
	}

	return t
}
