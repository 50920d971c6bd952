// SPDX-License-Identifier: MIT

// Package render draws a built treebuild.Forest as Graphviz DOT, SVG or terminal text.
package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"gitlab.com/fisherprime/treebuild"
)

// DOT converts a [treebuild.Forest] to Graphviz DOT, with an edge from every parent to each
// of its children.
//
// Nodes are listed in input record order.
func DOT[K comparable, V any](f *treebuild.Forest[K, V]) string {
	var buf bytes.Buffer
	buf.WriteString("digraph forest {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white];\n")
	buf.WriteString("\n")

	nodes := f.Nodes()
	for _, n := range nodes {
		fmt.Fprintf(&buf, "  %q;\n", fmt.Sprint(n.Key()))
	}

	buf.WriteString("\n")
	for _, n := range nodes {
		for _, child := range n.Children() {
			fmt.Fprintf(&buf, "  %q -> %q;\n", fmt.Sprint(n.Key()), fmt.Sprint(child.Key()))
		}
	}

	buf.WriteString("}\n")

	return buf.String()
}

// SVG renders DOT text through Graphviz.
func SVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	return buf.Bytes(), nil
}
