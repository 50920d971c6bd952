// SPDX-License-Identifier: MIT
package treebuild

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"gitlab.com/fisherprime/treebuild/lexer"
)

// serToken is a serialization message; end marks the close of a node's children.
type serToken struct {
	value string
	end   bool
	err   error
}

// Serialize transforms a [Forest] into its bracket form.
//
// Every node is written as its key followed by its children & an end marker, roots are
// concatenated with the splitter: `1,2,3)),4)`.
func (f *Forest[K, V]) Serialize(ctx context.Context, cfg *lexer.Config) (output string, err error) {
	if cfg == nil {
		cfg = lexer.DefaultConfig()
	}
	cfg.Validate()

	serCtx, serCancel := context.WithCancel(ctx)
	defer serCancel()

	serChan := make(chan serToken)
	go func() {
		defer close(serChan)

		path := make(map[*Node[K, V]]struct{})
		for _, root := range f.roots {
			if !root.serialize(serCtx, cfg, path, serChan) {
				return
			}
		}
	}()

	var buffer strings.Builder
	first := true
	for tok := range serChan {
		if tok.err != nil {
			return "", tok.err
		}

		switch {
		case tok.end:
			buffer.WriteRune(cfg.EndMarker)
		case first:
			buffer.WriteString(tok.value)
		default:
			buffer.WriteRune(cfg.Splitter)
			buffer.WriteString(tok.value)
		}
		first = false
	}

	if err = ctx.Err(); err != nil {
		return "", err
	}
	output = buffer.String()

	return
}

// serialize performs the serialization grunt work, returning false once the walk must stop.
func (n *Node[K, V]) serialize(ctx context.Context, cfg *lexer.Config, path map[*Node[K, V]]struct{}, serChan chan serToken) bool {
	send := func(tok serToken) bool {
		select {
		case <-ctx.Done():
			return false
		case serChan <- tok:
			return tok.err == nil
		}
	}

	if _, ok := path[n]; ok {
		send(serToken{err: fmt.Errorf("%w: (%v) is its own ancestor", ErrCycle, n.key)})
		return false
	}
	path[n] = struct{}{}
	defer delete(path, n)

	if !send(serToken{value: serialKey(cfg, n.key)}) {
		return false
	}

	for _, child := range n.children {
		if !child.serialize(ctx, cfg, path, serChan) {
			return false
		}
	}

	return send(serToken{end: true})
}

// serialKey renders a node key; string keys that read as numbers are quoted to keep their type.
func serialKey(cfg *lexer.Config, key any) string {
	if v := reflect.ValueOf(key); v.Kind() == reflect.String {
		return lexer.QuoteText(cfg, v.String())
	}

	return lexer.Quote(cfg, fmt.Sprint(key))
}
