// SPDX-License-Identifier: MIT
package treebuild

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"golang.org/x/exp/constraints"

	"gitlab.com/fisherprime/treebuild/lexer"
)

// Constraint is a wrapper interface containing comparable & constraints.Ordered.
//
// Serialized keys are scalars; ordered types are the ones they decode into.
type Constraint interface {
	comparable
	constraints.Ordered
}

// Record is a flat parent-reference record read from serialized forest text.
//
// Quoted & ParentQuoted mark keys written as quoted strings, which callers reading untyped keys
// keep as text.
type Record[K Constraint] struct {
	Key       K
	Parent    K
	HasParent bool

	Quoted       bool
	ParentQuoted bool
}

// openNode is a node whose children are being read.
type openNode[K Constraint] struct {
	key    K
	quoted bool
}

// Deserialization errors.
var (
	ErrInvalidForestSrc    = errors.New("invalid forest source")
	ErrExcessiveValues     = errors.New("the deserialization source has excessive values")
	ErrExcessiveEndMarkers = errors.New("the deserialization source has excessive end markers")
)

// RecordConfig obtains a parent-mode [Config] for [Record]s, storing each record as its
// node's value.
func RecordConfig[K Constraint]() *Config[Record[K], K, Record[K]] {
	return &Config[Record[K], K, Record[K]]{
		Key:       func(r Record[K]) K { return r.Key },
		ParentKey: func(r Record[K]) (K, bool) { return r.Parent, r.HasParent },
	}
}

// ParseRecords transforms serialized forest text into flat records, in serialization order.
//
// The records rebuild the serialized forest when passed to [Build] with [RecordConfig].
func ParseRecords[K Constraint](ctx context.Context, opts ...lexer.Option) (records []Record[K], err error) {
	defer func() {
		if err != nil {
			records = nil
			err = fmt.Errorf("%w: %w", ErrInvalidForestSrc, err)
		}
	}()

	lexCtx, lexCancel := context.WithCancel(ctx)
	defer lexCancel()

	l := lexer.New(opts...)
	go l.Lex(lexCtx)

	var ancestors []openNode[K]

	for {
		item, proceed := l.Item()
		if !proceed {
			// Lexing stopped without an EOF, only through cancellation.
			if err = ctx.Err(); err == nil {
				err = lexer.ErrUnknownTokens
			}
			return
		}

		switch item.ID {
		case lexer.ItemEOF:
			if open := len(ancestors); open > 0 {
				err = fmt.Errorf("%w: +%d", ErrExcessiveValues, open)
				return
			}

			if l.Logger() != nil {
				l.Logger().Debugf("parsed %d record(s), %d value(s), %d end marker(s)", len(records), l.ValueCounter(), l.EndCounter())
			}

			return
		case lexer.ItemError:
			// Stop input processing.
			err = item.Err
			return
		case lexer.ItemSplitter:
			continue
		case lexer.ItemEndMarker:
			if len(ancestors) < 1 {
				err = fmt.Errorf("%w: %s at byte %d", ErrExcessiveEndMarkers, string(l.EndMarker()), item.Pos)
				return
			}
			ancestors = ancestors[:len(ancestors)-1]
		case lexer.ItemValue:
			var key K
			if key, err = decodeKey[K](item); err != nil {
				err = fmt.Errorf("value at byte %d: %w", item.Pos, err)
				return
			}

			record := Record[K]{Key: key, Quoted: item.Quoted}
			if open := len(ancestors); open > 0 {
				parent := ancestors[open-1]
				record.Parent, record.ParentQuoted, record.HasParent = parent.key, parent.quoted, true
			}
			records = append(records, record)
			ancestors = append(ancestors, openNode[K]{key, item.Quoted})
		}
	}
}

// decodeKey converts a lexed value to K, string kinds verbatim & other kinds through json.
func decodeKey[K Constraint](item lexer.Item) (key K, err error) {
	text, err := lexer.Unquote(item)
	if err != nil {
		return
	}

	if dest := reflect.ValueOf(&key).Elem(); dest.Kind() == reflect.String {
		dest.SetString(text)
		return
	}

	err = json.Unmarshal([]byte(text), &key)

	return
}
