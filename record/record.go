// SPDX-License-Identifier: MIT

// Package record reads dynamic map records, as decoded from JSON, YAML, TOML or bracket text,
// into a treebuild.Forest.
package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"gitlab.com/fisherprime/treebuild"
)

type (
	// Record is a single decoded input object.
	Record = map[string]any

	// Fields names the Record fields holding the identifier & the structural references.
	//
	// Exactly one of Parent & Children is expected.
	Fields struct {
		ID       string
		Parent   string
		Children string
	}
)

// Default field names.
const (
	DefaultIDField     = "id"
	DefaultParentField = "parent"
)

// NewConfig obtains a [treebuild.Config] reading records through the named fields.
//
// Records are stored as their node's value. The accessor combination is checked by
// [treebuild.Build].
func NewConfig(fields Fields) *treebuild.Config[Record, any, Record] {
	if fields.ID == "" {
		fields.ID = DefaultIDField
	}

	cfg := &treebuild.Config[Record, any, Record]{Key: Key(fields.ID)}
	if fields.Parent != "" {
		cfg.ParentKey = Parent(fields.Parent)
	}
	if fields.Children != "" {
		cfg.ChildKeys = Children(fields.Children)
	}

	return cfg
}

// Key obtains an accessor reading field as the record's identifier.
func Key(field string) treebuild.KeyFunc[Record, any] {
	return func(r Record) any { return Normalize(r[field]) }
}

// Parent obtains an accessor reading field as the record's parent identifier.
//
// A missing or null field marks a record without a parent.
func Parent(field string) treebuild.ParentKeyFunc[Record, any] {
	return func(r Record) (key any, ok bool) {
		value, found := r[field]
		if !found || value == nil {
			return
		}

		return Normalize(value), true
	}
}

// Children obtains an accessor reading field as the record's ordered child identifiers.
//
// A missing or null field lists no children; any other non-list value is a
// [treebuild.ErrConfiguration].
func Children(field string) treebuild.ChildKeysFunc[Record, any] {
	return func(r Record) (keys []any, err error) {
		value, found := r[field]
		if !found || value == nil {
			return
		}

		list, ok := value.([]any)
		if !ok {
			err = fmt.Errorf("%w: invalid children: expected a list value, got %T", treebuild.ErrConfiguration, value)
			return
		}

		keys = make([]any, len(list))
		for index := range list {
			keys[index] = Normalize(list[index])
		}

		return
	}
}

// Normalize maps numeric identifiers to a single representation, whole numbers becoming int64.
//
// JSON decodes numbers as json.Number or float64, YAML as int & TOML as int64; normalized, the same
// identifier compares equal across formats.
func Normalize(value any) any {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v)
		}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return Normalize(f)
		}
	case float32:
		return Normalize(float64(v))
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			return int64(v)
		}
	}

	return value
}

// ParseKey reads an identifier from text, integers becoming int64.
func ParseKey(text string) any {
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v
	}

	return text
}
