// SPDX-License-Identifier: MIT
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"gitlab.com/fisherprime/treebuild"
	"gitlab.com/fisherprime/treebuild/lexer"
)

// Format identifies a record source encoding.
type Format string

// Supported formats.
const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
	// Tree is the bracket serialization, e.g. `1,2,3)),4)`.
	Tree Format = "tree"
)

// Decoding errors.
var (
	ErrUnknownFormat = errors.New("unknown record format")
	ErrDecode        = errors.New("failed to decode records")
)

// tomlDocument holds records as an array of tables: `[[items]]`.
type tomlDocument struct {
	Items []Record `toml:"items"`
}

// FormatFromPath guesses a [Format] from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	case ".tree", ".txt":
		return Tree, nil
	default:
		return "", fmt.Errorf("%w: extension %q", ErrUnknownFormat, ext)
	}
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case JSON, YAML, TOML, Tree:
		return f, nil
	case "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Decode reads the records of r.
//
// JSON & YAML sources hold a top-level list of objects, TOML sources an `[[items]]` array of
// tables. Tree sources produce records with [DefaultIDField] & [DefaultParentField] fields, bare
// integer keys becoming int64 & quoted keys staying strings.
func Decode(ctx context.Context, r io.Reader, format Format) (records []Record, err error) {
	defer func() {
		if err != nil {
			records = nil
			err = fmt.Errorf("%w (%s): %w", ErrDecode, format, err)
		}
	}()

	switch format {
	case JSON:
		// Numbers stay exact until Normalize, float64 loses integers above 2^53.
		dec := json.NewDecoder(r)
		dec.UseNumber()

		var raw []any
		if err = dec.Decode(&raw); err != nil {
			return
		}
		records, err = objects(raw)
	case YAML:
		var raw []any
		if err = yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return
		}
		records, err = objects(raw)
	case TOML:
		var doc tomlDocument
		if _, err = toml.NewDecoder(r).Decode(&doc); err != nil {
			return
		}
		records = doc.Items
	case Tree:
		records, err = decodeTree(ctx, r)
	default:
		err = ErrUnknownFormat
	}

	return
}

// objects asserts every list entry is an object.
func objects(raw []any) (records []Record, err error) {
	records = make([]Record, len(raw))
	for index, entry := range raw {
		record, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entry %d: expected an object, got %T", index, entry)
		}
		records[index] = record
	}

	return
}

func decodeTree(ctx context.Context, r io.Reader) (records []Record, err error) {
	var source io.RuneReader
	if rr, ok := r.(io.RuneReader); ok {
		source = rr
	} else {
		var raw []byte
		if raw, err = io.ReadAll(r); err != nil {
			return
		}
		source = strings.NewReader(string(raw))
	}

	parsed, err := treebuild.ParseRecords[string](ctx, lexer.WithSource(source))
	if err != nil {
		return
	}

	records = make([]Record, len(parsed))
	for index, p := range parsed {
		record := Record{DefaultIDField: treeKey(p.Key, p.Quoted)}
		if p.HasParent {
			record[DefaultParentField] = treeKey(p.Parent, p.ParentQuoted)
		}
		records[index] = record
	}

	return
}

// treeKey reads a bracket key, quoted keys staying text.
func treeKey(text string, quoted bool) any {
	if quoted {
		return text
	}

	return ParseKey(text)
}
