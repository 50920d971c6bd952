// SPDX-License-Identifier: MIT
package lexer

import (
	"strconv"

	"github.com/sirupsen/logrus"
)

// Config holds the markers of the bracket syntax & the Lexer's diagnostics settings.
//
// The markers also decide which keys [Quote] wraps: a bare key ends at the first splitter or end
// marker, so keys containing either are written as double-quoted Go string literals.
type Config struct {
	Logger logrus.FieldLogger

	// EndMarker closes the children of the latest open node.
	EndMarker rune
	// Splitter separates sibling & root keys.
	Splitter rune

	// Debug logs every emitted Item.
	Debug bool
}

// Default markers, `1,2)),3)`.
const (
	DefaultEndMarker = ')'
	DefaultSplitter  = ','

	quote = '"'
	eof   = -1
)

// DefaultConfig obtains a Config using [DefaultEndMarker] & [DefaultSplitter].
func DefaultConfig() *Config {
	return &Config{
		EndMarker: DefaultEndMarker,
		Splitter:  DefaultSplitter,
		Logger:    logrus.New(),
	}
}

// Validate fills unset markers & the logger; a zero rune is never a marker.
func (c *Config) Validate() {
	if c.EndMarker == 0 {
		c.EndMarker = DefaultEndMarker
	}
	if c.Splitter == 0 {
		c.Splitter = DefaultSplitter
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
}

// Reserved reports whether r ends a bare key: markers, quotes, whitespace & other symbols.
func (c *Config) Reserved(r rune) bool {
	return !isValue(r) || r == c.Splitter || r == c.EndMarker
}

// Quote renders a key for serialization, quoting it when it would not lex as a bare value.
func Quote(cfg *Config, key string) string {
	if key == "" {
		return strconv.Quote(key)
	}

	for _, r := range key {
		if cfg.Reserved(r) {
			return strconv.Quote(key)
		}
	}

	return key
}

// QuoteText renders a string key, additionally quoting text that reads back as a number.
//
// Readers keep quoted values as text, so "007" & "1" survive a round trip beside the integer 1.
func QuoteText(cfg *Config, key string) string {
	if _, err := strconv.ParseFloat(key, 64); err == nil {
		return strconv.Quote(key)
	}

	return Quote(cfg, key)
}

// Unquote returns the key carried by an ItemValue.
func Unquote(item Item) (string, error) {
	if !item.Quoted {
		return string(item.Val), nil
	}

	return strconv.Unquote(string(item.Val))
}
