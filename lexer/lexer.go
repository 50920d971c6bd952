// SPDX-License-Identifier: MIT
package lexer

// REF: https://github.com/sh4t/sql-parser
// REF: https://dave.cheney.net/high-performance-json.html

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

type (
	// NextOperation type for the next function to be executed
	NextOperation func(context.Context) NextOperation

	// ValidationFunction type for functions that validate rune identities
	ValidationFunction func(rune) bool

	// Lexer captures node keys & markers from serialized forest text.
	Lexer struct {
		cfg Config

		// c is a channel for communicating lexed Items.
		c chan Item

		// source is the input source.
		source io.RuneReader

		// buffer holds the runes of the Item being lexed.
		buffer []rune
		// bufferIndex is the current buffer position.
		//
		// When this value reaches the length of buffer, the buffer is populated from the source.
		bufferIndex int

		// pos is the byte offset of buffer[0] in the source.
		pos int

		valueCounter int
		endCounter   int
	}

	// Option defines the Lexer functional option type
	Option func(*Lexer)
)

const defBufferSize = 10

// Lexing errors.
var (
	ErrInvalidBackupAmount = fmt.Errorf("invalid backup amount")
	ErrUnknownTokens       = fmt.Errorf("unknown tokens")
	ErrUnterminatedQuote   = fmt.Errorf("unterminated quoted value")
)

// Improves on performance compared to ORs.
var (
	whitespace = [256]bool{
		' ':  true,
		'\t': true,
		'\r': true,
		'\n': true,
	}

	valueSymbols = [256]bool{
		'_': true,
		'-': true,
		'.': true,
	}
)

// New creates a new scanner for the configured source.
func New(opts ...Option) *Lexer {
	l := &Lexer{
		cfg: *DefaultConfig(),

		c: make(chan Item, defBufferSize),

		buffer: make([]rune, 0, defBufferSize),
		source: strings.NewReader(""),
	}

	for _, opt := range opts {
		opt(l)
	}
	l.cfg.Validate()

	return l
}

// WithConfig replaces the Lexer's Config.
func WithConfig(cfg Config) Option { return func(l *Lexer) { l.cfg = cfg } }

// WithDebug configures the debug option.
func WithDebug(debug bool) Option { return func(l *Lexer) { l.cfg.Debug = debug } }

// WithEndMarker configures the endMarker option.
func WithEndMarker(r rune) Option { return func(l *Lexer) { l.cfg.EndMarker = r } }

// WithSplitter configures the splitter option.
func WithSplitter(r rune) Option { return func(l *Lexer) { l.cfg.Splitter = r } }

// WithLogger configures the logger option.
func WithLogger(logger logrus.FieldLogger) Option { return func(l *Lexer) { l.cfg.Logger = logger } }

// WithSource configures the source option.
func WithSource(source io.RuneReader) Option { return func(l *Lexer) { l.source = source } }

// EndMarker obtains the configured end marker.
func (l *Lexer) EndMarker() rune { return l.cfg.EndMarker }

// Splitter obtains the configured value splitter.
func (l *Lexer) Splitter() rune { return l.cfg.Splitter }

// ValueCounter obtains the number of values lexed so far.
func (l *Lexer) ValueCounter() int { return l.valueCounter }

// EndCounter obtains the number of end markers lexed so far.
func (l *Lexer) EndCounter() int { return l.endCounter }

// Logger obtains the logger.
func (l *Lexer) Logger() logrus.FieldLogger { return l.cfg.Logger }

// Lex lexes the input by executing state functions, closing the Item channel on completion.
//
// Cancelling ctx stops the Lexer, including one blocked on an unread Item.
func (l *Lexer) Lex(ctx context.Context) {
	defer close(l.c)

	for stateFunction := l.LexWhitespace; stateFunction != nil; {
		stateFunction = stateFunction(ctx)
	}
}

// Item return a lexed Item from the input.
func (l *Lexer) Item() (i Item, ok bool) {
	i, ok = <-l.c
	return
}

// LexWhitespace discards whitespace & dispatches on the next rune.
func (l *Lexer) LexWhitespace(ctx context.Context) NextOperation {
	l.AcceptWhile(isWhitespace)
	// Ignore white spaces, discard instead of emit.
	l.Discard()

	switch next := l.Next(); {
	case next == eof:
		l.Emit(ctx, ItemEOF)
		return nil
	case next == l.cfg.EndMarker:
		l.endCounter++
		if !l.Emit(ctx, ItemEndMarker) {
			return nil
		}

		return l.LexWhitespace
	case next == l.cfg.Splitter:
		if !l.Emit(ctx, ItemSplitter) {
			return nil
		}

		return l.LexWhitespace
	case next == quote:
		return l.LexQuoted
	case isValue(next):
		return l.LexValue
	default:
		l.EmitError(ctx, fmt.Errorf("%w: %q at byte %d", ErrUnknownTokens, next, l.pos))
		return nil
	}
}

// LexValue consumes a bare node key.
func (l *Lexer) LexValue(ctx context.Context) NextOperation {
	l.AcceptWhile(func(r rune) bool { return !l.cfg.Reserved(r) })

	l.valueCounter++
	if !l.Emit(ctx, ItemValue) {
		return nil
	}

	return l.LexWhitespace
}

// LexQuoted consumes a double-quoted node key, the opening quote having been read.
func (l *Lexer) LexQuoted(ctx context.Context) NextOperation {
	start := l.pos

	for {
		switch l.Next() {
		case eof:
			l.EmitError(ctx, fmt.Errorf("%w: starting at byte %d", ErrUnterminatedQuote, start))
			return nil
		case '\\':
			if l.Next() == eof {
				l.EmitError(ctx, fmt.Errorf("%w: starting at byte %d", ErrUnterminatedQuote, start))
				return nil
			}
		case quote:
			l.valueCounter++
			if !l.emit(ctx, Item{ID: ItemValue, Quoted: true}) {
				return nil
			}

			return l.LexWhitespace
		}
	}
}

// Next return the Next rune in the input, eof at the end of the source.
func (l *Lexer) Next() (r rune) {
	if l.bufferIndex >= len(l.buffer) {
		var err error
		// Error can only be io.EOF for well-behaved sources.
		if r, _, err = l.source.ReadRune(); err != nil {
			return eof
		}
		l.buffer = append(l.buffer, r)
	}

	r = l.buffer[l.bufferIndex]
	l.bufferIndex++

	return
}

// Backup step back one rune.
func (l *Lexer) Backup() (err error) {
	if l.bufferIndex < 1 {
		err = fmt.Errorf("%w: index: %d", ErrInvalidBackupAmount, l.bufferIndex)
		return
	}
	l.bufferIndex--

	return
}

// Discard the buffer content before the current buffer index.
func (l *Lexer) Discard() {
	for _, r := range l.buffer[:l.bufferIndex] {
		l.pos += utf8.RuneLen(r)
	}

	l.buffer = l.buffer[l.bufferIndex:]
	l.bufferIndex = 0
}

// AcceptWhile consumes runes while condition is true.
func (l *Lexer) AcceptWhile(fn ValidationFunction) {
	for {
		r := l.Next()
		if r == eof {
			return
		}

		// End of current token type.
		if !fn(r) {
			// Cannot fail, a rune was just read.
			_ = l.Backup()
			return
		}
	}
}

// Emit sends an Item of the given type over the communication channel.
//
// Returns false when ctx was cancelled before the Item could be sent.
func (l *Lexer) Emit(ctx context.Context, t ItemID) bool { return l.emit(ctx, Item{ID: t}) }

func (l *Lexer) emit(ctx context.Context, item Item) bool {
	runes := l.buffer[:l.bufferIndex]

	bufSize := 0
	for _, r := range runes {
		bufSize += utf8.RuneLen(r)
	}
	buf := make([]byte, bufSize)

	index := 0
	for _, r := range runes {
		index += utf8.EncodeRune(buf[index:], r)
	}

	if l.cfg.Debug {
		// Debug operation makes this operation un-inlinable.
		l.cfg.Logger.Debugf("lexer emit %s: %s", item.ID, buf)
	}

	item.Val, item.Pos = buf, l.pos
	l.Discard()

	select {
	case <-ctx.Done():
		return false
	case l.c <- item:
		return true
	}
}

// EmitError sends an error over the Lexer's channel, terminating the scan.
func (l *Lexer) EmitError(ctx context.Context, err error) {
	select {
	case <-ctx.Done():
	case l.c <- Item{ID: ItemError, Err: err, Pos: l.pos}:
	}
}

// isWhitespace return true for whitespace, newline & carrier return.
func isWhitespace(r rune) bool { return r < 256 && r >= 0 && whitespace[r] }

// isValue return true for runes permitted in a bare key.
func isValue(r rune) bool {
	return (r < 256 && r >= 0 && valueSymbols[r]) || unicode.IsLetter(r) || unicode.IsDigit(r)
}
