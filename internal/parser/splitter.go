package parser

import "strings"

// ScanState is the lexical mode the statement splitter is in at a given
// position of the script.
type ScanState int

const (
	Normal ScanState = iota
	InSingleQuote
	InDoubleQuote
	InLineComment
	InBlockComment
)

// String returns a string representation of ScanState
func (s ScanState) String() string {
	switch s {
	case Normal:
		return "normal"
	case InSingleQuote:
		return "single-quote"
	case InDoubleQuote:
		return "double-quote"
	case InLineComment:
		return "line-comment"
	case InBlockComment:
		return "block-comment"
	default:
		return "unknown"
	}
}

const (
	delimiter  = ';'
	escapeChar = '\\'
)

// SplitResult holds the statements produced by Split together with the
// information needed to map them back onto the script.
type SplitResult struct {
	Statements []string
	// Offsets[i] is the byte offset in the script of the first
	// non-whitespace character of Statements[i] (or of its first character
	// when the statement is whitespace only).
	Offsets []int
	// Final is the state the scanner was in when input ran out.
	Final ScanState
}

// Unterminated reports whether the script ended inside a quoted literal or a
// block comment. A line comment running into end of input is not considered
// unterminated.
func (r *SplitResult) Unterminated() bool {
	switch r.Final {
	case InSingleQuote, InDoubleQuote, InBlockComment:
		return true
	default:
		return false
	}
}

// SplitStatements divides script into its statements. Delimiters inside
// quoted literals and comments are ordinary text, comments are removed
// from the output and every statement keeps its terminating ';'. Text after
// the last delimiter is returned as a final statement.
func SplitStatements(script string) []string {
	return Split(script).Statements
}

// Split is SplitStatements with offsets and final state.
func Split(script string) *SplitResult {
	s := &splitter{src: script, first: -1, start: -1}
	for s.pos < len(s.src) {
		s.step()
	}
	s.emit()

	return &SplitResult{
		Statements: s.stmts,
		Offsets:    s.offsets,
		Final:      s.state,
	}
}

// splitter works on bytes. Every character with a meaning to it is ASCII
// and UTF-8 never encodes a non-ASCII rune with bytes below 0x80, so
// multi-byte runes pass through untouched.
type splitter struct {
	src   string
	pos   int
	state ScanState

	buf   strings.Builder
	first int // offset of the first byte in buf
	start int // offset of the first non-whitespace byte in buf

	stmts   []string
	offsets []int
}

func (s *splitter) step() {
	c := s.src[s.pos]

	switch s.state {
	case Normal:
		s.normal(c)
	case InSingleQuote:
		s.quoted(c, '\'')
	case InDoubleQuote:
		s.quoted(c, '"')
	case InLineComment:
		s.lineComment(c)
	case InBlockComment:
		s.blockComment(c)
	}
}

func (s *splitter) normal(c byte) {
	switch {
	case c == '\'':
		s.take()
		s.state = InSingleQuote
	case c == '"':
		s.take()
		s.state = InDoubleQuote
	case c == '-' && s.peek() == '-':
		s.pos += 2
		s.state = InLineComment
	case c == '/' && s.peek() == '*':
		s.pos += 2
		s.state = InBlockComment
	case c == delimiter:
		s.take()
		s.emit()
	default:
		s.take()
	}
}

func (s *splitter) quoted(c, quote byte) {
	switch c {
	case escapeChar:
		s.take()
		// A trailing backslash is kept alone.
		if s.pos < len(s.src) {
			s.take()
		}
	case quote:
		s.take()
		s.state = Normal
	default:
		s.take()
	}
}

func (s *splitter) lineComment(c byte) {
	if c == '\n' {
		s.take()
		s.state = Normal
		return
	}
	s.pos++
}

func (s *splitter) blockComment(c byte) {
	if c == '*' && s.peek() == '/' {
		s.pos += 2
		s.state = Normal
		return
	}
	s.pos++
}

// peek returns the byte after the current one, or 0 at end of input.
func (s *splitter) peek() byte {
	if s.pos+1 < len(s.src) {
		return s.src[s.pos+1]
	}
	return 0
}

// take appends the current byte to the statement being built.
func (s *splitter) take() {
	c := s.src[s.pos]
	if s.first < 0 {
		s.first = s.pos
	}
	if s.start < 0 && !isSpace(c) {
		s.start = s.pos
	}
	s.buf.WriteByte(c)
	s.pos++
}

// emit closes the current statement when it holds anything.
func (s *splitter) emit() {
	if s.buf.Len() == 0 {
		return
	}

	offset := s.start
	if offset < 0 {
		offset = s.first
	}
	s.stmts = append(s.stmts, s.buf.String())
	s.offsets = append(s.offsets, offset)

	s.buf.Reset()
	s.first, s.start = -1, -1
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	default:
		return false
	}
}
