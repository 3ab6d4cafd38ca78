package providers

import (
	"bytes"
	"io"
	"regexp"
)

var prefixedToolName = regexp.MustCompile(`"name"\s*:\s*"` + regexp.QuoteMeta(ToolPrefix) + `([^"]+)"`)

const (
	strippedToolName = `"name": "${1}"`
	// Longest tail held back while waiting for a split tool name.
	maxHoldback = 4096
	readChunk   = 32 * 1024
)

// StripToolPrefix removes ToolPrefix from every "name" field in text.
func StripToolPrefix(text []byte) []byte {
	return prefixedToolName.ReplaceAll(text, []byte(strippedToolName))
}

// toolNameStripper applies StripToolPrefix to a stream. A tail that could
// be the start of a match is carried into the next read, so names split
// across chunks are still rewritten.
type toolNameStripper struct {
	src     io.ReadCloser
	pending []byte
	out     []byte
	err     error
	chunk   []byte
}

func NewToolNameStripper(src io.ReadCloser) io.ReadCloser {
	return &toolNameStripper{src: src}
}

func (s *toolNameStripper) Read(p []byte) (int, error) {
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		if s.chunk == nil {
			s.chunk = make([]byte, readChunk)
		}

		n, err := s.src.Read(s.chunk)
		data := append(s.pending, s.chunk[:n]...)
		s.pending = nil

		if err != nil {
			s.out = StripToolPrefix(data)
			s.err = err
			continue
		}

		cut := holdbackPoint(data)
		s.out = StripToolPrefix(data[:cut])
		if cut < len(data) {
			s.pending = append([]byte(nil), data[cut:]...)
		}
	}

	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

func (s *toolNameStripper) Close() error {
	return s.src.Close()
}

// holdbackPoint returns where data can be safely split: the earliest quote
// after the last complete match, within the holdback window, that starts
// an unfinished match.
func holdbackPoint(data []byte) int {
	start := 0
	if matches := prefixedToolName.FindAllIndex(data, -1); len(matches) > 0 {
		start = matches[len(matches)-1][1]
	}
	if floor := len(data) - maxHoldback; floor > start {
		start = floor
	}

	for i := start; i < len(data); i++ {
		if data[i] == '"' && partialMatch(data[i:]) {
			return i
		}
	}
	return len(data)
}

// partialMatch reports whether s is an unfinished prefix of a prefixed
// tool name field.
func partialMatch(s []byte) bool {
	pos, ok := matchLiteral(s, 0, `"name"`)
	if !ok || pos == len(s) {
		return ok
	}
	pos = skipSpace(s, pos)
	if pos == len(s) {
		return true
	}
	if s[pos] != ':' {
		return false
	}
	pos = skipSpace(s, pos+1)
	if pos, ok = matchLiteral(s, pos, `"`+ToolPrefix); !ok || pos == len(s) {
		return ok
	}
	if s[pos] == '"' {
		return false
	}
	return bytes.IndexByte(s[pos:], '"') < 0
}

// matchLiteral matches lit at pos. A truncated match counts as ok with
// the returned position at len(s).
func matchLiteral(s []byte, pos int, lit string) (int, bool) {
	for k := 0; k < len(lit); k++ {
		if pos == len(s) {
			return pos, true
		}
		if s[pos] != lit[k] {
			return pos, false
		}
		pos++
	}
	return pos, true
}

func skipSpace(s []byte, pos int) int {
	for pos < len(s) {
		switch s[pos] {
		case ' ', '\t', '\n', '\r', '\f':
			pos++
		default:
			return pos
		}
	}
	return pos
}
