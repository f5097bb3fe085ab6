package csvcodec

// encoding.go holds the byte-level readers applied before CSV parsing:
//
//   - skipBOM removes the UTF-8 byte order mark that spreadsheet programs on Windows write
//   - utf8Reader fails on the first invalid UTF-8 sequence
//
// Both work on the stream and never need the whole file in memory.

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when an imported file is not UTF-8 encoded.
var ErrInvalidUTF8 = errors.New("file is not valid UTF-8")

var bom = []byte{0xEF, 0xBB, 0xBF}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(bom)); err == nil && bytes.Equal(b, bom) {
		_, _ = br.Discard(len(bom))
	}
	return br
}

// utf8Reader passes bytes through unchanged. A multi-byte sequence split across two reads of
// the underlying reader is held back until it is complete.
type utf8Reader struct {
	r       io.Reader
	buf     []byte
	out     []byte
	pending []byte
	offset  int64
	err     error
}

func newUTF8Reader(r io.Reader) *utf8Reader {
	return &utf8Reader{
		r:       r,
		buf:     make([]byte, 4096+utf8.UTFMax),
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

func (u *utf8Reader) Read(p []byte) (int, error) {
	for len(u.out) == 0 && u.err == nil {
		u.fill()
	}
	if len(u.out) > 0 {
		n := copy(p, u.out)
		u.out = u.out[n:]
		return n, nil
	}
	return 0, u.err
}

func (u *utf8Reader) fill() {
	n := copy(u.buf, u.pending)
	m, err := u.r.Read(u.buf[n:])
	n += m

	keep := 0
	if err == nil {
		keep = incompleteTail(u.buf[:n])
	}
	valid := u.buf[:n-keep]
	if !utf8.Valid(valid) {
		u.err = fmt.Errorf("%w (near byte %d)", ErrInvalidUTF8, u.offset+int64(firstInvalid(valid)))
		return
	}
	u.pending = append(u.pending[:0], u.buf[n-keep:n]...)
	u.offset += int64(len(valid))
	u.out = valid
	u.err = err
}

// incompleteTail returns the length of a multi-byte sequence at the end of data that is still
// missing continuation bytes.
func incompleteTail(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		start := len(data) - i
		if !utf8.RuneStart(data[start]) {
			continue
		}
		if utf8.FullRune(data[start:]) {
			return 0
		}
		return i
	}
	return 0
}

func firstInvalid(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(data)
}
