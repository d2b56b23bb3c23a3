// Package bin provides the bounds-checked byte cursor shared by every
// decoder, plus the error and warning types they report.
package bin

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Reader is a cursor over an in-memory buffer.
//
// Every read checks that the requested span lies inside the buffer before
// touching it. The first failure is remembered: later reads return zero
// values and Err keeps returning that first error, so a decoder can run a
// group of field reads and check once before acting on the values.
type Reader struct {
	data []byte
	pos  int
	err  *Error

	// These fields below are only used for error reporting.
	stage      string
	stageIndex int
	sub        string
	subIndex   int
}

// NewReader returns a Reader positioned at the start of data.
// The buffer is never modified.
func NewReader(data []byte) *Reader {
	return &Reader{data: data, stageIndex: -1, subIndex: -1}
}

// Len returns the size of the whole buffer.
func (r *Reader) Len() int { return len(r.data) }

// Tell returns the current read position.
func (r *Reader) Tell() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Err returns the first error encountered, or nil.
func (r *Reader) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// StartStage names the section being decoded for error messages.
func (r *Reader) StartStage(name string) {
	r.stage = name
	r.stageIndex = -1
	r.sub = ""
	r.subIndex = -1
}

// SetStageIndex sets the element index of the current stage.
func (r *Reader) SetStageIndex(i int) {
	r.stageIndex = i
	r.sub = ""
	r.subIndex = -1
}

// StartSubStage names a nested section of the current stage.
func (r *Reader) StartSubStage(name string) {
	r.sub = name
	r.subIndex = -1
}

// SetSubStageIndex sets the element index of the current sub-stage.
func (r *Reader) SetSubStageIndex(i int) { r.subIndex = i }

// Stage formats the current stage, e.g. "instrument[2].operator[1]".
func (r *Reader) Stage() string {
	var b strings.Builder
	b.Grow(len(r.stage) + len(r.sub) + 16)
	b.WriteString(r.stage)
	if r.stageIndex >= 0 {
		fmt.Fprintf(&b, "[%d]", r.stageIndex)
	}
	if r.sub != "" {
		b.WriteByte('.')
		b.WriteString(r.sub)
		if r.subIndex >= 0 {
			fmt.Fprintf(&b, "[%d]", r.subIndex)
		}
	}
	return b.String()
}

// Invariantf returns a KindInvariant error at the current position.
// If a read has already failed, that earlier error is returned instead,
// since the value being checked is a zero placeholder.
func (r *Reader) Invariantf(format string, args ...any) error {
	if r.err != nil {
		return r.err
	}
	return &Error{
		Kind:    KindInvariant,
		Offset:  r.pos,
		Stage:   r.Stage(),
		Message: fmt.Sprintf(format, args...),
	}
}

func (r *Reader) fail(n int, what string) {
	if r.err != nil {
		return
	}
	r.err = &Error{
		Kind:    KindEndOfData,
		Offset:  r.pos,
		Stage:   r.Stage(),
		Message: fmt.Sprintf("unexpected end of data while reading %s (need %d bytes, %d left)", what, n, r.Remaining()),
	}
}

// span returns the next n bytes and advances past them.
// The comparison is done against the remaining length so that
// no addition can overflow.
func (r *Reader) span(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.data)-r.pos {
		r.fail(n, what)
		return nil
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b
}

// Seek moves the cursor. whence is one of io.SeekStart, io.SeekCurrent
// or io.SeekEnd. Seeking outside [0, Len()] reports false and leaves the
// position unchanged; it does not set Err.
func (r *Reader) Seek(off int64, whence int) bool {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = int64(r.pos)
	case io.SeekEnd:
		base = int64(len(r.data))
	default:
		return false
	}
	target := base + off
	if target < 0 || target > int64(len(r.data)) {
		return false
	}
	r.pos = int(target)
	return true
}

// Skip advances n bytes.
func (r *Reader) Skip(n int, what string) {
	r.span(n, what)
}

// ReadU8 reads an unsigned byte.
func (r *Reader) ReadU8(what string) uint8 {
	b := r.span(1, what)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadI8 reads a signed byte.
func (r *Reader) ReadI8(what string) int8 {
	return int8(r.ReadU8(what))
}

// ReadBool reads a byte and reports whether it is non-zero.
func (r *Reader) ReadBool(what string) bool {
	return r.ReadU8(what) != 0
}

func (r *Reader) ReadU16(what string) uint16 {
	b := r.span(2, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) ReadI16(what string) int16 {
	return int16(r.ReadU16(what))
}

func (r *Reader) ReadU32(what string) uint32 {
	b := r.span(4, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) ReadI32(what string) int32 {
	return int32(r.ReadU32(what))
}

func (r *Reader) ReadU16BE(what string) uint16 {
	b := r.span(2, what)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *Reader) ReadI16BE(what string) int16 {
	return int16(r.ReadU16BE(what))
}

func (r *Reader) ReadU32BE(what string) uint32 {
	b := r.span(4, what)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int, what string) []byte {
	b := r.span(n, what)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// ReadString reads a fixed-width field and trims it at the first NUL.
func (r *Reader) ReadString(n int, what string) string {
	b := r.span(n, what)
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// ReadPString reads a string prefixed by a one-byte length.
func (r *Reader) ReadPString(what string) string {
	n := int(r.ReadU8(what + " length"))
	return r.ReadString(n, what)
}

// ReadCString reads a NUL-terminated string. A missing terminator is
// an end-of-data error.
func (r *Reader) ReadCString(what string) string {
	if r.err != nil {
		return ""
	}
	i := bytes.IndexByte(r.data[r.pos:], 0)
	if i < 0 {
		r.fail(r.Remaining()+1, what)
		return ""
	}
	s := string(r.data[r.pos : r.pos+i])
	r.pos += i + 1
	return s
}
