package ins

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

// bytesBuilder assembles test files field by field.
type bytesBuilder struct {
	buf []byte
}

func (b *bytesBuilder) u8(vs ...uint8) *bytesBuilder {
	b.buf = append(b.buf, vs...)
	return b
}

func (b *bytesBuilder) i8(vs ...int8) *bytesBuilder {
	for _, v := range vs {
		b.buf = append(b.buf, uint8(v))
	}
	return b
}

func (b *bytesBuilder) u16(vs ...uint16) *bytesBuilder {
	for _, v := range vs {
		b.buf = binary.LittleEndian.AppendUint16(b.buf, v)
	}
	return b
}

func (b *bytesBuilder) u16be(vs ...uint16) *bytesBuilder {
	for _, v := range vs {
		b.buf = binary.BigEndian.AppendUint16(b.buf, v)
	}
	return b
}

func (b *bytesBuilder) i32(vs ...int32) *bytesBuilder {
	for _, v := range vs {
		b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(v))
	}
	return b
}

func (b *bytesBuilder) raw(p []byte) *bytesBuilder {
	b.buf = append(b.buf, p...)
	return b
}

func (b *bytesBuilder) str(s string) *bytesBuilder {
	return b.raw([]byte(s))
}

// fixed writes s padded with NULs to n bytes.
func (b *bytesBuilder) fixed(s string, n int) *bytesBuilder {
	p := make([]byte, n)
	copy(p, s)
	return b.raw(p)
}

func (b *bytesBuilder) zeros(n int) *bytesBuilder {
	return b.raw(make([]byte, n))
}

func quietConfig() Config {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return Config{Logger: l}
}

func mustDecode(t *testing.T, data []byte, filename string) *Result {
	t.Helper()
	res, err := Decode(data, filename, quietConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

// mustDecodeOne decodes a file that must hold exactly one instrument.
func mustDecodeOne(t *testing.T, data []byte, filename string) *Result {
	t.Helper()
	res := mustDecode(t, data, filename)
	if len(res.Instruments) != 1 {
		t.Fatalf("expected 1 instrument, got %d", len(res.Instruments))
	}
	return res
}
