package skipledger

import (
	"bytes"
	"fmt"
	"io"
)

// Assert panics with a formatted message if cond is false. Reserved for
// violated internal invariants (a corrupt in-memory structure), never for
// caller-supplied bad input -- those return an error instead.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// Concat concatenates byte-like values into a single buffer. Accepted types
// are []byte, byte, string, and anything with a Bytes() []byte method
// (notably Hash).
func Concat(parts ...interface{}) []byte {
	var buf bytes.Buffer
	for _, p := range parts {
		switch v := p.(type) {
		case []byte:
			buf.Write(v)
		case byte:
			buf.WriteByte(v)
		case string:
			buf.WriteString(v)
		case interface{ Bytes() []byte }:
			buf.Write(v.Bytes())
		default:
			Assert(false, "Concat: unsupported type %T", p)
		}
	}
	return buf.Bytes()
}

type byteCounter int

func (b *byteCounter) Write(p []byte) (int, error) {
	*b += byteCounter(len(p))
	return len(p), nil
}

// Size returns the number of bytes o.Write would emit, without allocating
// the buffer it would write into.
func Size(o interface{ Write(w io.Writer) error }) (int, error) {
	var c byteCounter
	if err := o.Write(&c); err != nil {
		return 0, err
	}
	return int(c), nil
}

// MustBytes runs o.Write against an in-memory buffer and returns its
// contents, panicking on error -- the common case where a well-formed,
// already-validated object cannot fail to serialize.
func MustBytes(o interface{ Write(w io.Writer) error }) []byte {
	var buf bytes.Buffer
	if err := o.Write(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
