package ump

import (
	"fmt"
	"io"
)

// maxPartSize bounds a single part's payload to guard against a malformed
// or malicious size prefix forcing an unbounded allocation. SABR media
// segments are chunked well under this in practice.
const maxPartSize = 64 * 1024 * 1024

// Parser decodes a sequence of parts from an io.Reader. It is a one-shot,
// forward-only iterator: call Next until it returns io.EOF.
type Parser struct {
	r   io.Reader
	buf []byte // bytes read but not yet consumed
	eof bool   // underlying reader returned io.EOF
}

// NewParser returns a Parser reading UMP-framed parts from r.
func NewParser(r io.Reader) *Parser {
	return &Parser{r: r, buf: make([]byte, 0, 32*1024)}
}

// Next decodes and returns the next part in the stream. It returns io.EOF
// once the stream ends cleanly between parts, or ErrTruncated if the
// stream ends partway through a part's header or payload.
func (p *Parser) Next() (Part, error) {
	typ, err := p.readVarint()
	if err != nil {
		if err == io.EOF {
			return Part{}, io.EOF
		}
		return Part{}, ErrTruncated
	}

	size, err := p.readVarint()
	if err != nil {
		return Part{}, ErrTruncated
	}
	if size > maxPartSize {
		return Part{}, fmt.Errorf("ump: part size %d exceeds maximum %d", size, maxPartSize)
	}

	data, err := p.readN(int(size))
	if err != nil {
		return Part{}, ErrTruncated
	}

	return Part{Type: PartType(typ), Size: size, Data: data}, nil
}

// readVarint decodes one varint from the buffered stream, refilling from
// the underlying reader as needed. It returns io.EOF only when the stream
// ends exactly at a part boundary (zero bytes available before any varint
// byte is read).
func (p *Parser) readVarint() (uint32, error) {
	for {
		v, n, err := decodeVarint(p.buf)
		if err == nil {
			p.buf = p.buf[n:]
			return v, nil
		}
		if err != errNeedMoreData {
			return 0, err
		}
		if len(p.buf) == 0 && p.eof {
			return 0, io.EOF
		}
		if p.eof {
			return 0, io.ErrUnexpectedEOF
		}
		if err := p.fill(); err != nil {
			return 0, err
		}
	}
}

// readN returns exactly n bytes from the buffered stream, refilling as
// needed. The returned slice is a copy, safe to retain past the next
// Parser.Next call.
func (p *Parser) readN(n int) ([]byte, error) {
	for len(p.buf) < n {
		if p.eof {
			return nil, io.ErrUnexpectedEOF
		}
		if err := p.fill(); err != nil {
			return nil, err
		}
	}
	out := make([]byte, n)
	copy(out, p.buf[:n])
	p.buf = p.buf[n:]
	return out, nil
}

// fill reads more bytes from the underlying reader into buf.
func (p *Parser) fill() error {
	chunk := make([]byte, 32*1024)
	n, err := p.r.Read(chunk)
	if n > 0 {
		p.buf = append(p.buf, chunk[:n]...)
	}
	if err != nil {
		if err == io.EOF {
			p.eof = true
			return nil
		}
		return err
	}
	return nil
}

// Parts decodes and returns every part in the stream. It is a convenience
// for tests and the debug dumper; the session engine uses Next directly so
// it can start dispatching MEDIA parts before the body finishes arriving.
func Parts(r io.Reader) ([]Part, error) {
	p := NewParser(r)
	var parts []Part
	for {
		part, err := p.Next()
		if err == io.EOF {
			return parts, nil
		}
		if err != nil {
			return parts, err
		}
		parts = append(parts, part)
	}
}
