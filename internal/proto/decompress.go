// Package proto implements duskline's protocol pipeline: optional stream
// decompression, telnet command handling, and ANSI/SGR color parsing
// (spec §4.1-§4.3).
package proto

import (
	"bytes"
	"compress/zlib"
	"errors"
	"io"
)

// Status is the outcome of one Decompressor.Feed call.
type Status int

const (
	StatusOK Status = iota
	StatusEOS
	StatusError
)

// Decompressor is the narrow capability the session layer drives: feed
// compressed (or passthrough) bytes in, get decompressed bytes out.
type Decompressor interface {
	// Feed accepts an arbitrary-sized chunk and returns decompressed output.
	Feed(in []byte) (out []byte, status Status, err error)
	// Activate switches the instance into compressed mode after a
	// handshake has been negotiated by the caller (session layer).
	Activate()
	// Active reports whether Activate has been called.
	Active() bool
}

// Passthrough returns input unchanged and never activates: Activate is a
// no-op and Active always reports false. Inflate behaves the same way until
// its Activate is called.
type Passthrough struct{}

func (Passthrough) Feed(in []byte) ([]byte, Status, error) { return in, StatusOK, nil }
func (Passthrough) Activate()                              {}
func (Passthrough) Active() bool                            { return false }

// Inflate decodes a standard zlib/deflate stream once activated. Before
// Activate is called it behaves like Passthrough, matching the handshake
// contract in spec §4.1: the activation sentinel travels over the
// uncompressed stream and is stripped by the telnet layer; every byte from
// there on belongs to the compressed substream.
//
// Feed keeps the full compressed history and re-runs zlib over it on every
// call, re-emitting only the bytes beyond what was already returned. This
// avoids the deadlock a naive incremental-reader design hits when a zlib
// header or block straddles a Feed boundary, at the cost of doing
// O(total bytes) work per Feed — acceptable for interactive MUD traffic.
type Inflate struct {
	active   bool
	buf      []byte
	emitted  int
	done     bool
}

// NewInflate returns a ready-to-activate Inflate decompressor.
func NewInflate() *Inflate {
	return &Inflate{}
}

func (z *Inflate) Active() bool { return z.active }

// Activate begins compressed mode.
func (z *Inflate) Activate() {
	z.active = true
}

// Feed decompresses in, returning any newly available decompressed bytes.
func (z *Inflate) Feed(in []byte) ([]byte, Status, error) {
	if !z.active {
		return in, StatusOK, nil
	}
	if z.done {
		return nil, StatusEOS, nil
	}
	z.buf = append(z.buf, in...)

	r, err := zlib.NewReader(bytes.NewReader(z.buf))
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// Header not fully arrived yet; wait for more bytes.
			return nil, StatusOK, nil
		}
		return nil, StatusError, err
	}

	all, rerr := io.ReadAll(r)
	if rerr != nil && !errors.Is(rerr, io.ErrUnexpectedEOF) {
		return nil, StatusError, rerr
	}

	var newOut []byte
	if len(all) > z.emitted {
		newOut = all[z.emitted:]
		z.emitted = len(all)
	}

	if rerr == nil {
		z.done = true
		return newOut, StatusEOS, nil
	}
	return newOut, StatusOK, nil
}
