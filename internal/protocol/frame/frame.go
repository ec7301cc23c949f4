package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

const DefaultChunkSize = 4096

var (
	ErrFraming = errors.New("frame: malformed document at end of stream")
)

// Frame is one complete JSON document recovered from the stream.
type Frame struct {
	Raw []byte
	Doc any
}

// Reader recovers consecutive JSON documents from an undelimited byte stream.
//
// Bytes are accumulated until the pending buffer holds a complete document.
// Once the source is exhausted, leftover whitespace ends the stream cleanly
// and anything else is a framing error.
type Reader struct {
	src    io.Reader
	chunk  []byte
	buf    []byte
	active bool
}

func NewReader(src io.Reader) *Reader {
	return NewReaderSize(src, DefaultChunkSize)
}

func NewReaderSize(src io.Reader, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Reader{
		src:    src,
		chunk:  make([]byte, chunkSize),
		active: true,
	}
}

// Next returns the next document in arrival order. It returns io.EOF once
// the source ends with nothing but whitespace pending. On ErrFraming the
// returned Frame carries the unparseable bytes in Raw.
func (r *Reader) Next() (Frame, error) {
	for {
		f, ok, err := r.extract()
		if err != nil {
			return f, err
		}
		if ok {
			return f, nil
		}
		if !r.active {
			return Frame{}, io.EOF
		}
		if err := r.fill(); err != nil {
			return Frame{Raw: r.Pending()}, err
		}
	}
}

// Pending returns a copy of the bytes not yet consumed by a document.
func (r *Reader) Pending() []byte {
	return bytes.Clone(r.buf)
}

func (r *Reader) fill() error {
	n, err := r.src.Read(r.chunk)
	if n > 0 {
		r.buf = append(r.buf, r.chunk[:n]...)
	}
	if err == nil {
		return nil
	}
	if isEndOfStream(err) {
		r.active = false
		return nil
	}
	return err
}

// extract tries to cut one document off the front of the pending buffer.
// ok is false when more bytes are needed, or the stream ended cleanly.
func (r *Reader) extract() (Frame, bool, error) {
	if len(bytes.TrimSpace(r.buf)) == 0 {
		return Frame{}, false, nil
	}

	dec := json.NewDecoder(bytes.NewReader(r.buf))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		if r.active {
			return Frame{}, false, nil
		}
		return Frame{Raw: r.Pending()}, false, fmt.Errorf("%w: %v", ErrFraming, err)
	}

	end := int(dec.InputOffset())
	if _, isNumber := doc.(json.Number); isNumber && end == len(r.buf) && r.active {
		// a bare number may continue in the next chunk
		return Frame{}, false, nil
	}

	raw := bytes.Clone(r.buf[:end])
	r.buf = append(r.buf[:0], r.buf[end:]...)
	return Frame{Raw: raw, Doc: doc}, true, nil
}

// isEndOfStream reports whether err means the peer stopped sending.
// A connection reset counts as a normal end of stream.
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET)
}
