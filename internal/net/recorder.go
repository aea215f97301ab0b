package net

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// Recorder appends framed msgpack snapshots to a stream.
type Recorder struct {
	w      *bufio.Writer
	closer io.Closer
	frames int
	bytes  int64
}

func NewRecorder(w io.Writer) *Recorder {
	r := &Recorder{w: bufio.NewWriterSize(w, 64<<10)}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r
}

// CreateRecorder truncates or creates the file at path.
func CreateRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording %s: %w", path, err)
	}
	return NewRecorder(f), nil
}

// WriteSnapshot encodes s and appends it as one frame.
func (r *Recorder) WriteSnapshot(s *Snapshot) error {
	b, err := EncodeSnapshot(s)
	if err != nil {
		return err
	}
	return r.WriteEncoded(b)
}

// WriteEncoded appends an already encoded snapshot.
func (r *Recorder) WriteEncoded(b []byte) error {
	if err := WriteFrame(r.w, b); err != nil {
		return fmt.Errorf("record frame %d: %w", r.frames, err)
	}
	r.frames++
	r.bytes += int64(len(b)) + 4
	return nil
}

func (r *Recorder) Frames() int  { return r.frames }
func (r *Recorder) Bytes() int64 { return r.bytes }

func (r *Recorder) Flush() error {
	return r.w.Flush()
}

// Close flushes and closes the underlying stream if it is closable. The
// stream is closed even when the flush fails.
func (r *Recorder) Close() error {
	var flushErr error
	if err := r.w.Flush(); err != nil {
		flushErr = fmt.Errorf("flush recording: %w", err)
	}
	if r.closer == nil {
		return flushErr
	}
	return errors.Join(flushErr, r.closer.Close())
}

// ReadSnapshot reads the next recorded snapshot. It returns io.EOF at a
// clean end of stream.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	b, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(b)
}
