package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/glassbead-io/prism/types"
)

// Frame size constants for the capture file format.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a capture frame error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFrameError returns true if err is a capture frame error.
func IsFrameError(err error) bool {
	var fe *FrameError
	return errors.As(err, &fe)
}

// Writer appends length-prefixed msgpack records to a capture stream.
// Implements session.EventSink. Not safe for concurrent use; one writer
// serves one session's sequential loop.
type Writer struct {
	w   io.Writer
	seq int64
	now func() time.Time
}

// NewWriter creates a capture writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, now: time.Now}
}

// WriteEvent serializes one decoded event as the next record.
func (w *Writer) WriteEvent(ev types.Event) error {
	record := FromEvent(ev)
	w.seq++
	record.Seq = w.seq
	record.Ts = w.now().UTC().Format(time.RFC3339Nano)
	return w.writeRecord(record)
}

// Count returns the number of records written.
func (w *Writer) Count() int64 {
	return w.seq
}

func (w *Writer) writeRecord(record Record) error {
	payload, err := msgpack.Marshal(record)
	if err != nil {
		return &FrameError{Kind: FrameErrorDecode, Msg: "failed to encode record", Err: err}
	}
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}

	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := w.w.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// Decoder reads length-prefixed msgpack records from a capture stream.
type Decoder struct {
	reader io.Reader
}

// NewDecoder creates a capture decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: r}
}

// ReadRecord reads a single record from the stream.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more records)
//   - *FrameError with Kind=FrameErrorPartial: truncated frame
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit
//   - *FrameError with Kind=FrameErrorDecode: undecodable payload
func (d *Decoder) ReadRecord() (*Record, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}

	var record Record
	if err := msgpack.Unmarshal(payload, &record); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode record",
			Err:  err,
		}
	}
	return &record, nil
}

// Replay reads records until EOF, converting each back to its event and
// passing it to fn in captured order.
func Replay(r io.Reader, fn func(ev types.Event)) error {
	decoder := NewDecoder(r)
	for {
		record, err := decoder.ReadRecord()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		ev, err := record.Event()
		if err != nil {
			return err
		}
		fn(ev)
	}
}
