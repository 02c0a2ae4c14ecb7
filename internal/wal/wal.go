// Package wal implements the append-only, sequenced, checksummed event log
// described in spec.md §4.1. It is the durability boundary: every event that
// ever reaches the runtime has first survived an append to this file.
package wal

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/groblegark/oddjobs/internal/core"
)

// Frame is one on-disk record: a sequence number, the event's wire name, and
// its JSON payload. Encode/Decode live here so both the writer and the
// reader agree on layout without depending on the runtime package.
type Frame struct {
	Seq     uint64
	Name    string
	Payload []byte
}

const checksumSize = 32

// encode writes length-prefixed "seq(8) | nameLen(2) | name | payloadLen(4)
// | payload | checksum(32)" where checksum is blake2b-256 over everything
// preceding it. The explicit length prefixes let a reader detect a truncated
// trailing frame (a partial write during a crash) without scanning for a
// delimiter that could appear inside a payload.
func (f Frame) encode() []byte {
	nameBytes := []byte(f.Name)
	buf := make([]byte, 0, 8+2+len(nameBytes)+4+len(f.Payload)+checksumSize)
	var tmp [8]byte

	binary.LittleEndian.PutUint64(tmp[:], f.Seq)
	buf = append(buf, tmp[:]...)

	var tmp2 [2]byte
	binary.LittleEndian.PutUint16(tmp2[:], uint16(len(nameBytes)))
	buf = append(buf, tmp2[:]...)
	buf = append(buf, nameBytes...)

	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], uint32(len(f.Payload)))
	buf = append(buf, tmp4[:]...)
	buf = append(buf, f.Payload...)

	sum := blake2b.Sum256(buf)
	buf = append(buf, sum[:]...)
	return buf
}

// decodeFrame reads exactly one frame from r. It returns io.EOF (or
// io.ErrUnexpectedEOF for a short trailing frame) when no complete, valid
// frame is available — both are treated identically by the caller: stop
// reading, discard whatever bytes remain.
func decodeFrame(r io.Reader) (Frame, error) {
	var header [8 + 2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}
	seq := binary.LittleEndian.Uint64(header[0:8])
	nameLen := binary.LittleEndian.Uint16(header[8:10])

	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return Frame{}, io.ErrUnexpectedEOF
	}

	var payloadLenBuf [4]byte
	if _, err := io.ReadFull(r, payloadLenBuf[:]); err != nil {
		return Frame{}, io.ErrUnexpectedEOF
	}
	payloadLen := binary.LittleEndian.Uint32(payloadLenBuf[:])

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, io.ErrUnexpectedEOF
	}

	var sum [checksumSize]byte
	if _, err := io.ReadFull(r, sum[:]); err != nil {
		return Frame{}, io.ErrUnexpectedEOF
	}

	f := Frame{Seq: seq, Name: string(nameBuf), Payload: payload}
	want := f.encode()
	got := want[len(want)-checksumSize:]
	if string(got) != string(sum[:]) {
		return Frame{}, fmt.Errorf("wal: checksum mismatch at seq %d", seq)
	}
	return f, nil
}

// WAL is the single-writer, append-only log. The reader side (entries
// after a given seq) is only ever used once, at startup replay; during
// normal operation the EventBus is the sole consumer of newly appended
// events, fed directly rather than by re-reading the file.
type WAL struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	lastSeq  uint64
	registry *Registry
}

// Open opens or creates the log at path. If processedSeq is non-zero
// (resuming from a snapshot), the caller is expected to call EntriesAfter
// rather than Open re-scanning the whole file; Open itself always scans the
// tail to recover lastSeq and to discard a truncated trailing frame.
func Open(path string, reg *Registry) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}

	lastSeq, validLen, err := scanValidLength(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Truncate(validLen); err != nil {
		f.Close()
		return nil, fmt.Errorf("wal: truncate corrupt tail: %w", err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}

	return &WAL{
		file:     f,
		writer:   bufio.NewWriter(f),
		lastSeq:  lastSeq,
		registry: reg,
	}, nil
}

// scanValidLength walks every frame from the start of the file, returning
// the last valid sequence number seen and the byte length up to (and
// including) the last valid frame. Any trailing bytes that don't form a
// complete, checksum-valid frame are corruption from a partial write and are
// silently dropped, never replayed (spec.md §4.1 guarantee c).
func scanValidLength(f *os.File) (lastSeq uint64, validLen int64, err error) {
	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	r := bufio.NewReader(f)
	var offset int64
	for {
		frame, ferr := decodeFrame(r)
		if ferr != nil {
			break
		}
		encoded := frame.encode()
		offset += int64(len(encoded))
		lastSeq = frame.Seq
	}
	return lastSeq, offset, nil
}

// Append writes event, assigning it the next sequence number, and returns
// that sequence. The frame is in the OS page cache when Append returns;
// durability requires a subsequent Flush (spec.md §4.1 guarantee a/b).
func (w *WAL) Append(event core.Event) (uint64, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("wal: marshal %s: %w", event.EventName(), err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	seq := w.lastSeq + 1
	frame := Frame{Seq: seq, Name: event.EventName(), Payload: payload}
	if _, err := w.writer.Write(frame.encode()); err != nil {
		return 0, fmt.Errorf("wal: append: %w", err)
	}
	w.lastSeq = seq
	return seq, nil
}

// Flush forces durability: drains the buffered writer and fsyncs the file.
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("wal: flush: %w", err)
	}
	return w.file.Sync()
}

// ProcessedSeq returns the highest sequence number ever appended to this
// handle (the "hint" a caller can pass to EntriesAfter after a restart).
func (w *WAL) ProcessedSeq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeq
}

// Close flushes and closes the underlying file.
func (w *WAL) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// EntriesAfter returns every decoded event with Seq > after, in order. Used
// only during startup replay (spec.md §4.10 step 5).
func (w *WAL) EntriesAfter(after uint64) ([]core.Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return nil, err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	r := bufio.NewReader(w.file)

	var out []core.Event
	for {
		frame, err := decodeFrame(r)
		if err != nil {
			break
		}
		if frame.Seq <= after {
			continue
		}
		ev, err := w.registry.Decode(frame.Name, frame.Payload)
		if err != nil {
			return nil, fmt.Errorf("wal: decode frame seq %d: %w", frame.Seq, err)
		}
		out = append(out, ev)
	}
	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	return out, nil
}
