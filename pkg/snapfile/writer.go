package snapfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"github.com/rawbytedev/relo"
	"github.com/rawbytedev/relo/internal/common"
)

// Writer is a file-backed relo.Target. Appends go through a buffered
// writer; patches flush it and overwrite in place with WriteAt, so offsets
// handed out by Write stay valid for the lifetime of the Writer. Errors are
// sticky: the first failure is kept and every later call is a no-op, the
// way the engine expects a Target to behave.
type Writer struct {
	f           *os.File
	w           *bufio.Writer
	size        relo.Offset // payload bytes written so far
	err         error
	scratch     [8]byte
	zeroPadding [8]byte
}

var _ relo.Target = (*Writer)(nil)

// Create opens path for writing and reserves the container header; the
// payload length is patched in by Close.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot file: %w", err)
	}
	w := &Writer{f: f, w: bufio.NewWriterSize(f, 1<<16)}
	hdr := encodeHeader(nil, Header{Magic: MagicV1, Version: VersionV1})
	if _, err := w.w.Write(hdr); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write snapshot header: %w", err)
	}
	return w, nil
}

func (w *Writer) setErr(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) Write(p unsafe.Pointer, size, align relo.Offset) relo.Offset {
	pad := common.Padding(uint64(w.size), uint64(align))
	if pad > 0 {
		if _, err := w.w.Write(w.zeroPadding[:pad]); err != nil {
			w.setErr(err)
		}
		w.size += relo.Offset(pad)
	}
	start := w.size
	if size > 0 {
		if _, err := w.w.Write(unsafe.Slice((*byte)(p), size)); err != nil {
			w.setErr(err)
		}
		w.size += size
	}
	return start
}

func (w *Writer) PatchUint64(pos relo.Offset, v uint64) {
	binary.NativeEndian.PutUint64(w.scratch[:], v)
	w.patch(pos, w.scratch[:])
}

func (w *Writer) PatchByte(pos relo.Offset, v byte) {
	w.scratch[0] = v
	w.patch(pos, w.scratch[:1])
}

func (w *Writer) patch(pos relo.Offset, b []byte) {
	if w.err != nil {
		return
	}
	if err := w.w.Flush(); err != nil {
		w.setErr(err)
		return
	}
	if _, err := w.f.WriteAt(b, HeaderSize+int64(pos)); err != nil {
		w.setErr(err)
	}
}

func (w *Writer) Err() error { return w.err }

// Size returns the payload bytes written so far.
func (w *Writer) Size() relo.Offset { return w.size }

// Close finalizes the header (payload length plus a CRC over the patched
// payload), syncs and closes the file. It returns the sticky write error,
// if any, so callers that only check Close still see failures.
func (w *Writer) Close() error {
	flushErr := w.w.Flush()

	var hdrErr error
	if w.err == nil && flushErr == nil {
		hdrErr = w.finalizeHeader()
	}

	syncErr := w.f.Sync()
	closeErr := w.f.Close()
	return errors.Join(w.err, flushErr, hdrErr, syncErr, closeErr)
}

// finalizeHeader re-reads the payload (patches land out of append order, so
// the checksum can only be taken at the end) and stamps the header.
func (w *Writer) finalizeHeader() error {
	crc := crc32.NewIEEE()
	if _, err := io.Copy(crc, io.NewSectionReader(w.f, HeaderSize, int64(w.size))); err != nil {
		return err
	}

	hdr := encodeHeader(nil, Header{
		Magic:      MagicV1,
		Version:    VersionV1,
		Flags:      FlagChecksum,
		PayloadLen: uint64(w.size),
		Checksum:   crc.Sum32(),
	})
	_, err := w.f.WriteAt(hdr, 0)
	return err
}
