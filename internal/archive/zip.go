// Package archive reads zip and jar containers front to back from their
// local file headers. The central directory is never consulted, so an
// archive is readable as soon as its entries are, and a damaged tail only
// affects the entries that sit in it.
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

// ErrFormat is returned for input that is not a readable zip stream.
var ErrFormat = errors.New("malformed zip")

const (
	sigLocalHeader    = 0x04034b50
	sigCentralHeader  = 0x02014b50
	sigEndOfCentral   = 0x06054b50
	sigEnd64          = 0x06064b50
	sigEnd64Locator   = 0x07064b50
	sigArchiveExtra   = 0x08064b50
	sigDataDescriptor = 0x08074b50

	localHeaderLen = 30

	flagEncrypted  = 0x1
	flagDescriptor = 0x8

	methodStore   = 0
	methodDeflate = 8

	extraZip64 = 0x0001
	max32      = 0xFFFFFFFF
)

// Entry is one member of a container.
type Entry struct {
	Name  string
	IsDir bool
	// Data is the uncompressed content. Stored entries alias the
	// container buffer and must not be modified.
	Data []byte
}

// Reader yields the entries of a zip held in memory.
type Reader struct {
	buf  []byte
	pos  int
	err  error
	done bool
}

// NewReader returns a Reader over data. An empty buffer is an empty
// container.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Next returns the next entry, or io.EOF once the local headers end. After
// an error every later call returns the same error.
func (r *Reader) Next() (*Entry, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.done {
		return nil, io.EOF
	}

	e, err := r.next()
	if err != nil {
		if err != io.EOF {
			r.err = err
		} else {
			r.done = true
		}
		return nil, err
	}
	return e, nil
}

func (r *Reader) fail(format string, args ...any) error {
	return fmt.Errorf("%w: offset %d: %s", ErrFormat, r.pos, fmt.Sprintf(format, args...))
}

func (r *Reader) next() (*Entry, error) {
	if r.pos == len(r.buf) {
		return nil, io.EOF
	}
	if len(r.buf)-r.pos < 4 {
		return nil, r.fail("truncated signature")
	}

	switch sig := binary.LittleEndian.Uint32(r.buf[r.pos:]); sig {
	case sigLocalHeader:
	case sigCentralHeader, sigEndOfCentral, sigEnd64, sigEnd64Locator, sigArchiveExtra:
		return nil, io.EOF
	default:
		return nil, r.fail("bad signature 0x%08x", sig)
	}

	if len(r.buf)-r.pos < localHeaderLen {
		return nil, r.fail("truncated local file header")
	}
	h := r.buf[r.pos : r.pos+localHeaderLen]
	flags := binary.LittleEndian.Uint16(h[6:])
	method := binary.LittleEndian.Uint16(h[8:])
	crc := binary.LittleEndian.Uint32(h[14:])
	csize := uint64(binary.LittleEndian.Uint32(h[18:]))
	usize := uint64(binary.LittleEndian.Uint32(h[22:]))
	nameLen := int(binary.LittleEndian.Uint16(h[26:]))
	extraLen := int(binary.LittleEndian.Uint16(h[28:]))

	start := r.pos + localHeaderLen
	if len(r.buf)-start < nameLen+extraLen {
		return nil, r.fail("truncated file name or extra field")
	}
	name := string(r.buf[start : start+nameLen])
	extra := r.buf[start+nameLen : start+nameLen+extraLen]
	dataStart := start + nameLen + extraLen

	if flags&flagEncrypted != 0 {
		return nil, r.fail("entry %q is encrypted", name)
	}
	if method != methodStore && method != methodDeflate {
		return nil, r.fail("entry %q uses unsupported method %d", name, method)
	}

	zip64 := false
	if csize == max32 || usize == max32 {
		var err error
		if usize, csize, err = zip64Sizes(extra, usize, csize); err != nil {
			return nil, r.fail("entry %q: %v", name, err)
		}
		zip64 = true
	}

	var (
		data []byte
		end  int
		err  error
	)
	switch {
	case flags&flagDescriptor == 0:
		data, end, err = r.sized(dataStart, method, csize, usize)
	case method == methodDeflate:
		data, crc, end, err = r.deflateWithDescriptor(dataStart, zip64)
	default:
		data, crc, end, err = r.storedWithDescriptor(dataStart)
	}
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", name, err)
	}

	if got := crc32.ChecksumIEEE(data); got != crc {
		return nil, r.fail("entry %q: crc32 mismatch (have 0x%08x, want 0x%08x)", name, got, crc)
	}

	r.pos = end
	return &Entry{Name: name, IsDir: strings.HasSuffix(name, "/"), Data: data}, nil
}

// sized reads an entry whose sizes are known from the local header.
func (r *Reader) sized(at int, method uint16, csize, usize uint64) ([]byte, int, error) {
	if csize > uint64(len(r.buf)-at) {
		return nil, 0, r.fail("entry data truncated (need %d bytes, have %d)", csize, len(r.buf)-at)
	}
	end := at + int(csize)
	raw := r.buf[at:end]

	if method == methodStore {
		if csize != usize {
			return nil, 0, r.fail("stored entry sizes disagree (%d != %d)", csize, usize)
		}
		return raw, end, nil
	}

	data, err := io.ReadAll(flate.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, 0, r.fail("inflate: %v", err)
	}
	if uint64(len(data)) != usize {
		return nil, 0, r.fail("inflated %d bytes, header says %d", len(data), usize)
	}
	return data, end, nil
}

// deflateWithDescriptor inflates until the deflate stream ends, then reads
// the data descriptor that follows it.
func (r *Reader) deflateWithDescriptor(at int, zip64 bool) ([]byte, uint32, int, error) {
	src := bytes.NewReader(r.buf[at:])
	data, err := io.ReadAll(flate.NewReader(src))
	if err != nil {
		return nil, 0, 0, r.fail("inflate: %v", err)
	}
	// bytes.Reader is an io.ByteReader, so the decompressor stops exactly
	// at the end of the deflate stream.
	consumed := r.buf[at:]
	consumed = consumed[:len(consumed)-src.Len()]

	q := at + len(consumed)
	if len(r.buf)-q >= 4 && binary.LittleEndian.Uint32(r.buf[q:]) == sigDataDescriptor {
		q += 4
	}
	d, ok := readDescriptor(r.buf[q:], uint64(len(consumed)), zip64)
	if !ok {
		return nil, 0, 0, r.fail("missing or inconsistent data descriptor")
	}
	if d.usize != uint64(len(data)) {
		return nil, 0, 0, r.fail("inflated %d bytes, descriptor says %d", len(data), d.usize)
	}
	return data, d.crc, q + d.length, nil
}

// storedWithDescriptor finds the end of a stored entry whose size is only
// recorded after the data. A candidate descriptor signature is accepted when
// its compressed size equals the distance from the data start and its CRC
// matches the bytes in between.
func (r *Reader) storedWithDescriptor(at int) ([]byte, uint32, int, error) {
	var sig [4]byte
	binary.LittleEndian.PutUint32(sig[:], sigDataDescriptor)

	for from := at; from < len(r.buf); {
		i := bytes.Index(r.buf[from:], sig[:])
		if i < 0 {
			break
		}
		q := from + i
		data := r.buf[at:q]
		for _, zip64 := range []bool{false, true} {
			d, ok := readDescriptor(r.buf[q+4:], uint64(len(data)), zip64)
			if ok && d.usize == uint64(len(data)) && crc32.ChecksumIEEE(data) == d.crc {
				return data, d.crc, q + 4 + d.length, nil
			}
		}
		from = q + 1
	}
	return nil, 0, 0, r.fail("no data descriptor found for stored entry")
}

type descriptor struct {
	crc    uint32
	csize  uint64
	usize  uint64
	length int
}

// readDescriptor parses a data descriptor body (after any signature) and
// checks its compressed size against csize. Without zip64 a 64-bit layout is
// still accepted when only it agrees.
func readDescriptor(b []byte, csize uint64, zip64 bool) (descriptor, bool) {
	if !zip64 && len(b) >= 12 {
		d := descriptor{
			crc:    binary.LittleEndian.Uint32(b),
			csize:  uint64(binary.LittleEndian.Uint32(b[4:])),
			usize:  uint64(binary.LittleEndian.Uint32(b[8:])),
			length: 12,
		}
		if d.csize == csize {
			return d, true
		}
	}
	if len(b) >= 20 {
		d := descriptor{
			crc:    binary.LittleEndian.Uint32(b),
			csize:  binary.LittleEndian.Uint64(b[4:]),
			usize:  binary.LittleEndian.Uint64(b[12:]),
			length: 20,
		}
		if d.csize == csize {
			return d, true
		}
	}
	return descriptor{}, false
}

// zip64Sizes replaces saturated 32-bit sizes with the values from the ZIP64
// extended information field. The field lists only the saturated sizes,
// uncompressed first.
func zip64Sizes(extra []byte, usize, csize uint64) (uint64, uint64, error) {
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra)
		size := int(binary.LittleEndian.Uint16(extra[2:]))
		if len(extra)-4 < size {
			return 0, 0, errors.New("truncated extra field")
		}
		body := extra[4 : 4+size]
		extra = extra[4+size:]
		if id != extraZip64 {
			continue
		}

		if usize == max32 {
			if len(body) < 8 {
				return 0, 0, errors.New("short zip64 extra field")
			}
			usize = binary.LittleEndian.Uint64(body)
			body = body[8:]
		}
		if csize == max32 {
			if len(body) < 8 {
				return 0, 0, errors.New("short zip64 extra field")
			}
			csize = binary.LittleEndian.Uint64(body)
		}
		return usize, csize, nil
	}
	// Data-descriptor entries may saturate the header without a zip64
	// field; the descriptor carries the real sizes.
	return usize, csize, nil
}
