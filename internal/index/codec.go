package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Snapshot layout (little-endian):
//
//	magic   [4]byte  "DSIX"
//	version uint32
//	dim     uint32
//	count   uint32
//	rows    count*dim*4 bytes of raw IEEE-754 float32 bits
//
// Floats are written as their exact bit patterns so a save/load cycle
// reproduces identical inner-product results, with no numeric drift
// across runs.

var indexMagic = [4]byte{'D', 'S', 'I', 'X'}

const codecVersion = 1

// ErrBadSnapshot is returned when a persisted index artifact cannot be
// decoded.
var ErrBadSnapshot = errors.New("unreadable index snapshot")

// WriteTo serializes the index. Implements io.WriterTo.
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	var written int64

	if _, err := w.Write(indexMagic[:]); err != nil {
		return written, err
	}
	written += 4

	header := []uint32{codecVersion, uint32(f.dim), uint32(f.Len())}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return written, err
		}
		written += 4
	}

	buf := make([]byte, 4*len(f.vectors))
	for i, v := range f.vectors {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	n, err := w.Write(buf)
	written += int64(n)
	return written, err
}

// ReadFlat deserializes an index previously written with WriteTo.
func ReadFlat(r io.Reader) (*Flat, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadSnapshot, magic[:])
	}

	var version, dim, count uint32
	for _, dst := range []*uint32{&version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
		}
	}
	if version != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, version)
	}
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero dimension", ErrBadSnapshot)
	}

	buf := make([]byte, 4*int(dim)*int(count))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: truncated rows: %v", ErrBadSnapshot, err)
	}

	f := &Flat{dim: int(dim), vectors: make([]float32, int(dim)*int(count))}
	for i := range f.vectors {
		f.vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return f, nil
}
