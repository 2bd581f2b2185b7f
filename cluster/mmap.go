package cluster

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
)

const (
	snapshotMagic   = "CCLS"
	snapshotVersion = uint16(1)

	// magic, version, reserved, size, clusters, points, radius
	snapshotHeaderSize = 4 + 2 + 2 + 4 + 4 + 4 + 8
)

// ErrBadSnapshot is returned for files that are not labeling snapshots.
var ErrBadSnapshot = errors.New("invalid labeling snapshot")

// MMapWriter writes little-endian values into a mapped region.
type MMapWriter struct {
	data   []byte
	offset int
}

func NewMMapWriter(data []byte) *MMapWriter {
	return &MMapWriter{data: data}
}

func (w *MMapWriter) WriteUint16(v uint16) {
	binary.LittleEndian.PutUint16(w.data[w.offset:], v)
	w.offset += 2
}

func (w *MMapWriter) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.data[w.offset:], v)
	w.offset += 4
}

func (w *MMapWriter) WriteFloat64(v float64) {
	binary.LittleEndian.PutUint64(w.data[w.offset:], math.Float64bits(v))
	w.offset += 8
}

func (w *MMapWriter) WriteBytes(b []byte) {
	copy(w.data[w.offset:], b)
	w.offset += len(b)
}

// MMapReader reads little-endian values from a mapped region. Reads past the
// end set an error instead of panicking; check Err once decoding is done.
type MMapReader struct {
	data   []byte
	offset int
	err    error
}

func NewMMapReader(data []byte) *MMapReader {
	return &MMapReader{data: data}
}

func (r *MMapReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.offset+n > len(r.data) {
		r.err = fmt.Errorf("%w: truncated at offset %d", ErrBadSnapshot, r.offset)
		return nil
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

func (r *MMapReader) ReadUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *MMapReader) ReadUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *MMapReader) ReadFloat64() float64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (r *MMapReader) ReadBytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Remaining returns the number of unread bytes.
func (r *MMapReader) Remaining() int {
	return len(r.data) - r.offset
}

func (r *MMapReader) Err() error {
	return r.err
}

// snapshotSize returns the encoded size of l in bytes.
func snapshotSize(l *Labeling) int64 {
	cells := int64(l.Size) * int64(l.Size)
	return snapshotHeaderSize +
		cells*4 + // labels
		cells*4 + // counts
		int64(len(l.sizes))*4 +
		int64(len(l.pointLabels))*4
}

func encodeSnapshot(w *MMapWriter, l *Labeling) {
	w.WriteBytes([]byte(snapshotMagic))
	w.WriteUint16(snapshotVersion)
	w.WriteUint16(0)
	w.WriteUint32(uint32(l.Size))
	w.WriteUint32(uint32(len(l.sizes)))
	w.WriteUint32(uint32(len(l.pointLabels)))
	w.WriteFloat64(l.Radius)

	for _, label := range l.Labels {
		w.WriteUint32(uint32(label))
	}
	for _, c := range l.Counts {
		w.WriteUint32(uint32(c))
	}
	for _, s := range l.sizes {
		w.WriteUint32(uint32(s))
	}
	for _, label := range l.pointLabels {
		w.WriteUint32(uint32(label))
	}
}

func decodeSnapshot(r *MMapReader) (*Labeling, error) {
	if string(r.ReadBytes(len(snapshotMagic))) != snapshotMagic {
		if err := r.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: bad magic", ErrBadSnapshot)
	}
	if v := r.ReadUint16(); v != snapshotVersion {
		if err := r.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, v)
	}
	r.ReadUint16()

	size := int(r.ReadUint32())
	numClusters := int(r.ReadUint32())
	numPoints := int(r.ReadUint32())
	radius := r.ReadFloat64()
	if err := r.Err(); err != nil {
		return nil, err
	}

	remaining := int64(r.Remaining())
	if size > 0 && int64(size) > remaining/8/int64(size) {
		return nil, fmt.Errorf("%w: grid size %d does not fit payload", ErrBadSnapshot, size)
	}
	cells := size * size
	want := int64(cells)*8 + int64(numClusters)*4 + int64(numPoints)*4
	if want != remaining {
		return nil, fmt.Errorf("%w: payload is %d bytes, header expects %d", ErrBadSnapshot, remaining, want)
	}

	l := &Labeling{
		Radius:      radius,
		Size:        size,
		Labels:      make([]Label, cells),
		Counts:      make([]int, cells),
		sizes:       make([]int, numClusters),
		pointLabels: make([]Label, numPoints),
	}
	for i := range l.Labels {
		l.Labels[i] = Label(r.ReadUint32())
	}
	for i := range l.Counts {
		l.Counts[i] = int(r.ReadUint32())
	}
	for i := range l.sizes {
		l.sizes[i] = int(r.ReadUint32())
	}
	for i := range l.pointLabels {
		l.pointLabels[i] = Label(r.ReadUint32())
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

// SaveMapped writes an uncompressed snapshot of l through a memory map.
func SaveMapped(filename string, l *Labeling) error {
	size := snapshotSize(l)

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := file.Truncate(size); err != nil {
		return fmt.Errorf("failed to truncate file: %w", err)
	}

	data, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to mmap file: %w", err)
	}

	encodeSnapshot(NewMMapWriter(data), l)

	if err := data.Flush(); err != nil {
		data.Unmap()
		return fmt.Errorf("failed to flush mmap: %w", err)
	}
	if err := data.Unmap(); err != nil {
		return fmt.Errorf("failed to unmap file: %w", err)
	}
	return nil
}

// LoadMapped reads a snapshot written by SaveMapped.
func LoadMapped(filename string) (*Labeling, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}
	defer data.Unmap()

	return decodeSnapshot(NewMMapReader(data))
}
