package cluster

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertSameLabeling(t *testing.T, want, got *Labeling) {
	t.Helper()
	assert.Equal(t, want.Radius, got.Radius)
	assert.Equal(t, want.Size, got.Size)
	assert.Equal(t, want.Labels, got.Labels)
	assert.Equal(t, want.Counts, got.Counts)
	assert.Equal(t, want.Sizes(), got.Sizes())
	assert.Equal(t, want.PointLabels(), got.PointLabels())
	assert.Equal(t, want.NumClusters(), got.NumClusters())
}

func TestSnapshotRoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		points []Point
		radius float64
	}{
		{"blobs", GenerateBlobs(3000, 5, 0.02, 42), 0.01},
		{"uniform", GenerateTestPoints(500, 42), 0.05},
		{"empty", nil, 0.3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			want, err := Cluster(tc.points, tc.radius)
			require.NoError(t, err)
			dir := t.TempDir()

			compressed := filepath.Join(dir, "run.zst")
			require.NoError(t, SaveCompressed(compressed, want))
			got, err := LoadCompressed(compressed)
			require.NoError(t, err)
			assertSameLabeling(t, want, got)

			mapped := filepath.Join(dir, "run.bin")
			require.NoError(t, SaveMapped(mapped, want))
			fi, err := os.Stat(mapped)
			require.NoError(t, err)
			assert.Equal(t, snapshotSize(want), fi.Size())

			got, err = LoadMapped(mapped)
			require.NoError(t, err)
			assertSameLabeling(t, want, got)
		})
	}
}

func TestReadCompressedRejectsGarbage(t *testing.T) {
	_, err := ReadCompressed(bytes.NewReader([]byte("definitely not zstd")))
	assert.Error(t, err)
}

func TestDecodeSnapshotErrors(t *testing.T) {
	l, err := Cluster([]Point{{0.1, 0.1}, {0.5, 0.5}}, 0.2)
	require.NoError(t, err)
	good := make([]byte, snapshotSize(l))
	encodeSnapshot(NewMMapWriter(good), l)

	_, err = decodeSnapshot(NewMMapReader(good))
	require.NoError(t, err)

	badMagic := append([]byte(nil), good...)
	copy(badMagic, "XXXX")
	_, err = decodeSnapshot(NewMMapReader(badMagic))
	assert.ErrorIs(t, err, ErrBadSnapshot)

	badVersion := append([]byte(nil), good...)
	badVersion[4] = 9
	_, err = decodeSnapshot(NewMMapReader(badVersion))
	assert.ErrorIs(t, err, ErrBadSnapshot)

	_, err = decodeSnapshot(NewMMapReader(good[:len(good)-4]))
	assert.ErrorIs(t, err, ErrBadSnapshot)

	_, err = decodeSnapshot(NewMMapReader(good[:10]))
	assert.ErrorIs(t, err, ErrBadSnapshot)

	_, err = decodeSnapshot(NewMMapReader(nil))
	assert.ErrorIs(t, err, ErrBadSnapshot)

	// A huge grid size in the header must not be trusted.
	hugeSize := append([]byte(nil), good...)
	w := NewMMapWriter(hugeSize[8:])
	w.WriteUint32(1 << 30)
	_, err = decodeSnapshot(NewMMapReader(hugeSize))
	assert.ErrorIs(t, err, ErrBadSnapshot)
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadCompressed(filepath.Join(dir, "missing.zst"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadMapped(filepath.Join(dir, "missing.bin"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMMapReaderStopsAtEnd(t *testing.T) {
	r := NewMMapReader([]byte{1, 0, 2, 0, 0, 0})
	assert.Equal(t, uint16(1), r.ReadUint16())
	assert.Equal(t, uint32(2), r.ReadUint32())
	assert.Zero(t, r.Remaining())
	require.NoError(t, r.Err())

	assert.Zero(t, r.ReadFloat64())
	assert.ErrorIs(t, r.Err(), ErrBadSnapshot)
	assert.Nil(t, r.ReadBytes(1))
}
