package cluster

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// SaveCompressed writes a zstd compressed snapshot of l to filename.
func SaveCompressed(filename string, l *Labeling) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := WriteCompressed(file, l); err != nil {
		return err
	}
	return file.Sync()
}

// WriteCompressed streams a zstd compressed snapshot of l to w.
func WriteCompressed(w io.Writer, l *Labeling) error {
	payload := make([]byte, snapshotSize(l))
	encodeSnapshot(NewMMapWriter(payload), l)

	bufWriter := bufio.NewWriterSize(w, 1024*1024)
	enc, err := zstd.NewWriter(bufWriter,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}

	if _, err := enc.Write(payload); err != nil {
		enc.Close()
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}
	if err := bufWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	return nil
}

// LoadCompressed reads a snapshot written by SaveCompressed.
func LoadCompressed(filename string) (*Labeling, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadCompressed(file)
}

// ReadCompressed decodes a zstd compressed snapshot from r.
func ReadCompressed(r io.Reader) (*Labeling, error) {
	dec, err := zstd.NewReader(bufio.NewReaderSize(r, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	payload, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	return decodeSnapshot(NewMMapReader(payload))
}
