// Package snapshot stores a set of named filters in a single file.
//
// File layout:
//
//	+--------------------------+  8B magic "BLMSNAP1"
//	| header                   |  8B little-endian payload length
//	+--------------------------+
//	| payload                  |  varint count, then per filter:
//	|                          |  varint name length, name, codec record
//	+--------------------------+
//	| xxhash64(payload)        |  8B little-endian
//	+--------------------------+
//	| zero padding             |  up to a multiple of directio.BlockSize
//	+--------------------------+
//
// The padding keeps every write and read block aligned so the file can be
// accessed with O_DIRECT.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	codec "github.com/brown-csci1270/bloomdb/pkg/codec"
	filter "github.com/brown-csci1270/bloomdb/pkg/filter"
	logger "github.com/brown-csci1270/bloomdb/pkg/logger"

	xxhash "github.com/cespare/xxhash"
	directio "github.com/ncw/directio"
	cp "github.com/otiai10/copy"
	errgroup "golang.org/x/sync/errgroup"
)

const Magic = "BLMSNAP1"

const (
	headerSize  = 16
	trailerSize = 8
)

// Entry is one named filter in a snapshot.
type Entry struct {
	Name   string
	Filter *filter.Filter
}

// Options control how the snapshot file is accessed.
type Options struct {
	// DirectIO opens the file with O_DIRECT. Some filesystems (tmpfs) reject it.
	DirectIO bool
}

func openFile(path string, flag int, opts Options) (*os.File, error) {
	if opts.DirectIO {
		return directio.OpenFile(path, flag, 0666)
	}
	return os.OpenFile(path, flag, 0666)
}

// BackupPath is where the previous snapshot is kept while a new one is written.
func BackupPath(path string) string {
	return path + ".bak"
}

// Encode builds the framed, padded snapshot image of entries. Records are
// encoded concurrently; callers must keep the filters stable until it returns.
func Encode(entries []Entry, typ codec.Type) ([]byte, error) {
	records := make([][]byte, len(entries))
	var group errgroup.Group
	for i := range entries {
		i := i
		group.Go(func() error {
			var buf bytes.Buffer
			if err := typ.Save(&buf, entries[i].Filter); err != nil {
				return fmt.Errorf("encode %q: %w", entries[i].Name, err)
			}
			records[i] = buf.Bytes()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	payload := binary.AppendVarint(nil, int64(len(entries)))
	for i, e := range entries {
		payload = binary.AppendVarint(payload, int64(len(e.Name)))
		payload = append(payload, e.Name...)
		payload = append(payload, records[i]...)
	}

	used := headerSize + len(payload) + trailerSize
	size := (used + directio.BlockSize - 1) / directio.BlockSize * directio.BlockSize
	image := directio.AlignedBlock(size)
	copy(image, Magic)
	binary.LittleEndian.PutUint64(image[8:headerSize], uint64(len(payload)))
	copy(image[headerSize:], payload)
	binary.LittleEndian.PutUint64(image[headerSize+len(payload):], xxhash.Sum64(payload))
	return image, nil
}

// Write saves entries to path atomically. An existing snapshot is first
// copied to BackupPath(path).
func Write(path string, entries []Entry, typ codec.Type, opts Options) error {
	image, err := Encode(entries, typ)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		if err := cp.Copy(path, BackupPath(path)); err != nil {
			return fmt.Errorf("snapshot backup: %w", err)
		}
	}
	tmp := path + ".tmp"
	file, err := openFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, opts)
	if err != nil {
		return err
	}
	if _, err := file.Write(image); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	logger.Sugar.Infof("snapshot: wrote %d filters (%d bytes) to %s", len(entries), len(image), path)
	return nil
}

// Read loads every filter stored at path. The caller owns the returned
// filters. A missing file is reported with an error satisfying
// errors.Is(err, os.ErrNotExist).
func Read(path string, typ codec.Type, opts Options) ([]Entry, error) {
	file, err := openFile(path, os.O_RDONLY, opts)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size < directio.BlockSize || size%directio.BlockSize != 0 {
		return nil, fmt.Errorf("%w: snapshot size %d is not block aligned", codec.ErrDecodeFailure, size)
	}
	image := directio.AlignedBlock(int(size))
	if _, err := io.ReadFull(file, image); err != nil {
		return nil, err
	}
	entries, err := Decode(image, typ)
	if err != nil {
		return nil, err
	}
	logger.Sugar.Infof("snapshot: read %d filters from %s", len(entries), path)
	return entries, nil
}

// Decode parses an image produced by Encode.
func Decode(image []byte, typ codec.Type) ([]Entry, error) {
	if len(image) < headerSize+trailerSize || string(image[:8]) != Magic {
		return nil, fmt.Errorf("%w: bad snapshot magic", codec.ErrDecodeFailure)
	}
	length := binary.LittleEndian.Uint64(image[8:headerSize])
	if length > uint64(len(image)-headerSize-trailerSize) {
		return nil, fmt.Errorf("%w: payload length %d exceeds file", codec.ErrDecodeFailure, length)
	}
	payload := image[headerSize : headerSize+int(length)]
	sum := binary.LittleEndian.Uint64(image[headerSize+int(length):])
	if sum != xxhash.Sum64(payload) {
		return nil, fmt.Errorf("%w: snapshot checksum mismatch", codec.ErrDecodeFailure)
	}

	r := bytes.NewReader(payload)
	count, err := binary.ReadVarint(r)
	if err != nil || count < 0 || count > int64(r.Len()) {
		return nil, fmt.Errorf("%w: bad entry count", codec.ErrDecodeFailure)
	}
	entries := make([]Entry, 0, count)
	fail := func(err error) ([]Entry, error) {
		for _, e := range entries {
			typ.Free(e.Filter)
		}
		return nil, err
	}
	for i := int64(0); i < count; i++ {
		nameLen, err := binary.ReadVarint(r)
		if err != nil || nameLen < 0 || nameLen > int64(r.Len()) {
			return fail(fmt.Errorf("%w: bad name length in entry %d", codec.ErrDecodeFailure, i))
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return fail(fmt.Errorf("%w: entry %d: %v", codec.ErrDecodeFailure, i, err))
		}
		f, err := typ.Load(r, codec.Version)
		if err != nil {
			return fail(fmt.Errorf("entry %q: %w", name, err))
		}
		entries = append(entries, Entry{Name: string(name), Filter: f})
	}
	if r.Len() != 0 {
		return fail(fmt.Errorf("%w: %d trailing payload bytes", codec.ErrDecodeFailure, r.Len()))
	}
	return entries, nil
}

// IsNotExist reports whether err means there was no snapshot to read.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
