// Package codec reads and writes the persisted form of a filter.
//
// A record is four fields in fixed order, each integer a signed varint:
//
//	[version]    always Version
//	[hash_times]
//	[bit_length] bit count; the raw field is StorageBytes(bit_length) long
//	[raw]        packed storage, verbatim
//
// A record is only readable under the version that wrote it.
package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	filter "github.com/brown-csci1270/bloomdb/pkg/filter"
	memory "github.com/brown-csci1270/bloomdb/pkg/memory"
)

// Version is the only record version this package reads or writes.
const Version = 1

var ErrDecodeFailure = errors.New("decode failure")

// Encode writes f as a record.
func Encode(w io.Writer, f *filter.Filter) error {
	header := make([]byte, 0, 3*binary.MaxVarintLen64)
	header = binary.AppendVarint(header, Version)
	header = binary.AppendVarint(header, int64(f.HashTimes()))
	header = binary.AppendVarint(header, int64(f.BitLength()))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(f.Bytes())
	return err
}

// Decode reads one record from r, allocating the filter's storage from
// alloc. r is read up to the end of the record and no further when it is an
// io.ByteReader; otherwise it is buffered and should not be reused. When r
// reports its unread length (bytes.Reader does), a record claiming more raw
// bytes than remain fails without allocating.
func Decode(r io.Reader, alloc memory.Allocator) (*filter.Filter, error) {
	br, ok := r.(byteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	version, err := readInt(br, "version")
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrDecodeFailure, version, Version)
	}
	hashTimes, err := readInt(br, "hash_times")
	if err != nil {
		return nil, err
	}
	bitLength, err := readInt(br, "bit_length")
	if err != nil {
		return nil, err
	}
	if hashTimes < 1 || hashTimes > math.MaxInt32 || bitLength < 1 {
		return nil, fmt.Errorf("%w: hash_times %d, bit_length %d", ErrDecodeFailure, hashTimes, bitLength)
	}
	// Refuse sizes the input cannot hold before allocating for them.
	if l, ok := r.(lener); ok && filter.StorageBytes(uint64(bitLength)) > int64(l.Len()) {
		return nil, fmt.Errorf("%w: bit_length %d exceeds the %d remaining bytes", ErrDecodeFailure, bitLength, l.Len())
	}
	f, err := filter.New(alloc, int(hashTimes), uint64(bitLength))
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(br, f.Bytes()); err != nil {
		f.Destroy()
		return nil, fmt.Errorf("%w: raw bytes: %v", ErrDecodeFailure, err)
	}
	return f, nil
}

type lener interface {
	Len() int
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

func readInt(r io.ByteReader, field string) (int64, error) {
	v, err := binary.ReadVarint(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrDecodeFailure, field, err)
	}
	return v, nil
}
