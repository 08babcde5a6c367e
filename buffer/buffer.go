package buffer

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/hostffi/errors"
)

// PrefixSize is the length of the self-describing size header.
const PrefixSize = 8

// Buffer is a non-owning handle to a host memory region. It never copies:
// slices and views it returns alias the region and must not outlive it.
//
// The zero Buffer refers to no memory.
type Buffer struct {
	ptr    unsafe.Pointer
	data   []byte
	mem    api.Memory
	offset uint32
	kind   backing
}

type backing uint8

const (
	backingNone backing = iota
	backingPointer
	backingBytes
	backingMemory
)

// FromPointer wraps a raw host address, typically the result of the host's
// buffer_get_address passed across the boundary as text.
//
// The region behind p is not checked; the caller guarantees it is at least as
// long as any length later asserted through Slice or the size prefix.
func FromPointer(p unsafe.Pointer) Buffer {
	if p == nil {
		return Buffer{}
	}
	return Buffer{ptr: p, kind: backingPointer}
}

// FromBytes wraps Go memory. Accesses are bounds checked against len(b).
func FromBytes(b []byte) Buffer {
	return Buffer{data: b, kind: backingBytes}
}

// FromMemory wraps a region of wazero guest memory starting at offset.
// Accesses are bounds checked against the memory size.
func FromMemory(mem api.Memory, offset uint32) Buffer {
	if mem == nil {
		return Buffer{}
	}
	return Buffer{mem: mem, offset: offset, kind: backingMemory}
}

// IsNil reports whether b refers to no memory.
func (b Buffer) IsNil() bool {
	return b.kind == backingNone
}

// Pointer returns the address of the first byte, or nil when the buffer is
// empty or lives in guest memory whose address is not stable.
func (b Buffer) Pointer() unsafe.Pointer {
	switch b.kind {
	case backingPointer:
		return b.ptr
	case backingBytes:
		if len(b.data) == 0 {
			return nil
		}
		return unsafe.Pointer(&b.data[0])
	}
	return nil
}

// Slice returns the first n bytes of the region.
func (b Buffer) Slice(n int) ([]byte, error) {
	return b.window(0, n)
}

// SizedSlice reads the 8-byte little-endian length prefix and returns the
// bytes that follow it. The prefix counts itself, so a prefix of n+8 exposes
// n bytes starting at offset 8.
func (b Buffer) SizedSlice() ([]byte, error) {
	head, err := b.window(0, PrefixSize)
	if err != nil {
		return nil, err
	}
	total := binary.LittleEndian.Uint64(head)
	if total < PrefixSize {
		return nil, errors.New(errors.PhaseBuffer, errors.KindOutOfBounds).
			Path("prefix").
			Value(total).
			Detail("size prefix %d is smaller than the prefix itself", total).
			Build()
	}
	if total-PrefixSize > math.MaxInt {
		return nil, errors.Overflow(errors.PhaseBuffer, []string{"prefix"}, total, "int")
	}
	return b.window(PrefixSize, int(total-PrefixSize))
}

// View returns a bounded accessor over the first n bytes.
func (b Buffer) View(n int) (*View, error) {
	data, err := b.Slice(n)
	if err != nil {
		return nil, err
	}
	return NewView(data), nil
}

// SizedView returns a bounded accessor over the bytes after the size prefix.
func (b Buffer) SizedView() (*View, error) {
	data, err := b.SizedSlice()
	if err != nil {
		return nil, err
	}
	return NewView(data), nil
}

func (b Buffer) window(off, n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.InvalidInput(errors.PhaseBuffer, "negative length")
	}

	switch b.kind {
	case backingNone:
		if n == 0 {
			return []byte{}, nil
		}
		return nil, errors.NilPointer(errors.PhaseBuffer, nil, "buffer.Buffer")

	case backingPointer:
		return unsafe.Slice((*byte)(unsafe.Add(b.ptr, off)), n), nil

	case backingBytes:
		if off > len(b.data) || n > len(b.data)-off {
			return nil, errors.OutOfBounds(errors.PhaseBuffer, nil, off+n, len(b.data))
		}
		return b.data[off : off+n : off+n], nil

	case backingMemory:
		start := uint64(b.offset) + uint64(off)
		if start > math.MaxUint32 || uint64(n) > math.MaxUint32 {
			return nil, errors.OutOfBounds(errors.PhaseBuffer, nil, int(start)+n, int(b.mem.Size()))
		}
		data, ok := b.mem.Read(uint32(start), uint32(n))
		if !ok {
			return nil, errors.OutOfBounds(errors.PhaseBuffer, nil, int(start)+n, int(b.mem.Size()))
		}
		return data[:n:n], nil
	}
	return nil, errors.Unsupported(errors.PhaseBuffer, "unknown buffer backing")
}
