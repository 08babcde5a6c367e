package marshal

import (
	"strings"
	"unsafe"

	"github.com/wippyai/hostffi/errors"
)

const minScratchCap = 64

// Allocator provides the memory behind a Scratch buffer. Memory returned by
// Alloc must stay valid and unmoved until passed to Free.
type Allocator interface {
	Alloc(size int) unsafe.Pointer
	Free(p unsafe.Pointer)
}

// GoAllocator allocates scratch memory on the Go heap. Pointers into it must
// not be handed to C code; cgo builds install a C allocator instead.
type GoAllocator struct{}

func (GoAllocator) Alloc(size int) unsafe.Pointer {
	b := make([]byte, size)
	return unsafe.Pointer(unsafe.SliceData(b))
}

func (GoAllocator) Free(unsafe.Pointer) {}

// Scratch is the buffer behind every text primitive returned to the host. It
// is truncated and refilled on each text return, so a returned pointer stays
// valid only until the next one. Scratch is not safe for concurrent use.
type Scratch struct {
	alloc Allocator
	ptr   unsafe.Pointer
	nul   unsafe.Pointer // one NUL byte from alloc, kept for the buffer's life
	cap   int
	len   int
}

// NewScratch creates an empty scratch buffer. A nil alloc uses GoAllocator.
func NewScratch(alloc Allocator) *Scratch {
	if alloc == nil {
		alloc = GoAllocator{}
	}
	s := &Scratch{alloc: alloc}
	s.reserveNul()
	return s
}

func (s *Scratch) reserveNul() {
	if p := s.alloc.Alloc(1); p != nil {
		*(*byte)(p) = 0
		s.nul = p
	}
}

func (s *Scratch) reserve(n int) error {
	if n <= s.cap {
		return nil
	}
	newCap := max(n, 2*s.cap, minScratchCap)
	p := s.alloc.Alloc(newCap)
	if p == nil {
		return errors.AllocationFailed(errors.PhaseMarshal, newCap)
	}
	if s.ptr != nil {
		s.alloc.Free(s.ptr)
	}
	s.ptr, s.cap = p, newCap
	return nil
}

func (s *Scratch) buf() []byte {
	return unsafe.Slice((*byte)(s.ptr), s.cap)
}

// Return replaces the contents with b followed by a NUL terminator and returns
// the address of the first byte. b must not contain a NUL byte.
func (s *Scratch) Return(b []byte) (unsafe.Pointer, error) {
	for i, c := range b {
		if c == 0 {
			return nil, errors.EmbeddedNul(errors.PhaseMarshal, nil, i)
		}
	}
	if err := s.reserve(len(b) + 1); err != nil {
		return nil, err
	}
	dst := s.buf()
	copy(dst, b)
	dst[len(b)] = 0
	s.len = len(b)
	return s.ptr, nil
}

// ReturnString is Return for a string, without an intermediate copy.
func (s *Scratch) ReturnString(str string) (unsafe.Pointer, error) {
	if i := strings.IndexByte(str, 0); i >= 0 {
		return nil, errors.EmbeddedNul(errors.PhaseMarshal, nil, i)
	}
	if err := s.reserve(len(str) + 1); err != nil {
		return nil, err
	}
	dst := s.buf()
	copy(dst, str)
	dst[len(str)] = 0
	s.len = len(str)
	return s.ptr, nil
}

// Empty replaces the contents with the empty string.
func (s *Scratch) Empty() (unsafe.Pointer, error) {
	return s.Return(nil)
}

// EmptyOrStatic is Empty, falling back to a terminator reserved when the
// buffer was created if the scratch memory cannot be allocated. It returns
// nil only when both allocations failed.
func (s *Scratch) EmptyOrStatic() unsafe.Pointer {
	if p, err := s.Empty(); err == nil {
		return p
	}
	return s.nul
}

// Bytes returns the current contents without the terminator. The slice
// aliases the buffer.
func (s *Scratch) Bytes() []byte {
	if s.ptr == nil {
		return nil
	}
	return s.buf()[:s.len:s.len]
}

// Cap returns the allocated capacity in bytes.
func (s *Scratch) Cap() int {
	return s.cap
}

// Release frees the backing memory. The buffer can be reused afterwards.
func (s *Scratch) Release() {
	if s.ptr != nil {
		s.alloc.Free(s.ptr)
	}
	s.ptr, s.cap, s.len = nil, 0, 0
}

var defaultScratch = NewScratch(nil)

// DefaultScratch returns the process-wide buffer used by the Return helpers.
func DefaultScratch() *Scratch {
	return defaultScratch
}

// SetAllocator releases the process-wide scratch buffer and switches it to
// alloc. Generated libraries call it from init with a C heap allocator.
func SetAllocator(alloc Allocator) {
	defaultScratch.Release()
	if defaultScratch.nul != nil {
		defaultScratch.alloc.Free(defaultScratch.nul)
		defaultScratch.nul = nil
	}
	if alloc == nil {
		alloc = GoAllocator{}
	}
	defaultScratch.alloc = alloc
	defaultScratch.reserveNul()
}
