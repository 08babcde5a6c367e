// Package cabi provides C-heap memory for values returned across a cgo
// boundary. Generated export wrappers install Allocator into the default
// scratch buffer so that text results never point into the Go heap.
package cabi

/*
#include <stdlib.h>
*/
import "C"

import "unsafe"

// Allocator allocates with malloc and frees with free.
type Allocator struct{}

// Alloc returns size bytes of C memory, or nil if size is not positive or
// malloc fails.
func (Allocator) Alloc(size int) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	return C.malloc(C.size_t(size))
}

// Free releases memory returned by Alloc. Freeing nil is a no-op.
func (Allocator) Free(p unsafe.Pointer) {
	C.free(p)
}
