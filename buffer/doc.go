// Package buffer gives bounded access to memory regions owned by the host.
//
// A host passes a buffer by address, either with a length it asserts or with
// a self-describing header: the first 8 bytes hold the little-endian total
// length including the header itself, and the usable bytes follow.
//
//	buf := buffer.FromPointer(p)
//	payload, err := buf.SizedSlice()
//
// Pointer-backed buffers cannot be validated; the region must be at least as
// long as claimed. Buffers over Go slices or wazero guest memory are bounds
// checked.
package buffer
