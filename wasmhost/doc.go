// Package wasmhost exposes a bridge.Registry to WebAssembly guests running in
// wazero.
//
// Bind builds a host module (named "env" by default) with one function per
// export. Guests call them like any other import:
//
//	(import "env" "divide_ten" (func (param f64) (result f64)))
//	(import "env" "greet" (func (param i32) (result i32)))
//
// Text crosses as an i32 offset of a NUL-terminated string in the caller's
// memory. Text results are written into memory the guest hands out from its
// hostffi_alloc export, so the guest owns and frees them. A buffer.Buffer
// parameter is an i32 offset too, and every slice or size prefix read
// through it is checked against the guest memory size. Faults behave as in
// bridge: the guest receives 0 or an empty string.
//
// A Host serves one guest at a time.
package wasmhost
