// Package hostffi marshals values between native Go code and a host runtime
// that speaks a C-style calling convention limited to two primitives: a 64-bit
// float and a pointer to a NUL-terminated byte string.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	hostffi/             Root package with boundary Kind and Memory interfaces
//	├── marshal/         Go values to and from boundary primitives, scratch buffer
//	├── bridge/          Fault barrier, reflect-driven export registry
//	├── gen/             Generator of cgo //export wrappers for Go functions
//	├── value/           Tagged value union and its text record codec
//	├── buffer/          Views over host-owned memory regions
//	├── parse/           Little-endian field parsers, complete and streaming
//	├── cabi/            C heap allocator for the scratch buffer
//	├── wasmhost/        Export registry bound into a wazero host module
//	├── errors/          Structured error types for debugging
//	└── cmd/hostffi/     Generator and codec command line
//
// # Quick Start
//
// Annotate and generate wrappers for a package:
//
//	// Greet says hello.
//	//hostffi:export say_hello
//	func Greet(name string) string { return "Hello, " + name + "!" }
//
//	$ hostffi gen -o exports.go ./native
//	$ go build -buildmode=c-shared -o libnative.so .
//
// Or register functions at run time and call them with primitives:
//
//	reg := bridge.NewRegistry()
//	reg.MustRegister("add", func(a, b float64) float64 { return a + b })
//	exp, _ := reg.Lookup("add")
//	out := exp.Call(marshal.Number(1), marshal.Number(2)) // Number 3
//
// # Fault Model
//
// Every exported call succeeds at the ABI level. A panic raised while decoding
// arguments, running the native function or encoding the result is recovered,
// logged and replaced by the default for the declared return kind: 0.0 for
// numbers and an empty string for text. bridge.LastFault reports the message.
//
// # Thread Safety
//
// The boundary is single-threaded. The scratch return buffer and the last
// fault slot are unsynchronized; the host must serialize calls.
package hostffi
