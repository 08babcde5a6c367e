// Package bridge runs native Go functions behind the call boundary.
//
// CallNumber and CallText are the fault barriers used by generated export
// wrappers. Anything that panics inside them, whether argument decoding, the
// native function itself or result encoding, is recovered, logged at Warn and
// replaced with the default result: 0 for numbers, an empty string for text.
// The host never observes a panic. The last fault is kept for callers that
// want an out-of-band signal:
//
//	out := bridge.CallNumber("divide_ten", func() float64 {
//		x := marshal.ArgFloat64(arg)
//		return marshal.ReturnFloat64(divideTen(x))
//	})
//	if err := bridge.LastFault(); err != nil {
//		// out is 0
//	}
//
// Registry is the reflective counterpart of the generator. It applies the
// same eligibility rules at run time and dispatches primitives through the
// converter table in marshal. Transports such as wasmhost bind a Registry
// instead of generated code.
//
//	reg := bridge.NewRegistry()
//	reg.MustRegister("add", func(a, b int) int { return a + b })
//	res, _ := reg.Call("add", marshal.Number(2), marshal.Number(3))
//
// Registration is safe from multiple goroutines. Calls are not synchronized;
// the host serializes them, as it does for the scratch buffer.
package bridge
