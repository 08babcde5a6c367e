// Package gen generates cgo export wrappers for native Go packages.
//
// Load introspects a package with go/packages, Check decides which of its
// functions can cross the boundary, and Generate renders a main package with
// one //export function per eligible function. Each wrapper decodes its
// arguments, calls the native function and encodes the result inside a
// bridge fault barrier, so a panicking native function returns the default
// result instead of unwinding into the host.
//
// Generation is configured by hostffi.toml:
//
//	package = "./native"
//	output = "exports/hostffi_exports.go"
//	prefix = "demo_"
//	emit_last_error = true
//
//	[names]
//	DivideTen = "divide_by_ten"
//
// External names default to the snake_case Go name plus prefix. A
// //hostffi:export directive in the function doc comment or a [names] entry
// overrides it.
package gen
