package wasmhost

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/hostffi"
	"github.com/wippyai/hostffi/bridge"
	"github.com/wippyai/hostffi/buffer"
	"github.com/wippyai/hostffi/errors"
	"github.com/wippyai/hostffi/marshal"
)

const (
	// DefaultModuleName is the import module guests use for bound exports.
	DefaultModuleName = "env"
	// DefaultAllocExport is the guest function that reserves memory for text
	// results: (size i32) -> (offset i32).
	DefaultAllocExport = "hostffi_alloc"
)

var bufferType = reflect.TypeFor[buffer.Buffer]()

// Config controls how a registry is exposed to guests.
type Config struct {
	// ModuleName is the host module name. Empty means DefaultModuleName.
	ModuleName string
	// AllocExport names the guest allocator. Empty means DefaultAllocExport.
	AllocExport string
}

func (c Config) withDefaults() Config {
	if c.ModuleName == "" {
		c.ModuleName = DefaultModuleName
	}
	if c.AllocExport == "" {
		c.AllocExport = DefaultAllocExport
	}
	return c
}

// Host is a registry bound into a wazero runtime as a host module.
type Host struct {
	module  api.Module
	cfg     Config
	exports []string
}

// Bind instantiates a host module exporting every function currently in reg.
// Functions registered later are not bound.
//
// Number parameters and results are f64. Text parameters are i32 offsets of
// NUL-terminated strings in the caller's memory; text results are copied into
// memory obtained from the caller's allocator export and returned as offsets.
func Bind(ctx context.Context, rt wazero.Runtime, reg *bridge.Registry, cfg Config) (*Host, error) {
	if rt == nil {
		return nil, errors.NilPointer(errors.PhaseHost, nil, "wazero.Runtime")
	}
	if reg == nil {
		return nil, errors.NilPointer(errors.PhaseHost, nil, "*bridge.Registry")
	}
	cfg = cfg.withDefaults()

	h := &Host{cfg: cfg}
	builder := rt.NewHostModuleBuilder(cfg.ModuleName)

	for _, exp := range reg.Exports() {
		params := make([]api.ValueType, 0, len(exp.Params()))
		for _, k := range exp.Params() {
			params = append(params, valueType(k))
		}
		results := []api.ValueType{valueType(exp.Result())}

		builder.NewFunctionBuilder().
			WithGoModuleFunction(h.handler(exp), params, results).
			WithName(exp.Name()).
			Export(exp.Name())
		h.exports = append(h.exports, exp.Name())
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("wasmhost: instantiate %s: %w", cfg.ModuleName, err)
	}
	h.module = mod

	Logger().Debug("host module bound",
		zap.String("module", cfg.ModuleName),
		zap.Strings("exports", h.exports),
	)
	return h, nil
}

// Module returns the instantiated host module.
func (h *Host) Module() api.Module { return h.module }

// Exports returns the bound export names in order.
func (h *Host) Exports() []string { return h.exports }

// Close closes the host module.
func (h *Host) Close(ctx context.Context) error {
	return h.module.Close(ctx)
}

func valueType(k hostffi.Kind) api.ValueType {
	if k == hostffi.KindText {
		return api.ValueTypeI32
	}
	return api.ValueTypeF64
}

func (h *Host) handler(exp *bridge.Export) api.GoModuleFunc {
	kinds := exp.Params()
	types := exp.ParamTypes()

	args := func(mod api.Module, stack []uint64) []marshal.Primitive {
		out := make([]marshal.Primitive, len(kinds))
		for i, k := range kinds {
			if k == hostffi.KindNumber {
				out[i] = marshal.Number(api.DecodeF64(stack[i]))
				continue
			}
			off := api.DecodeU32(stack[i])
			if types[i] == bufferType {
				out[i] = guestRegion(mod.Memory(), off)
				continue
			}
			p, err := guestPointer(mod.Memory(), off)
			if err != nil {
				panic(err)
			}
			out[i] = marshal.Text(p)
		}
		return out
	}

	if exp.Result() == hostffi.KindNumber {
		return func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = api.EncodeF64(bridge.CallNumber(exp.Name(), func() float64 {
				return exp.Call(args(mod, stack)...).Number
			}))
		}
	}

	return func(ctx context.Context, mod api.Module, stack []uint64) {
		var off uint32
		ok := false
		bridge.CallText(exp.Name(), func() unsafe.Pointer {
			res := exp.Call(args(mod, stack)...)
			off = marshal.Must(h.writeText(ctx, mod, marshal.CString(res.Text)))
			ok = true
			return res.Text
		})
		if !ok {
			off = h.emptyText(ctx, mod)
		}
		stack[0] = api.EncodeU32(off)
	}
}

// guestRegion wraps offset as a buffer over guest memory. Slices and size
// prefixes read through it are bounds checked against the memory size, so a
// guest cannot reach host memory through a buffer parameter.
func guestRegion(mem api.Memory, offset uint32) marshal.Primitive {
	if mem == nil {
		panic(errors.Unsupported(errors.PhaseHost, "caller has no memory"))
	}
	return marshal.Region(buffer.FromMemory(mem, offset))
}

// guestPointer returns the address of the NUL-terminated string at offset in
// guest memory. The terminator must lie inside memory.
func guestPointer(mem api.Memory, offset uint32) (unsafe.Pointer, error) {
	if mem == nil {
		return nil, errors.Unsupported(errors.PhaseHost, "caller has no memory")
	}
	if offset >= mem.Size() {
		return nil, errors.OutOfBounds(errors.PhaseHost, nil, int(offset), int(mem.Size()))
	}
	view, err := buffer.FromMemory(mem, offset).Slice(int(mem.Size() - offset))
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(view, 0) < 0 {
		return nil, errors.New(errors.PhaseHost, errors.KindOutOfBounds).
			Value(offset).
			Detail("string at %d is not terminated inside guest memory", offset).
			Build()
	}
	return unsafe.Pointer(&view[0]), nil
}

// ReadString reads a NUL-terminated string from guest memory.
func ReadString(mem api.Memory, offset uint32) (string, error) {
	p, err := guestPointer(mem, offset)
	if err != nil {
		return "", err
	}
	return string(marshal.CString(p)), nil
}

// writeText copies b plus a terminator into memory reserved by the caller's
// allocator.
func (h *Host) writeText(ctx context.Context, mod api.Module, b []byte) (uint32, error) {
	alloc := mod.ExportedFunction(h.cfg.AllocExport)
	if alloc == nil {
		return 0, errors.NotFound(errors.PhaseHost, "guest export", h.cfg.AllocExport)
	}
	res, err := alloc.Call(ctx, api.EncodeU32(uint32(len(b)+1)))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseHost, errors.KindAllocation, err, "guest allocator failed")
	}
	off := api.DecodeU32(res[0])

	mem := mod.Memory()
	if mem == nil {
		return 0, errors.Unsupported(errors.PhaseHost, "caller has no memory")
	}
	if !mem.Write(off, b) || !mem.WriteByte(off+uint32(len(b)), 0) {
		return 0, errors.OutOfBounds(errors.PhaseHost, nil, int(off)+len(b)+1, int(mem.Size()))
	}
	return off, nil
}

// emptyText returns the offset of an empty string, or 0 if even that cannot
// be allocated.
func (h *Host) emptyText(ctx context.Context, mod api.Module) uint32 {
	off, err := h.writeText(ctx, mod, nil)
	if err != nil {
		Logger().Warn("cannot return empty text", zap.Error(err))
		return 0
	}
	return off
}
