package buffer

import (
	"bytes"
	"context"
	"encoding/binary"
	stderrors "errors"
	"testing"
	"unsafe"

	"github.com/tetratelabs/wazero"
	"github.com/wippyai/hostffi/errors"
)

// memoryWASM is a minimal WASM module with 1 page of memory exported as "memory"
var memoryWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page, no max
	0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
	0x02, 0x00, // kind: memory, index 0
}

var outOfBounds = &errors.Error{Phase: errors.PhaseBuffer, Kind: errors.KindOutOfBounds}

func sized(payload []byte) []byte {
	out := make([]byte, PrefixSize+len(payload))
	binary.LittleEndian.PutUint64(out, uint64(len(out)))
	copy(out[PrefixSize:], payload)
	return out
}

func TestExplicitLength(t *testing.T) {
	region := []byte{10, 11, 12, 13, 14, 15}

	for _, buf := range []Buffer{FromBytes(region), FromPointer(unsafe.Pointer(&region[0]))} {
		got, err := buf.Slice(4)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, region[:4]) {
			t.Errorf("Slice(4) = %v, want %v", got, region[:4])
		}
		if &got[0] != &region[0] {
			t.Error("Slice should alias the region")
		}
	}
}

func TestSizedPrefix(t *testing.T) {
	payload := []byte("hello, host")
	region := append(sized(payload), 0xee, 0xee) // trailing bytes outside the view

	for name, buf := range map[string]Buffer{
		"bytes":   FromBytes(region),
		"pointer": FromPointer(unsafe.Pointer(&region[0])),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := buf.SizedSlice()
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("SizedSlice() = %q, want %q", got, payload)
			}
			if &got[0] != &region[PrefixSize] {
				t.Error("SizedSlice should start at offset 8 of the region")
			}
		})
	}
}

func TestSizedPrefixEmptyPayload(t *testing.T) {
	got, err := FromBytes(sized(nil)).SizedSlice()
	if err != nil || len(got) != 0 {
		t.Errorf("SizedSlice() = %v, %v", got, err)
	}
}

func TestSizedPrefixTooSmall(t *testing.T) {
	region := make([]byte, 16)
	binary.LittleEndian.PutUint64(region, 3)

	_, err := FromBytes(region).SizedSlice()
	if !stderrors.Is(err, outOfBounds) {
		t.Errorf("prefix 3 error = %v, want out of bounds", err)
	}
}

func TestBytesBoundsChecked(t *testing.T) {
	region := sized([]byte{1, 2})
	binary.LittleEndian.PutUint64(region, 100)

	if _, err := FromBytes(region).SizedSlice(); !stderrors.Is(err, outOfBounds) {
		t.Errorf("oversized prefix error = %v", err)
	}
	if _, err := FromBytes(region).Slice(len(region) + 1); !stderrors.Is(err, outOfBounds) {
		t.Errorf("Slice past end error = %v", err)
	}
	if _, err := FromBytes([]byte{1, 2, 3}).SizedSlice(); !stderrors.Is(err, outOfBounds) {
		t.Errorf("short header error = %v", err)
	}
	if _, err := FromBytes(region).Slice(-1); err == nil {
		t.Error("negative length should fail")
	}
}

func TestNilBuffer(t *testing.T) {
	buf := FromPointer(nil)
	if !buf.IsNil() {
		t.Fatal("FromPointer(nil) should be nil")
	}
	if got, err := buf.Slice(0); err != nil || len(got) != 0 {
		t.Errorf("Slice(0) = %v, %v", got, err)
	}
	_, err := buf.Slice(1)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBuffer, Kind: errors.KindNilPointer}) {
		t.Errorf("Slice(1) error = %v", err)
	}
	if buf.Pointer() != nil {
		t.Error("Pointer() should be nil")
	}
}

func TestViewWriteThrough(t *testing.T) {
	region := sized(make([]byte, 16))
	v, err := FromPointer(unsafe.Pointer(&region[0])).SizedView()
	if err != nil {
		t.Fatal(err)
	}
	if v.Len() != 16 || v.Size() != 16 {
		t.Fatalf("view length = %d", v.Len())
	}

	if err := v.WriteU32(0, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	if err := v.WriteU64(8, 42); err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(region[PrefixSize:]); got != 0xdeadbeef {
		t.Errorf("region word = %#x, want write-through", got)
	}
	if got, _ := v.ReadU64(8); got != 42 {
		t.Errorf("ReadU64 = %d", got)
	}
	if got, _ := v.ReadU16(0); got != 0xbeef {
		t.Errorf("ReadU16 = %#x", got)
	}
	if got, _ := v.ReadU8(3); got != 0xde {
		t.Errorf("ReadU8 = %#x", got)
	}
}

func TestViewBounds(t *testing.T) {
	v, err := FromBytes(make([]byte, 8)).View(4)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		fn   func() error
	}{
		{"read past end", func() error { _, err := v.Read(2, 3); return err }},
		{"read u32 at end", func() error { _, err := v.ReadU32(1); return err }},
		{"read u64", func() error { _, err := v.ReadU64(0); return err }},
		{"read u8 at len", func() error { _, err := v.ReadU8(4); return err }},
		{"write past end", func() error { return v.Write(3, []byte{1, 2}) }},
		{"write u16 at end", func() error { return v.WriteU16(3, 1) }},
		{"huge offset", func() error { _, err := v.Read(0xffffffff, 2); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !stderrors.Is(err, outOfBounds) {
				t.Errorf("error = %v, want out of bounds", err)
			}
		})
	}

	if err := v.Write(0, []byte{1, 2, 3, 4}); err != nil {
		t.Errorf("in-bounds write: %v", err)
	}
	if got, _ := v.Read(0, 4); !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("Read = %v", got)
	}
}

func TestFromMemory(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.Instantiate(ctx, memoryWASM)
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}
	defer mod.Close(ctx)

	mem := mod.ExportedMemory("memory")
	const base = 1024
	if !mem.Write(base, sized([]byte("guest"))) {
		t.Fatal("seed write failed")
	}

	buf := FromMemory(mem, base)
	got, err := buf.SizedSlice()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "guest" {
		t.Errorf("SizedSlice() = %q", got)
	}
	if buf.Pointer() != nil {
		t.Error("guest memory buffers have no stable pointer")
	}

	v, err := buf.View(PrefixSize + 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.WriteU8(PrefixSize, 'G'); err != nil {
		t.Fatal(err)
	}
	if b, _ := mem.ReadByte(base + PrefixSize); b != 'G' {
		t.Errorf("guest byte = %q, want write-through", b)
	}

	end := FromMemory(mem, mem.Size()-4)
	if _, err := end.Slice(8); !stderrors.Is(err, outOfBounds) {
		t.Errorf("read past guest memory error = %v", err)
	}

	if !FromMemory(nil, 0).IsNil() {
		t.Error("FromMemory(nil) should be nil")
	}
}
