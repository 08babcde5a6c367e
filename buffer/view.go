package buffer

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/hostffi"
	"github.com/wippyai/hostffi/errors"
)

var (
	_ hostffi.Memory      = (*View)(nil)
	_ hostffi.MemorySizer = (*View)(nil)
)

// View is a read/write window over a fixed number of bytes. Offsets are
// relative to the start of the window and every access is bounds checked
// against it. Writes go straight to the underlying region.
type View struct {
	data []byte
}

// NewView wraps data without copying.
func NewView(data []byte) *View {
	return &View{data: data}
}

// Bytes returns the whole window.
func (v *View) Bytes() []byte {
	return v.data
}

// Len returns the window length.
func (v *View) Len() int {
	return len(v.data)
}

// Size returns the window length, saturated to the uint32 range.
func (v *View) Size() uint32 {
	if len(v.data) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(len(v.data))
}

func (v *View) span(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(v.data)) {
		return nil, errors.New(errors.PhaseBuffer, errors.KindOutOfBounds).
			Value(offset).
			Detail("access [%d, %d) outside view of %d bytes", offset, end, len(v.data)).
			Build()
	}
	return v.data[offset:end:end], nil
}

// Read returns length bytes at offset without copying.
func (v *View) Read(offset uint32, length uint32) ([]byte, error) {
	return v.span(offset, length)
}

// Write copies data into the view at offset.
func (v *View) Write(offset uint32, data []byte) error {
	if uint64(len(data)) > math.MaxUint32 {
		return errors.OutOfBounds(errors.PhaseBuffer, nil, len(data), len(v.data))
	}
	dst, err := v.span(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (v *View) ReadU8(offset uint32) (uint8, error) {
	b, err := v.span(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (v *View) ReadU16(offset uint32) (uint16, error) {
	b, err := v.span(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (v *View) ReadU32(offset uint32) (uint32, error) {
	b, err := v.span(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (v *View) ReadU64(offset uint32) (uint64, error) {
	b, err := v.span(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// WriteU8 writes an unsigned 8-bit value.
func (v *View) WriteU8(offset uint32, value uint8) error {
	b, err := v.span(offset, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (v *View) WriteU16(offset uint32, value uint16) error {
	b, err := v.span(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (v *View) WriteU32(offset uint32, value uint32) error {
	b, err := v.span(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (v *View) WriteU64(offset uint32, value uint64) error {
	b, err := v.span(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}
