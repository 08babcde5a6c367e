package hostffi

// Kind is one of the two primitive shapes the host boundary understands.
type Kind uint8

const (
	// KindNumber is an IEEE-754 64-bit float.
	KindNumber Kind = iota
	// KindText is a pointer to a NUL-terminated byte string.
	KindText
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "invalid"
	}
}

// CType returns the cgo spelling of the primitive.
func (k Kind) CType() string {
	if k == KindText {
		return "*C.char"
	}
	return "C.double"
}

// Memory represents a bounded region of host memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the size of a memory region in bytes.
type MemorySizer interface {
	Size() uint32
}
