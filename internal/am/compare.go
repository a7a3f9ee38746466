package am

import (
	"bytes"
	"encoding/binary"
	"math"
)

// AttrType selects the key interpretation of an index.
type AttrType byte

const (
	AttrInt   AttrType = 'i'
	AttrFloat AttrType = 'f'
	AttrChar  AttrType = 'c'
)

const (
	minAttrLength = 1
	maxAttrLength = 255
)

func validAttrType(t AttrType) bool {
	return t == AttrInt || t == AttrFloat || t == AttrChar
}

func validAttrLength(l int) bool {
	return l >= minAttrLength && l <= maxAttrLength
}

// Compare orders two attrLength-byte keys under the natural ordering of the
// attribute type: signed little-endian integers of width 1/2/4/8 for 'i',
// IEEE float32/float64 for 'f', lexicographic bytes for 'c'. Integer and
// float keys of other widths fall back to byte comparison.
func Compare(a []byte, attrType AttrType, attrLength int, b []byte) int {
	switch attrType {
	case AttrInt:
		switch attrLength {
		case 1:
			return cmpInt64(int64(int8(a[0])), int64(int8(b[0])))
		case 2:
			return cmpInt64(int64(int16(binary.LittleEndian.Uint16(a))), int64(int16(binary.LittleEndian.Uint16(b))))
		case 4:
			return cmpInt64(int64(int32(binary.LittleEndian.Uint32(a))), int64(int32(binary.LittleEndian.Uint32(b))))
		case 8:
			return cmpInt64(int64(binary.LittleEndian.Uint64(a)), int64(binary.LittleEndian.Uint64(b)))
		}
	case AttrFloat:
		switch attrLength {
		case 4:
			fa := math.Float32frombits(binary.LittleEndian.Uint32(a))
			fb := math.Float32frombits(binary.LittleEndian.Uint32(b))
			return cmpFloat64(float64(fa), float64(fb))
		case 8:
			fa := math.Float64frombits(binary.LittleEndian.Uint64(a))
			fb := math.Float64frombits(binary.LittleEndian.Uint64(b))
			return cmpFloat64(fa, fb)
		}
	case AttrChar:
		return bytes.Compare(a[:attrLength], b[:attrLength])
	}
	return bytes.Compare(a[:attrLength], b[:attrLength])
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
