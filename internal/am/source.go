package am

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"toydb/internal/pf"
	"toydb/internal/rm"
)

// PairSource yields (key, recID) pairs for the index builders. Next returns
// io.EOF when the source is exhausted.
type PairSource interface {
	Next() (Pair, error)
}

// TextSource parses semicolon-separated lines: the key is the second field,
// the record-id is the ordinal of the line among processed lines. Lines with
// a missing or empty second field are skipped silently; noisy inputs are
// expected.
type TextSource struct {
	scanner    *bufio.Scanner
	attrType   AttrType
	attrLength int
	nextRecID  int32
}

func NewTextSource(r io.Reader, attrType AttrType, attrLength int) *TextSource {
	return &TextSource{
		scanner:    bufio.NewScanner(r),
		attrType:   attrType,
		attrLength: attrLength,
	}
}

func (s *TextSource) Next() (Pair, error) {
	for s.scanner.Scan() {
		fields := strings.Split(s.scanner.Text(), ";")
		if len(fields) < 2 || fields[1] == "" {
			continue
		}
		key := encodeKey(fields[1], s.attrType, s.attrLength)
		p := Pair{Key: key, RecID: s.nextRecID}
		s.nextRecID++
		return p, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Pair{}, err
	}
	return Pair{}, io.EOF
}

// encodeKey turns a text field into attrLength key bytes. Integer parsing is
// atoi-style: optional sign, then leading digits, zero if none.
func encodeKey(field string, attrType AttrType, attrLength int) []byte {
	key := make([]byte, attrLength)
	switch attrType {
	case AttrInt:
		v := atoi(field)
		switch attrLength {
		case 1:
			key[0] = byte(int8(v))
		case 2:
			binary.LittleEndian.PutUint16(key, uint16(int16(v)))
		case 8:
			binary.LittleEndian.PutUint64(key, uint64(v))
		default:
			binary.LittleEndian.PutUint32(key, uint32(int32(v)))
		}
	case AttrFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			v = 0
		}
		if attrLength == 8 {
			binary.LittleEndian.PutUint64(key, math.Float64bits(v))
		} else {
			binary.LittleEndian.PutUint32(key, math.Float32bits(float32(v)))
		}
	case AttrChar:
		copy(key, field)
	}
	return key
}

func atoi(s string) int64 {
	s = strings.TrimSpace(s)
	i := 0
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	var v int64
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		v = v*10 + int64(s[i]-'0')
	}
	if neg {
		return -v
	}
	return v
}

// slotBits sizes the RID-to-int packing: a slotted page holds at most
// PageSize/4 slot descriptors, so 10 bits cover the slot number.
const slotBits = 10

// RIDToInt packs a record-id into the int32 the index stores.
func RIDToInt(rid rm.RID) int32 {
	return int32(rid.Page)<<slotBits | int32(rid.Slot)
}

// IntToRID undoes RIDToInt.
func IntToRID(v int32) rm.RID {
	return rm.RID{Page: pf.PageNum(v >> slotBits), Slot: v & (1<<slotBits - 1)}
}

// RMSource scans a record file: the key is the first attrLength bytes of each
// record, the record-id is the packed RID. Records shorter than the key width
// are skipped.
type RMSource struct {
	fh         *rm.FileHandle
	attrLength int
	started    bool
	cursor     rm.RID
}

func NewRMSource(fh *rm.FileHandle, attrLength int) *RMSource {
	return &RMSource{fh: fh, attrLength: attrLength}
}

func (s *RMSource) Next() (Pair, error) {
	for {
		var rid rm.RID
		var rec rm.Record
		var err error
		if !s.started {
			rid, rec, err = s.fh.GetFirstRecord()
			s.started = true
		} else {
			rid, rec, err = s.fh.GetNextRecord(s.cursor)
		}
		if errors.Is(err, pf.ErrEOF) {
			return Pair{}, io.EOF
		}
		if err != nil {
			return Pair{}, err
		}
		s.cursor = rid
		if rec.Length < s.attrLength {
			continue
		}
		key := make([]byte, s.attrLength)
		copy(key, rec.Data[:s.attrLength])
		return Pair{Key: key, RecID: RIDToInt(rid)}, nil
	}
}
