package am

import (
	"encoding/binary"

	"toydb/internal/pf"
)

// B+ tree page formats (on disk, little endian).
//
// Leaf page:
//
//	offset  size  field
//	0       1     pageType 'l'
//	1       1     pad
//	2       2     recIdPtr      (uint16) top of the recid-node heap, grows down
//	4       2     keyPtr        (uint16) end of the key array, grows up
//	6       2     freeListPtr   (uint16) head of the freed recid-node list
//	8       2     numInFreeList (uint16)
//	10      2     attrLength    (uint16)
//	12      2     numKeys       (uint16)
//	14      2     maxKeys       (uint16)
//	16      4     nextLeafPage  (int32, -1 none)
//	20..    key array: numKeys entries of attrLength + 2 bytes; the trailing
//	        uint16 is the byte offset of the head of that key's recid chain
//	        (0 = empty chain).
//	...end  recid-node heap: nodes of [recID int32][next uint16], allocated by
//	        decrementing recIdPtr; next == 0 ends the chain.
//
// Internal page:
//
//	offset  size  field
//	0       1     pageType 'i'
//	1       1     pad
//	2       2     numKeys    (uint16)
//	4       2     attrLength (uint16)
//	6       2     maxKeys    (uint16)
//	8..     [child0 int32][key0][child1 int32][key1]...[key_{n-1}][child_n]
//
// Page 0 of an index file always holds the root.
const (
	leafHeaderSize = 20
	intHeaderSize  = 8

	pageTypeLeaf     = 'l'
	pageTypeInternal = 'i'

	recIDNodeSize = 6 // recID int32 + next uint16

	noPage = int32(-1)

	// widths the fan-out arithmetic is defined in terms of
	sizeofInt   = 4
	sizeofShort = 2
)

// leafMaxKeys is the leaf fan-out for a given key width. An odd capacity is
// rounded down so a full leaf always splits into two equal halves.
func leafMaxKeys(attrLength int) int {
	maxKeys := (pf.PageSize - leafHeaderSize - sizeofInt) / (sizeofInt + attrLength)
	if maxKeys%2 != 0 {
		maxKeys--
	}
	return maxKeys
}

func internalMaxKeys(attrLength int) int {
	return (pf.PageSize - intHeaderSize - sizeofInt) / (sizeofInt + attrLength)
}

// leafKeySlotSize is the byte width of one key-array entry.
func leafKeySlotSize(attrLength int) int {
	return attrLength + sizeofShort
}

type leafHeader struct {
	recIDPtr      uint16
	keyPtr        uint16
	freeListPtr   uint16
	numInFreeList uint16
	attrLength    uint16
	numKeys       uint16
	maxKeys       uint16
	nextLeafPage  int32
}

type leafPage []byte

func isLeafPage(p []byte) bool { return p[0] == pageTypeLeaf }

func initLeafPage(p leafPage, attrLength int) {
	p[0] = pageTypeLeaf
	h := leafHeader{
		recIDPtr:     pf.PageSize,
		keyPtr:       leafHeaderSize,
		attrLength:   uint16(attrLength),
		maxKeys:      uint16(leafMaxKeys(attrLength)),
		nextLeafPage: noPage,
	}
	p.writeHeader(h)
}

func (p leafPage) readHeader() leafHeader {
	return leafHeader{
		recIDPtr:      binary.LittleEndian.Uint16(p[2:4]),
		keyPtr:        binary.LittleEndian.Uint16(p[4:6]),
		freeListPtr:   binary.LittleEndian.Uint16(p[6:8]),
		numInFreeList: binary.LittleEndian.Uint16(p[8:10]),
		attrLength:    binary.LittleEndian.Uint16(p[10:12]),
		numKeys:       binary.LittleEndian.Uint16(p[12:14]),
		maxKeys:       binary.LittleEndian.Uint16(p[14:16]),
		nextLeafPage:  int32(binary.LittleEndian.Uint32(p[16:20])),
	}
}

func (p leafPage) writeHeader(h leafHeader) {
	p[0] = pageTypeLeaf
	binary.LittleEndian.PutUint16(p[2:4], h.recIDPtr)
	binary.LittleEndian.PutUint16(p[4:6], h.keyPtr)
	binary.LittleEndian.PutUint16(p[6:8], h.freeListPtr)
	binary.LittleEndian.PutUint16(p[8:10], h.numInFreeList)
	binary.LittleEndian.PutUint16(p[10:12], h.attrLength)
	binary.LittleEndian.PutUint16(p[12:14], h.numKeys)
	binary.LittleEndian.PutUint16(p[14:16], h.maxKeys)
	binary.LittleEndian.PutUint32(p[16:20], uint32(h.nextLeafPage))
}

// keySlotOff returns the byte offset of key slot i.
func (p leafPage) keySlotOff(h leafHeader, i int) int {
	return leafHeaderSize + i*leafKeySlotSize(int(h.attrLength))
}

func (p leafPage) key(h leafHeader, i int) []byte {
	off := p.keySlotOff(h, i)
	return p[off : off+int(h.attrLength)]
}

func (p leafPage) chainHead(h leafHeader, i int) uint16 {
	off := p.keySlotOff(h, i) + int(h.attrLength)
	return binary.LittleEndian.Uint16(p[off : off+2])
}

func (p leafPage) setChainHead(h leafHeader, i int, head uint16) {
	off := p.keySlotOff(h, i) + int(h.attrLength)
	binary.LittleEndian.PutUint16(p[off:off+2], head)
}

func (p leafPage) recIDNode(off uint16) (recID int32, next uint16) {
	recID = int32(binary.LittleEndian.Uint32(p[off : off+4]))
	next = binary.LittleEndian.Uint16(p[off+4 : off+6])
	return recID, next
}

func (p leafPage) writeRecIDNode(off uint16, recID int32, next uint16) {
	binary.LittleEndian.PutUint32(p[off:off+4], uint32(recID))
	binary.LittleEndian.PutUint16(p[off+4:off+6], next)
}

// chain collects a key's recid chain in list order.
func (p leafPage) chain(h leafHeader, i int) []int32 {
	var ids []int32
	for off := p.chainHead(h, i); off != 0; {
		id, next := p.recIDNode(off)
		ids = append(ids, id)
		off = next
	}
	return ids
}

// leafHasRoom reports whether one more key entry plus one recid node fits.
func leafHasRoom(h leafHeader) bool {
	need := leafKeySlotSize(int(h.attrLength)) + recIDNodeSize
	return int(h.recIDPtr)-int(h.keyPtr) >= need && int(h.numKeys) < int(h.maxKeys)
}

// appendKey writes a new key entry with a single-node recid chain at the end
// of the key array. The caller has checked leafHasRoom and keeps keys sorted.
func (p leafPage) appendKey(h *leafHeader, key []byte, recID int32) {
	slot := int(h.numKeys)
	off := p.keySlotOff(*h, slot)
	copy(p[off:off+int(h.attrLength)], key)

	h.recIDPtr -= recIDNodeSize
	p.writeRecIDNode(h.recIDPtr, recID, 0)
	p.setChainHead(*h, slot, h.recIDPtr)

	h.numKeys++
	h.keyPtr += uint16(leafKeySlotSize(int(h.attrLength)))
}

type internalHeader struct {
	numKeys    uint16
	attrLength uint16
	maxKeys    uint16
}

type internalPage []byte

func initInternalPage(p internalPage, attrLength int) {
	p[0] = pageTypeInternal
	p.writeHeader(internalHeader{
		attrLength: uint16(attrLength),
		maxKeys:    uint16(internalMaxKeys(attrLength)),
	})
}

func (p internalPage) readHeader() internalHeader {
	return internalHeader{
		numKeys:    binary.LittleEndian.Uint16(p[2:4]),
		attrLength: binary.LittleEndian.Uint16(p[4:6]),
		maxKeys:    binary.LittleEndian.Uint16(p[6:8]),
	}
}

func (p internalPage) writeHeader(h internalHeader) {
	p[0] = pageTypeInternal
	binary.LittleEndian.PutUint16(p[2:4], h.numKeys)
	binary.LittleEndian.PutUint16(p[4:6], h.attrLength)
	binary.LittleEndian.PutUint16(p[6:8], h.maxKeys)
}

// internalEntrySize is the byte width of one (key, following child) pair.
func internalEntrySize(attrLength int) int {
	return attrLength + sizeofInt
}

func (p internalPage) child(h internalHeader, i int) pf.PageNum {
	off := intHeaderSize + i*internalEntrySize(int(h.attrLength))
	return pf.PageNum(int32(binary.LittleEndian.Uint32(p[off : off+4])))
}

func (p internalPage) setChild(h internalHeader, i int, child pf.PageNum) {
	off := intHeaderSize + i*internalEntrySize(int(h.attrLength))
	binary.LittleEndian.PutUint32(p[off:off+4], uint32(child))
}

func (p internalPage) key(h internalHeader, i int) []byte {
	off := intHeaderSize + sizeofInt + i*internalEntrySize(int(h.attrLength))
	return p[off : off+int(h.attrLength)]
}

func (p internalPage) setKey(h internalHeader, i int, key []byte) {
	off := intHeaderSize + sizeofInt + i*internalEntrySize(int(h.attrLength))
	copy(p[off:off+int(h.attrLength)], key)
}

// internalHasRoom reports whether one more (key, child) pair fits on the page.
func internalHasRoom(h internalHeader) bool {
	fits := intHeaderSize + sizeofInt + (int(h.numKeys)+1)*internalEntrySize(int(h.attrLength)) <= pf.PageSize
	return fits && int(h.numKeys) < int(h.maxKeys)
}
