package rm

import (
	"encoding/binary"

	"toydb/internal/pf"
)

// Slotted page layout (on disk, little endian):
//
//	offset  size  field
//	0       4     freeStart (int32) - where the next record payload goes, grows up
//	4       4     freeEnd   (int32) - start of the slot directory, grows down
//	8       4     numSlots  (int32)
//	12..    record payloads...
//
// The slot directory sits at the end of the page, each slot 4 bytes:
//
//	[offset int16][length int16]
//
// slot i lives at PageSize - (i+1)*4. offset == -1 marks a tombstone.
// Tombstone payload is never reclaimed and the directory is never compacted;
// the analysis operations measure exactly that cost.
//
// Invariants: freeStart <= freeEnd, freeEnd == PageSize - numSlots*4.
const (
	pageHeaderSize = 12
	slotSize       = 4

	tombstone = -1
)

// MaxRecordLen is the largest record a single slotted page can hold.
const MaxRecordLen = pf.PageSize - pageHeaderSize - slotSize

// pageBuf is a slotted page in memory.
type pageBuf []byte

func initSlottedPage(p pageBuf) {
	binary.LittleEndian.PutUint32(p[0:4], pageHeaderSize)
	binary.LittleEndian.PutUint32(p[4:8], pf.PageSize)
	binary.LittleEndian.PutUint32(p[8:12], 0)
}

func (p pageBuf) freeStart() int32 {
	return int32(binary.LittleEndian.Uint32(p[0:4]))
}

func (p pageBuf) setFreeStart(off int32) {
	binary.LittleEndian.PutUint32(p[0:4], uint32(off))
}

func (p pageBuf) freeEnd() int32 {
	return int32(binary.LittleEndian.Uint32(p[4:8]))
}

func (p pageBuf) setFreeEnd(off int32) {
	binary.LittleEndian.PutUint32(p[4:8], uint32(off))
}

func (p pageBuf) numSlots() int32 {
	return int32(binary.LittleEndian.Uint32(p[8:12]))
}

func (p pageBuf) setNumSlots(n int32) {
	binary.LittleEndian.PutUint32(p[8:12], uint32(n))
}

func slotPos(i int32) int {
	return pf.PageSize - int(i+1)*slotSize
}

func (p pageBuf) slot(i int32) (offset, length int16) {
	pos := slotPos(i)
	offset = int16(binary.LittleEndian.Uint16(p[pos : pos+2]))
	length = int16(binary.LittleEndian.Uint16(p[pos+2 : pos+4]))
	return offset, length
}

func (p pageBuf) setSlot(i int32, offset, length int16) {
	pos := slotPos(i)
	binary.LittleEndian.PutUint16(p[pos:pos+2], uint16(offset))
	binary.LittleEndian.PutUint16(p[pos+2:pos+4], uint16(length))
}

// hasRoom reports whether a record of recLen bytes plus a fresh slot fits.
func (p pageBuf) hasRoom(recLen int) bool {
	return int(p.freeEnd())-int(p.freeStart()) >= recLen+slotSize
}

// insertRecord appends the payload and a new slot descriptor. The caller has
// already checked hasRoom.
func (p pageBuf) insertRecord(data []byte) int32 {
	freeStart := p.freeStart()
	n := p.numSlots()

	copy(p[freeStart:int(freeStart)+len(data)], data)
	p.setSlot(n, int16(freeStart), int16(len(data)))

	p.setFreeStart(freeStart + int32(len(data)))
	p.setFreeEnd(p.freeEnd() - slotSize)
	p.setNumSlots(n + 1)
	return n
}

// analyze counts live payload bytes, total slots and tombstones.
func (p pageBuf) analyze() (usedBytes int, slots int, deleted int) {
	n := p.numSlots()
	for i := int32(0); i < n; i++ {
		offset, length := p.slot(i)
		if offset == tombstone {
			deleted++
			continue
		}
		usedBytes += int(length)
	}
	return usedBytes, int(n), deleted
}
