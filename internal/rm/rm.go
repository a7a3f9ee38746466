package rm

import (
	"errors"
	"fmt"

	"toydb/internal/pf"
)

// RID identifies a record: the page it lives on and its slot within the page.
// A RID is stable for the lifetime of the record and is never reused after a
// delete.
type RID struct {
	Page pf.PageNum
	Slot int32
}

// Record is a variable-length byte payload. Data is nil for zero-length
// records.
type Record struct {
	Length int
	Data   []byte
}

// FileHandle is an open record file. The running totals are maintained on the
// handle, not on disk.
type FileHandle struct {
	file *pf.File

	TotalRecords      int
	TotalDeleted      int
	TotalPayloadBytes int
}

// FileStats is the whole-file aggregation produced by ComputeFileStats.
type FileStats struct {
	Pages        int
	PayloadBytes int
	Utilization  float64 // percent of page bytes carrying live payload
	Slots        int
	DeletedSlots int
}

func Create(pool *pf.Pool, fname string) error {
	return pool.CreateFile(fname)
}

func Destroy(pool *pf.Pool, fname string) error {
	return pool.DestroyFile(fname)
}

// Open opens a record file. Record files use LRU replacement.
func Open(pool *pf.Pool, fname string) (*FileHandle, error) {
	f, err := pool.Open(fname, pf.ReplaceLRU)
	if err != nil {
		return nil, err
	}
	return &FileHandle{file: f}, nil
}

func (fh *FileHandle) Close() error {
	return fh.file.Close()
}

// Insert places the record on the first page with room, allocating a new page
// when none fits, and returns the record's RID. Pages are never compacted to
// make room.
func (fh *FileHandle) Insert(rec Record) (RID, error) {
	if rec.Length != len(rec.Data) {
		return RID{}, fmt.Errorf("rm: record length %d does not match data length %d", rec.Length, len(rec.Data))
	}
	if rec.Length > MaxRecordLen {
		return RID{}, fmt.Errorf("rm: record of %d bytes exceeds page capacity %d", rec.Length, MaxRecordLen)
	}

	var page pf.PageNum
	var buf []byte

	num, b, err := fh.file.GetFirstPage()
	for !errors.Is(err, pf.ErrEOF) {
		if err != nil {
			return RID{}, err
		}
		if pageBuf(b).hasRoom(rec.Length) {
			page, buf = num, b
			break
		}
		if err := fh.file.UnfixPage(num, false); err != nil {
			return RID{}, err
		}
		num, b, err = fh.file.GetNextPage(num)
	}

	if buf == nil {
		num, b, err = fh.file.AllocPage()
		if err != nil {
			return RID{}, err
		}
		initSlottedPage(b)
		page, buf = num, b
	}

	slot := pageBuf(buf).insertRecord(rec.Data)
	if err := fh.file.UnfixPage(page, true); err != nil {
		return RID{}, err
	}

	fh.TotalRecords++
	fh.TotalPayloadBytes += rec.Length
	return RID{Page: page, Slot: slot}, nil
}

// Delete tombstones the record's slot. The slot and its payload bytes stay in
// place; only scans stop returning the record.
func (fh *FileHandle) Delete(rid RID) error {
	buf, err := fh.file.GetThisPage(rid.Page)
	if err != nil {
		return err
	}
	p := pageBuf(buf)

	if rid.Slot < 0 || rid.Slot >= p.numSlots() {
		fh.file.UnfixPage(rid.Page, false)
		return pf.ErrInvalidPage
	}
	offset, length := p.slot(rid.Slot)
	if offset == tombstone {
		fh.file.UnfixPage(rid.Page, false)
		return pf.ErrPageFree
	}

	p.setSlot(rid.Slot, tombstone, length)
	if err := fh.file.UnfixPage(rid.Page, true); err != nil {
		return err
	}
	fh.TotalDeleted++
	return nil
}

// GetFirstRecord starts a sequential scan, returning the first live record.
// The scan terminates with pf.ErrEOF.
func (fh *FileHandle) GetFirstRecord() (RID, Record, error) {
	num, buf, err := fh.file.GetFirstPage()
	return fh.scanFrom(num, 0, buf, err)
}

// GetNextRecord resumes the scan after rid, first exhausting rid's page and
// then walking the page succession. Tombstones are skipped.
func (fh *FileHandle) GetNextRecord(rid RID) (RID, Record, error) {
	buf, err := fh.file.GetThisPage(rid.Page)
	return fh.scanFrom(rid.Page, rid.Slot+1, buf, err)
}

// scanFrom owns the pin handed to it (buf pinned on page num unless err) and
// releases every page it visits.
func (fh *FileHandle) scanFrom(num pf.PageNum, slot int32, buf []byte, err error) (RID, Record, error) {
	for {
		if errors.Is(err, pf.ErrEOF) {
			return RID{}, Record{}, pf.ErrEOF
		}
		if err != nil {
			return RID{}, Record{}, err
		}

		p := pageBuf(buf)
		for s := slot; s < p.numSlots(); s++ {
			offset, length := p.slot(s)
			if offset == tombstone {
				continue
			}
			rec := Record{Length: int(length)}
			if length > 0 {
				rec.Data = make([]byte, length)
				copy(rec.Data, p[offset:offset+length])
			}
			if err := fh.file.UnfixPage(num, false); err != nil {
				return RID{}, Record{}, err
			}
			return RID{Page: num, Slot: s}, rec, nil
		}

		if err := fh.file.UnfixPage(num, false); err != nil {
			return RID{}, Record{}, err
		}
		slot = 0
		num, buf, err = fh.file.GetNextPage(num)
	}
}

// AnalyzePage reports live payload bytes, slot count and tombstone count for
// one page. A pre-existing pin on the page is tolerated: the pin count rises
// either way and AnalyzePage still releases its own pin.
func (fh *FileHandle) AnalyzePage(page pf.PageNum) (usedBytes, slots, deleted int, err error) {
	buf, err := fh.file.GetThisPage(page)
	if err != nil && !errors.Is(err, pf.ErrPageFixed) {
		return 0, 0, 0, err
	}
	usedBytes, slots, deleted = pageBuf(buf).analyze()
	if err := fh.file.UnfixPage(page, false); err != nil {
		return 0, 0, 0, err
	}
	return usedBytes, slots, deleted, nil
}

// ComputeFileStats walks every page and aggregates the per-page analysis.
func (fh *FileHandle) ComputeFileStats() (FileStats, error) {
	var st FileStats

	num, _, err := fh.file.GetFirstPage()
	for !errors.Is(err, pf.ErrEOF) {
		if err != nil && !errors.Is(err, pf.ErrPageFixed) {
			return FileStats{}, err
		}

		used, slots, deleted, aerr := fh.AnalyzePage(num)
		if aerr != nil {
			fh.file.UnfixPage(num, false)
			return FileStats{}, aerr
		}
		st.Pages++
		st.PayloadBytes += used
		st.Slots += slots
		st.DeletedSlots += deleted

		if err := fh.file.UnfixPage(num, false); err != nil {
			return FileStats{}, err
		}
		num, _, err = fh.file.GetNextPage(num)
	}

	if st.Pages > 0 {
		st.Utilization = 100 * float64(st.PayloadBytes) / float64(st.Pages*pf.PageSize)
	}
	return st, nil
}
