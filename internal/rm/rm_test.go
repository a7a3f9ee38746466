package rm

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"toydb/internal/pf"
)

func newHandle(t *testing.T) *FileHandle {
	t.Helper()
	pool := pf.NewPool(8, pf.NewMemFS())
	if err := Create(pool, "recs"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	fh, err := Open(pool, "recs")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { fh.Close() })
	return fh
}

func mustInsert(t *testing.T, fh *FileHandle, data []byte) RID {
	t.Helper()
	rid, err := fh.Insert(Record{Length: len(data), Data: data})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return rid
}

func scanAll(t *testing.T, fh *FileHandle) (rids []RID, recs []Record) {
	t.Helper()
	rid, rec, err := fh.GetFirstRecord()
	for !errors.Is(err, pf.ErrEOF) {
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		rids = append(rids, rid)
		recs = append(recs, rec)
		rid, rec, err = fh.GetNextRecord(rid)
	}
	return rids, recs
}

func TestInsertDeleteAndFileStats(t *testing.T) {
	fh := newHandle(t)

	rids := []RID{
		mustInsert(t, fh, bytes.Repeat([]byte{'a'}, 100)),
		mustInsert(t, fh, bytes.Repeat([]byte{'b'}, 200)),
		mustInsert(t, fh, bytes.Repeat([]byte{'c'}, 300)),
	}
	if err := fh.Delete(rids[1]); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	st, err := fh.ComputeFileStats()
	if err != nil {
		t.Fatalf("ComputeFileStats failed: %v", err)
	}
	if st.Pages != 1 {
		t.Errorf("Pages = %d, want 1", st.Pages)
	}
	if st.PayloadBytes != 400 {
		t.Errorf("PayloadBytes = %d, want 400", st.PayloadBytes)
	}
	if st.Slots != 3 {
		t.Errorf("Slots = %d, want 3", st.Slots)
	}
	if st.DeletedSlots != 1 {
		t.Errorf("DeletedSlots = %d, want 1", st.DeletedSlots)
	}
	want := 100 * 400.0 / float64(pf.PageSize)
	if st.Utilization != want {
		t.Errorf("Utilization = %v, want %v", st.Utilization, want)
	}
}

func TestRIDStabilityAndScanTotality(t *testing.T) {
	fh := newHandle(t)

	const n = 200
	byRID := make(map[RID][]byte)
	for i := 0; i < n; i++ {
		data := fmt.Appendf(nil, "record-%04d-%s", i, bytes.Repeat([]byte{'x'}, i%50))
		rid := mustInsert(t, fh, data)
		if _, dup := byRID[rid]; dup {
			t.Fatalf("RID %+v handed out twice", rid)
		}
		byRID[rid] = data
	}

	// Delete every third record.
	deleted := 0
	for rid := range byRID {
		if (int(rid.Page)+int(rid.Slot))%3 == 0 {
			if err := fh.Delete(rid); err != nil {
				t.Fatalf("Delete(%+v) failed: %v", rid, err)
			}
			delete(byRID, rid)
			deleted++
		}
	}
	if fh.TotalRecords != n || fh.TotalDeleted != deleted {
		t.Fatalf("totals = (%d, %d), want (%d, %d)", fh.TotalRecords, fh.TotalDeleted, n, deleted)
	}

	rids, recs := scanAll(t, fh)
	if len(rids) != fh.TotalRecords-fh.TotalDeleted {
		t.Fatalf("scan returned %d records, want %d", len(rids), fh.TotalRecords-fh.TotalDeleted)
	}
	for i, rid := range rids {
		want, ok := byRID[rid]
		if !ok {
			t.Fatalf("scan returned deleted or unknown RID %+v", rid)
		}
		if !bytes.Equal(recs[i].Data, want) {
			t.Fatalf("record at %+v changed: got %q, want %q", rid, recs[i].Data, want)
		}
		delete(byRID, rid)
	}
	if len(byRID) != 0 {
		t.Fatalf("%d live records never returned by the scan", len(byRID))
	}
}

func TestDeleteErrors(t *testing.T) {
	fh := newHandle(t)
	rid := mustInsert(t, fh, []byte("only"))

	if err := fh.Delete(RID{Page: rid.Page, Slot: 99}); !errors.Is(err, pf.ErrInvalidPage) {
		t.Errorf("out-of-range slot err = %v, want ErrInvalidPage", err)
	}
	if err := fh.Delete(rid); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := fh.Delete(rid); !errors.Is(err, pf.ErrPageFree) {
		t.Errorf("double delete err = %v, want ErrPageFree", err)
	}
}

func TestZeroLengthRecord(t *testing.T) {
	fh := newHandle(t)
	rid := mustInsert(t, fh, nil)

	rids, recs := scanAll(t, fh)
	if len(rids) != 1 || rids[0] != rid {
		t.Fatalf("scan rids = %+v, want [%+v]", rids, rid)
	}
	if recs[0].Length != 0 || recs[0].Data != nil {
		t.Fatalf("zero-length record read back as %+v", recs[0])
	}
}

func TestRecordTooLargeRejected(t *testing.T) {
	fh := newHandle(t)
	data := make([]byte, MaxRecordLen+1)
	if _, err := fh.Insert(Record{Length: len(data), Data: data}); err == nil {
		t.Fatalf("oversized insert must fail")
	}
	if fh.TotalRecords != 0 {
		t.Fatalf("failed insert must not count")
	}
}

// Deleting never reclaims payload or slot space, so a record that would only
// fit after compaction goes to a fresh page instead.
func TestNoCompactionAfterDelete(t *testing.T) {
	fh := newHandle(t)

	big := bytes.Repeat([]byte{'z'}, 3000)
	first := mustInsert(t, fh, big)
	second := mustInsert(t, fh, big)
	if second.Page == first.Page {
		t.Fatalf("second big record unexpectedly fit on page %d", first.Page)
	}
	if err := fh.Delete(first); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	third := mustInsert(t, fh, big)
	if third.Page == first.Page {
		t.Fatalf("insert reused tombstone space on page %d", first.Page)
	}
	if fh.file.NumPages() != 3 {
		t.Fatalf("NumPages = %d, want 3", fh.file.NumPages())
	}
}

func TestAnalyzePageToleratesExistingPin(t *testing.T) {
	fh := newHandle(t)
	rid := mustInsert(t, fh, []byte("abcdef"))

	// Pin the page the way an outer page-walk would, then analyze it.
	if _, err := fh.file.GetThisPage(rid.Page); err != nil {
		t.Fatalf("GetThisPage failed: %v", err)
	}
	used, slots, deleted, err := fh.AnalyzePage(rid.Page)
	if err != nil {
		t.Fatalf("AnalyzePage under pin failed: %v", err)
	}
	if used != 6 || slots != 1 || deleted != 0 {
		t.Fatalf("AnalyzePage = (%d, %d, %d), want (6, 1, 0)", used, slots, deleted)
	}
	if err := fh.file.UnfixPage(rid.Page, false); err != nil {
		t.Fatalf("UnfixPage failed: %v", err)
	}
}

func TestSlottedPageInvariants(t *testing.T) {
	fh := newHandle(t)
	for i := 0; i < 40; i++ {
		mustInsert(t, fh, bytes.Repeat([]byte{byte(i)}, 50+i))
	}
	if err := fh.Delete(RID{Page: 0, Slot: 3}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	buf, err := fh.file.GetThisPage(0)
	if err != nil {
		t.Fatalf("GetThisPage failed: %v", err)
	}
	p := pageBuf(buf)

	if p.freeStart() > p.freeEnd() {
		t.Errorf("freeStart %d > freeEnd %d", p.freeStart(), p.freeEnd())
	}
	if want := int32(pf.PageSize) - p.numSlots()*slotSize; p.freeEnd() != want {
		t.Errorf("freeEnd = %d, want %d", p.freeEnd(), want)
	}

	// Live payload + slot directory + header + hole account for the page.
	live := 0
	for i := int32(0); i < p.numSlots(); i++ {
		off, length := p.slot(i)
		if off != tombstone {
			live += int(length)
		}
	}
	hole := int(p.freeEnd()-p.freeStart()) + deadBytes(p)
	total := live + int(p.numSlots())*slotSize + pageHeaderSize + hole
	if total != pf.PageSize {
		t.Errorf("page accounting: %d bytes, want %d", total, pf.PageSize)
	}

	if err := fh.file.UnfixPage(0, false); err != nil {
		t.Fatalf("UnfixPage failed: %v", err)
	}
}

// deadBytes sums tombstoned payload, which stays allocated below freeStart.
func deadBytes(p pageBuf) int {
	dead := 0
	for i := int32(0); i < p.numSlots(); i++ {
		off, length := p.slot(i)
		if off == tombstone {
			dead += int(length)
		}
	}
	return dead
}
