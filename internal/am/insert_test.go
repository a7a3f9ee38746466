package am

import (
	"bytes"
	"math/rand"
	"testing"
)

func createOpenIndex(t *testing.T, name string) *Index {
	t.Helper()
	pool := testPool(t)
	if err := CreateIndex(pool, name, 1, AttrInt, 4); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	idx, err := OpenIndex(pool, name, 1, AttrInt, 4)
	if err != nil {
		t.Fatalf("OpenIndex failed: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestCreateIndexValidation(t *testing.T) {
	pool := testPool(t)
	if err := CreateIndex(pool, "v", 1, AttrType('q'), 4); CodeOf(err) != CodeInvalidAttrType {
		t.Errorf("bad type: code = %d, want %d", CodeOf(err), CodeInvalidAttrType)
	}
	if err := CreateIndex(pool, "v", 1, AttrChar, 300); CodeOf(err) != CodeInvalidAttrLength {
		t.Errorf("bad length: code = %d, want %d", CodeOf(err), CodeInvalidAttrLength)
	}
	if err := CreateIndex(pool, "v", 1, AttrInt, 4); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	// Same base, different indexNo: a distinct file.
	if err := CreateIndex(pool, "v", 2, AttrInt, 4); err != nil {
		t.Fatalf("CreateIndex with second indexNo failed: %v", err)
	}
}

func TestInsertEntrySorted(t *testing.T) {
	idx := createOpenIndex(t, "sorted")

	const n = 1000
	vals := rand.New(rand.NewSource(42)).Perm(n)
	for i, v := range vals {
		if err := idx.InsertEntry(ikey(int32(v)), int32(i)); err != nil {
			t.Fatalf("InsertEntry(%d) failed: %v", v, err)
		}
	}

	pairs, err := idx.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(pairs) != n {
		t.Fatalf("entry count = %d, want %d", len(pairs), n)
	}
	for i, p := range pairs {
		if decodeIKey(p.Key) != int32(i) {
			t.Fatalf("entry %d has key %d, want %d", i, decodeIKey(p.Key), i)
		}
	}

	// Splits happened and the root stayed at page 0.
	if idx.file.NumPages() < 3 {
		t.Fatalf("expected splits, file has %d pages", idx.file.NumPages())
	}
	num, buf, err := idx.file.GetFirstPage()
	if err != nil {
		t.Fatalf("GetFirstPage failed: %v", err)
	}
	if num != 0 || isLeafPage(buf) {
		t.Fatalf("root not an internal page at page 0 (page %d)", num)
	}
	if err := idx.file.UnfixPage(num, false); err != nil {
		t.Fatalf("UnfixPage failed: %v", err)
	}
}

func TestInsertEntryDuplicatesShareKeySlot(t *testing.T) {
	idx := createOpenIndex(t, "dups")

	for i, v := range []int32{5, 5, 5, 7} {
		if err := idx.InsertEntry(ikey(v), int32(i)); err != nil {
			t.Fatalf("InsertEntry failed: %v", err)
		}
	}

	buf, err := idx.file.GetThisPage(0)
	if err != nil {
		t.Fatalf("GetThisPage failed: %v", err)
	}
	p := leafPage(buf)
	h := p.readHeader()
	if h.numKeys != 2 {
		t.Fatalf("numKeys = %d, want 2 (duplicates share one slot)", h.numKeys)
	}
	if !bytes.Equal(p.key(h, 0), ikey(5)) {
		t.Fatalf("first key = % x, want 5", p.key(h, 0))
	}
	chain := p.chain(h, 0)
	if len(chain) != 3 {
		t.Fatalf("chain for key 5 = %v, want 3 recids", chain)
	}
	if err := idx.file.UnfixPage(0, false); err != nil {
		t.Fatalf("UnfixPage failed: %v", err)
	}

	pairs, err := idx.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	got := make(map[[2]int32]bool)
	for _, pr := range pairs {
		got[[2]int32{decodeIKey(pr.Key), pr.RecID}] = true
	}
	for _, w := range [][2]int32{{5, 0}, {5, 1}, {5, 2}, {7, 3}} {
		if !got[w] {
			t.Errorf("missing pair %v", w)
		}
	}
}

func TestInsertEntryLeafChainAfterSplits(t *testing.T) {
	idx := createOpenIndex(t, "chain")

	const n = 1200
	for v := 0; v < n; v++ {
		if err := idx.InsertEntry(ikey(int32(v)), int32(v)); err != nil {
			t.Fatalf("InsertEntry failed: %v", err)
		}
	}

	leaves, err := idx.Leaves()
	if err != nil {
		t.Fatalf("Leaves failed: %v", err)
	}
	if len(leaves) < 2 {
		t.Fatalf("expected multiple leaves, got %d", len(leaves))
	}

	// Walking the sibling chain covers all n entries in order.
	pairs, err := idx.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(pairs) != n {
		t.Fatalf("entry count = %d, want %d", len(pairs), n)
	}
	assertSorted(t, idx, pairs)
}
