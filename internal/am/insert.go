package am

import (
	"fmt"

	"toydb/internal/pf"
)

// leafEntry is the in-memory form of one leaf key slot: the key bytes and the
// key's recid chain in list order.
type leafEntry struct {
	key    []byte
	recIDs []int32
}

// splitResult propagates a page split up the tree: right is the new page and
// sepKey the smallest key reachable under it.
type splitResult struct {
	sepKey []byte
	right  pf.PageNum
}

// InsertEntry adds (key, recID) to the tree. Duplicate keys share a key slot;
// the new recid is prepended to the existing chain. The root stays at page 0
// across splits.
func (idx *Index) InsertEntry(key []byte, recID int32) error {
	if len(key) < idx.attrLength {
		return fmt.Errorf("am: key is %d bytes, index wants %d", len(key), idx.attrLength)
	}
	k := make([]byte, idx.attrLength)
	copy(k, key)

	_, err := idx.insertInto(0, k, recID)
	return err
}

// insertInto descends into page and performs the insert. A non-nil split
// means the page overflowed and the caller must add (sepKey, right) to its
// own entry list. Page 0 absorbs its own splits so the result is always nil
// at the root.
func (idx *Index) insertInto(page pf.PageNum, key []byte, recID int32) (*splitResult, error) {
	buf, err := idx.file.GetThisPage(page)
	if err != nil {
		return nil, pfError(err)
	}

	if isLeafPage(buf) {
		return idx.insertIntoLeaf(page, buf, key, recID)
	}

	p := internalPage(buf)
	_, children, keys := decodeInternal(p)
	if err := idx.file.UnfixPage(page, false); err != nil {
		return nil, pfError(err)
	}

	// Left-biased routing: keys below keys[i] go to children[i], keys at or
	// above it go right.
	childIdx := len(keys)
	for i, sep := range keys {
		if Compare(key, idx.attrType, idx.attrLength, sep) < 0 {
			childIdx = i
			break
		}
	}

	split, err := idx.insertInto(children[childIdx], key, recID)
	if err != nil || split == nil {
		return nil, err
	}

	// Child split: splice (sepKey, right) in after the child.
	children = append(children, 0)
	copy(children[childIdx+2:], children[childIdx+1:])
	children[childIdx+1] = split.right

	keys = append(keys, nil)
	copy(keys[childIdx+1:], keys[childIdx:])
	keys[childIdx] = split.sepKey

	if len(keys) <= internalMaxKeys(idx.attrLength) {
		buf, err := idx.file.GetThisPage(page)
		if err != nil {
			return nil, pfError(err)
		}
		encodeInternal(buf, idx.attrLength, children, keys)
		if err := idx.file.UnfixPage(page, true); err != nil {
			return nil, pfError(err)
		}
		return nil, nil
	}

	return idx.splitInternal(page, children, keys)
}

func (idx *Index) insertIntoLeaf(page pf.PageNum, buf []byte, key []byte, recID int32) (*splitResult, error) {
	p := leafPage(buf)
	h := p.readHeader()
	entries := decodeLeaf(p, h)
	next := h.nextLeafPage
	if err := idx.file.UnfixPage(page, false); err != nil {
		return nil, pfError(err)
	}

	// Find the insert position; an equal key extends the existing chain.
	pos := len(entries)
	for i := range entries {
		c := Compare(key, idx.attrType, idx.attrLength, entries[i].key)
		if c == 0 {
			entries[i].recIDs = append([]int32{recID}, entries[i].recIDs...)
			pos = -1
			break
		}
		if c < 0 {
			pos = i
			break
		}
	}
	if pos >= 0 {
		entries = append(entries, leafEntry{})
		copy(entries[pos+1:], entries[pos:])
		entries[pos] = leafEntry{key: key, recIDs: []int32{recID}}
	}

	if leafFits(entries, idx.attrLength) {
		buf, err := idx.file.GetThisPage(page)
		if err != nil {
			return nil, pfError(err)
		}
		encodeLeaf(buf, idx.attrLength, next, entries)
		if err := idx.file.UnfixPage(page, true); err != nil {
			return nil, pfError(err)
		}
		return nil, nil
	}

	if len(entries) < 2 {
		return nil, fmt.Errorf("am: recid chain for one key no longer fits on a page")
	}

	mid := len(entries) / 2
	left, right := entries[:mid], entries[mid:]
	sepKey := right[0].key

	if page == 0 {
		// Root leaf overflow: both halves move to fresh pages and page 0
		// becomes the new internal root, so the root never leaves page 0.
		rightNum, err := idx.writeNewLeaf(right, next)
		if err != nil {
			return nil, err
		}
		leftNum, err := idx.writeNewLeaf(left, int32(rightNum))
		if err != nil {
			return nil, err
		}
		return nil, idx.writeRoot([]pf.PageNum{leftNum, rightNum}, [][]byte{sepKey})
	}

	rightNum, err := idx.writeNewLeaf(right, next)
	if err != nil {
		return nil, err
	}
	buf, err = idx.file.GetThisPage(page)
	if err != nil {
		return nil, pfError(err)
	}
	encodeLeaf(buf, idx.attrLength, int32(rightNum), left)
	if err := idx.file.UnfixPage(page, true); err != nil {
		return nil, pfError(err)
	}
	return &splitResult{sepKey: sepKey, right: rightNum}, nil
}

func (idx *Index) splitInternal(page pf.PageNum, children []pf.PageNum, keys [][]byte) (*splitResult, error) {
	mid := len(keys) / 2
	promoted := keys[mid]

	leftKeys, rightKeys := keys[:mid], keys[mid+1:]
	leftChildren, rightChildren := children[:mid+1], children[mid+1:]

	if page == 0 {
		leftNum, err := idx.writeNewInternal(leftChildren, leftKeys)
		if err != nil {
			return nil, err
		}
		rightNum, err := idx.writeNewInternal(rightChildren, rightKeys)
		if err != nil {
			return nil, err
		}
		return nil, idx.writeRoot([]pf.PageNum{leftNum, rightNum}, [][]byte{promoted})
	}

	rightNum, err := idx.writeNewInternal(rightChildren, rightKeys)
	if err != nil {
		return nil, err
	}
	buf, err := idx.file.GetThisPage(page)
	if err != nil {
		return nil, pfError(err)
	}
	encodeInternal(buf, idx.attrLength, leftChildren, leftKeys)
	if err := idx.file.UnfixPage(page, true); err != nil {
		return nil, pfError(err)
	}
	return &splitResult{sepKey: promoted, right: rightNum}, nil
}

func (idx *Index) writeNewLeaf(entries []leafEntry, next int32) (pf.PageNum, error) {
	num, buf, err := idx.file.AllocPage()
	if err != nil {
		return 0, pfError(err)
	}
	encodeLeaf(buf, idx.attrLength, next, entries)
	if err := idx.file.UnfixPage(num, true); err != nil {
		return 0, pfError(err)
	}
	return num, nil
}

func (idx *Index) writeNewInternal(children []pf.PageNum, keys [][]byte) (pf.PageNum, error) {
	num, buf, err := idx.file.AllocPage()
	if err != nil {
		return 0, pfError(err)
	}
	encodeInternal(buf, idx.attrLength, children, keys)
	if err := idx.file.UnfixPage(num, true); err != nil {
		return 0, pfError(err)
	}
	return num, nil
}

func (idx *Index) writeRoot(children []pf.PageNum, keys [][]byte) error {
	buf, err := idx.file.GetThisPage(0)
	if err != nil {
		return pfError(err)
	}
	encodeInternal(buf, idx.attrLength, children, keys)
	if err := idx.file.UnfixPage(0, true); err != nil {
		return pfError(err)
	}
	return nil
}

// decodeLeaf copies a leaf's key slots and recid chains out of the page.
func decodeLeaf(p leafPage, h leafHeader) []leafEntry {
	entries := make([]leafEntry, h.numKeys)
	for i := 0; i < int(h.numKeys); i++ {
		key := make([]byte, h.attrLength)
		copy(key, p.key(h, i))
		entries[i] = leafEntry{key: key, recIDs: p.chain(h, i)}
	}
	return entries
}

// leafFits reports whether the entries fit on one leaf page.
func leafFits(entries []leafEntry, attrLength int) bool {
	if len(entries) > leafMaxKeys(attrLength) {
		return false
	}
	ids := 0
	for _, e := range entries {
		ids += len(e.recIDs)
	}
	used := len(entries)*leafKeySlotSize(attrLength) + ids*recIDNodeSize
	return used <= pf.PageSize-leafHeaderSize
}

// encodeLeaf rebuilds the page from scratch: key array from the header end,
// recid heap from the page end. Chain order is preserved.
func encodeLeaf(buf []byte, attrLength int, next int32, entries []leafEntry) {
	clear(buf)
	p := leafPage(buf)
	initLeafPage(p, attrLength)
	h := p.readHeader()
	h.nextLeafPage = next

	for i, e := range entries {
		off := p.keySlotOff(h, i)
		copy(p[off:off+attrLength], e.key)

		// Nodes are written last-to-first so each can point at its successor;
		// the head ends up on the chain's first recid.
		head := uint16(0)
		for j := len(e.recIDs) - 1; j >= 0; j-- {
			h.recIDPtr -= recIDNodeSize
			p.writeRecIDNode(h.recIDPtr, e.recIDs[j], head)
			head = h.recIDPtr
		}
		p.setChainHead(h, i, head)

		h.numKeys++
		h.keyPtr += uint16(leafKeySlotSize(attrLength))
	}
	p.writeHeader(h)
}

// decodeInternal copies an internal page's children and separator keys.
func decodeInternal(p internalPage) (internalHeader, []pf.PageNum, [][]byte) {
	h := p.readHeader()
	children := make([]pf.PageNum, h.numKeys+1)
	keys := make([][]byte, h.numKeys)
	for i := 0; i <= int(h.numKeys); i++ {
		children[i] = p.child(h, i)
	}
	for i := 0; i < int(h.numKeys); i++ {
		k := make([]byte, h.attrLength)
		copy(k, p.key(h, i))
		keys[i] = k
	}
	return h, children, keys
}

func encodeInternal(buf []byte, attrLength int, children []pf.PageNum, keys [][]byte) {
	clear(buf)
	p := internalPage(buf)
	initInternalPage(p, attrLength)
	h := p.readHeader()
	h.numKeys = uint16(len(keys))
	p.writeHeader(h)
	for i, c := range children {
		p.setChild(h, i, c)
	}
	for i, k := range keys {
		p.setKey(h, i, k)
	}
}
