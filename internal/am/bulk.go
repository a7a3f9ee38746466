package am

import (
	"fmt"

	"toydb/internal/pf"
)

// BulkLoadFromSortedPairs builds a fully-formed tree bottom-up from keys
// sorted non-decreasing under Compare. Leaves are written left to right,
// internal levels are packed over them, and the final root is copied into the
// reserved page 0 so GetFirstPage always lands on the root.
//
// Each input pair gets its own key slot: duplicate keys are not merged into a
// shared recid chain here, unlike InsertEntry. Readers must treat the index
// as a multiset of (key, recID) pairs.
func BulkLoadFromSortedPairs(pool *pf.Pool, baseName string, indexNo int, attrType AttrType, attrLength int, keys [][]byte, recIDs []int32) error {
	if !validAttrType(attrType) {
		return ErrInvalidAttrType
	}
	if !validAttrLength(attrLength) {
		return ErrInvalidAttrLength
	}
	if len(keys) != len(recIDs) {
		return fmt.Errorf("am: %d keys but %d recids", len(keys), len(recIDs))
	}

	name := IndexName(baseName, indexNo)
	if err := pool.CreateFile(name); err != nil {
		return pfError(err)
	}
	f, err := pool.Open(name, pf.ReplaceLRU)
	if err != nil {
		return pfError(err)
	}
	if err := bulkLoad(f, attrType, attrLength, keys, recIDs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return pfError(err)
	}
	return nil
}

func bulkLoad(f *pf.File, attrType AttrType, attrLength int, keys [][]byte, recIDs []int32) error {
	// Reserve page 0 as the root slot, placeholder empty leaf for now.
	num, buf, err := f.AllocPage()
	if err != nil {
		return pfError(err)
	}
	initLeafPage(buf, attrLength)
	if err := f.UnfixPage(num, true); err != nil {
		return pfError(err)
	}

	leafPages, leafFirstKeys, err := buildLeafLevel(f, attrLength, keys, recIDs)
	if err != nil {
		return err
	}

	levelPages, levelKeys := leafPages, leafFirstKeys
	for len(levelPages) > 1 {
		levelPages, levelKeys, err = buildInternalLevel(f, attrLength, levelPages, levelKeys)
		if err != nil {
			return err
		}
	}

	return installRoot(f, levelPages[0])
}

// buildLeafLevel writes the leaf chain left to right and returns the leaf
// page numbers with a copy of each leaf's first key.
func buildLeafLevel(f *pf.File, attrLength int, keys [][]byte, recIDs []int32) ([]pf.PageNum, [][]byte, error) {
	cur, err := allocLeaf(f, attrLength)
	if err != nil {
		return nil, nil, err
	}
	leafPages := []pf.PageNum{cur}
	var leafFirstKeys [][]byte

	for i := 0; i < len(keys); i++ {
		buf, err := f.GetThisPage(cur)
		if err != nil {
			return nil, nil, pfError(err)
		}
		p := leafPage(buf)
		h := p.readHeader()

		if h.numKeys == 0 {
			first := make([]byte, attrLength)
			copy(first, keys[i])
			leafFirstKeys = append(leafFirstKeys, first)
		}

		if leafHasRoom(h) {
			p.appendKey(&h, keys[i], recIDs[i])
			p.writeHeader(h)
			if err := f.UnfixPage(cur, true); err != nil {
				return nil, nil, pfError(err)
			}
			continue
		}

		// Leaf full: open a fresh one, chain the old leaf to it, and
		// reprocess this key on the new leaf.
		if err := f.UnfixPage(cur, true); err != nil {
			return nil, nil, pfError(err)
		}
		next, err := allocLeaf(f, attrLength)
		if err != nil {
			return nil, nil, err
		}
		if err := setNextLeaf(f, cur, next); err != nil {
			return nil, nil, err
		}
		leafPages = append(leafPages, next)
		cur = next
		i--
	}

	return leafPages, leafFirstKeys, nil
}

// buildInternalLevel packs one internal level over the child pages, greedily
// filling each internal page. Every new page's parent entry carries the first
// key of its leftmost child, so separators stay consistent all the way up.
func buildInternalLevel(f *pf.File, attrLength int, childPages []pf.PageNum, childFirstKeys [][]byte) ([]pf.PageNum, [][]byte, error) {
	var parentPages []pf.PageNum
	var parentFirstKeys [][]byte

	i := 0
	for i < len(childPages) {
		num, buf, err := f.AllocPage()
		if err != nil {
			return nil, nil, pfError(err)
		}
		p := internalPage(buf)
		initInternalPage(p, attrLength)
		h := p.readHeader()

		p.setChild(h, 0, childPages[i])
		parentPages = append(parentPages, num)
		parentFirstKeys = append(parentFirstKeys, childFirstKeys[i])
		i++

		for i < len(childPages) && internalHasRoom(h) {
			p.setKey(h, int(h.numKeys), childFirstKeys[i])
			p.setChild(h, int(h.numKeys)+1, childPages[i])
			h.numKeys++
			i++
		}
		p.writeHeader(h)
		if err := f.UnfixPage(num, true); err != nil {
			return nil, nil, pfError(err)
		}
	}

	return parentPages, parentFirstKeys, nil
}

// installRoot copies the built root page into the reserved page 0. The built
// page is left allocated but unreferenced.
func installRoot(f *pf.File, root pf.PageNum) error {
	if root == 0 {
		return nil
	}
	rootBuf, err := f.GetThisPage(root)
	if err != nil {
		return pfError(err)
	}
	zeroBuf, err := f.GetThisPage(0)
	if err != nil {
		f.UnfixPage(root, false)
		return pfError(err)
	}
	copy(zeroBuf, rootBuf)
	if err := f.UnfixPage(0, true); err != nil {
		return pfError(err)
	}
	if err := f.UnfixPage(root, false); err != nil {
		return pfError(err)
	}
	return nil
}

func allocLeaf(f *pf.File, attrLength int) (pf.PageNum, error) {
	num, buf, err := f.AllocPage()
	if err != nil {
		return 0, pfError(err)
	}
	initLeafPage(buf, attrLength)
	if err := f.UnfixPage(num, true); err != nil {
		return 0, pfError(err)
	}
	return num, nil
}

func setNextLeaf(f *pf.File, page, next pf.PageNum) error {
	buf, err := f.GetThisPage(page)
	if err != nil {
		return pfError(err)
	}
	p := leafPage(buf)
	h := p.readHeader()
	h.nextLeafPage = int32(next)
	p.writeHeader(h)
	if err := f.UnfixPage(page, true); err != nil {
		return pfError(err)
	}
	return nil
}
