package am

import (
	"fmt"

	"toydb/internal/pf"
)

// Pair is one (key, record-id) entry of an index.
type Pair struct {
	Key   []byte
	RecID int32
}

// firstLeaf descends from the root along leftmost children and returns the
// first leaf's page number.
func (idx *Index) firstLeaf() (pf.PageNum, error) {
	page := pf.PageNum(0)
	for {
		buf, err := idx.file.GetThisPage(page)
		if err != nil {
			return 0, pfError(err)
		}
		if isLeafPage(buf) {
			if err := idx.file.UnfixPage(page, false); err != nil {
				return 0, pfError(err)
			}
			return page, nil
		}
		p := internalPage(buf)
		child := p.child(p.readHeader(), 0)
		if err := idx.file.UnfixPage(page, false); err != nil {
			return 0, pfError(err)
		}
		page = child
	}
}

// Leaves returns the leaf pages in sibling-chain order, starting from the
// leftmost leaf.
func (idx *Index) Leaves() ([]pf.PageNum, error) {
	page, err := idx.firstLeaf()
	if err != nil {
		return nil, err
	}
	var leaves []pf.PageNum
	for {
		leaves = append(leaves, page)
		buf, err := idx.file.GetThisPage(page)
		if err != nil {
			return nil, pfError(err)
		}
		next := leafPage(buf).readHeader().nextLeafPage
		if err := idx.file.UnfixPage(page, false); err != nil {
			return nil, pfError(err)
		}
		if next == noPage {
			return leaves, nil
		}
		if len(leaves) > int(idx.file.NumPages()) {
			return nil, fmt.Errorf("am: leaf chain cycles")
		}
		page = pf.PageNum(next)
	}
}

// Entries returns the full in-order (key, recID) stream: leaf chain order,
// key slots in page order, recid chains in list order.
func (idx *Index) Entries() ([]Pair, error) {
	leaves, err := idx.Leaves()
	if err != nil {
		return nil, err
	}
	var pairs []Pair
	for _, page := range leaves {
		buf, err := idx.file.GetThisPage(page)
		if err != nil {
			return nil, pfError(err)
		}
		p := leafPage(buf)
		h := p.readHeader()
		for i := 0; i < int(h.numKeys); i++ {
			key := make([]byte, h.attrLength)
			copy(key, p.key(h, i))
			for _, id := range p.chain(h, i) {
				pairs = append(pairs, Pair{Key: key, RecID: id})
			}
		}
		if err := idx.file.UnfixPage(page, false); err != nil {
			return nil, pfError(err)
		}
	}
	return pairs, nil
}
