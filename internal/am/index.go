package am

import (
	"fmt"

	"toydb/internal/pf"
)

// IndexName builds the on-disk file name of index indexNo over baseName.
func IndexName(baseName string, indexNo int) string {
	return fmt.Sprintf("%s.%d", baseName, indexNo)
}

// Index is an open B+ tree index file. The root is always page 0.
type Index struct {
	file       *pf.File
	attrType   AttrType
	attrLength int
}

// CreateIndex creates the index file "<baseName>.<indexNo>" holding an empty
// tree: page 0 initialized as an empty leaf.
func CreateIndex(pool *pf.Pool, baseName string, indexNo int, attrType AttrType, attrLength int) error {
	if !validAttrType(attrType) {
		return ErrInvalidAttrType
	}
	if !validAttrLength(attrLength) {
		return ErrInvalidAttrLength
	}

	name := IndexName(baseName, indexNo)
	if err := pool.CreateFile(name); err != nil {
		return pfError(err)
	}
	f, err := pool.Open(name, pf.ReplaceLRU)
	if err != nil {
		return pfError(err)
	}
	num, buf, err := f.AllocPage()
	if err != nil {
		f.Close()
		return pfError(err)
	}
	initLeafPage(buf, attrLength)
	if err := f.UnfixPage(num, true); err != nil {
		f.Close()
		return pfError(err)
	}
	if err := f.Close(); err != nil {
		return pfError(err)
	}
	return nil
}

// OpenIndex opens an existing index file.
func OpenIndex(pool *pf.Pool, baseName string, indexNo int, attrType AttrType, attrLength int) (*Index, error) {
	if !validAttrType(attrType) {
		return nil, ErrInvalidAttrType
	}
	if !validAttrLength(attrLength) {
		return nil, ErrInvalidAttrLength
	}
	f, err := pool.Open(IndexName(baseName, indexNo), pf.ReplaceLRU)
	if err != nil {
		return nil, pfError(err)
	}
	return &Index{file: f, attrType: attrType, attrLength: attrLength}, nil
}

func (idx *Index) Close() error {
	if err := idx.file.Close(); err != nil {
		return pfError(err)
	}
	return nil
}
