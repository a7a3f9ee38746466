package pf

import (
	"errors"
	"fmt"
)

// File is an open paged file. All page access goes through the pool the file
// was opened against; every successful pin must be paired with exactly one
// UnfixPage on the same page number.
type File struct {
	pool     *Pool
	name     string
	backing  BackingFile
	strategy Strategy
	numPages PageNum
	closed   bool
}

func (f *File) Name() string { return f.name }

func (f *File) NumPages() PageNum { return f.numPages }

// AllocPage appends a new page to the file and pins it. The returned buffer
// is zeroed. The frame is born dirty so the page is materialized on disk even
// if the caller never modifies it.
func (f *File) AllocPage() (PageNum, []byte, error) {
	if f.closed {
		return 0, nil, fmt.Errorf("pf: alloc on closed file %q", f.name)
	}
	n := f.numPages
	fr, err := f.pool.newFrame(f, n)
	if err != nil {
		return 0, nil, err
	}
	fr.dirty = true
	f.numPages++
	return n, fr.buf, nil
}

// GetThisPage pins page n. On a page that is already pinned the buffer is
// still returned together with ErrPageFixed; see Pool.fetch.
func (f *File) GetThisPage(n PageNum) ([]byte, error) {
	if f.closed {
		return nil, fmt.Errorf("pf: get on closed file %q", f.name)
	}
	if n < 0 || n >= f.numPages {
		return nil, ErrInvalidPage
	}
	return f.pool.fetch(f, n)
}

// GetFirstPage pins the first page of the file.
func (f *File) GetFirstPage() (PageNum, []byte, error) {
	return f.GetNextPage(-1)
}

// GetNextPage pins the page after n, returning ErrEOF past the last page.
func (f *File) GetNextPage(n PageNum) (PageNum, []byte, error) {
	if f.closed {
		return 0, nil, fmt.Errorf("pf: get on closed file %q", f.name)
	}
	next := n + 1
	if next < 0 || next >= f.numPages {
		return 0, nil, ErrEOF
	}
	buf, err := f.pool.fetch(f, next)
	if err != nil && !errors.Is(err, ErrPageFixed) {
		return 0, nil, err
	}
	return next, buf, err
}

// UnfixPage releases one pin on page n. The dirty flag must be true iff the
// buffer bytes were modified while this pin was held.
func (f *File) UnfixPage(n PageNum, dirty bool) error {
	fr, ok := f.pool.frames[frameKey{f, n}]
	if !ok || fr.pins == 0 {
		return ErrPageFree
	}
	if dirty {
		fr.dirty = true
		f.pool.stats.LogicalWrites++
	}
	fr.pins--
	return nil
}

// Close flushes the file's dirty frames and releases them. Closing with a
// page still pinned is a caller bug and fails with ErrPageFixed.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	for key, fr := range f.pool.frames {
		if fr.file != f {
			continue
		}
		if fr.pins > 0 {
			return ErrPageFixed
		}
		if fr.dirty {
			if err := f.pool.flushFrame(fr); err != nil {
				return err
			}
		}
		delete(f.pool.frames, key)
	}
	f.closed = true
	if err := f.backing.Sync(); err != nil {
		return fmt.Errorf("pf: sync %q: %w", f.name, err)
	}
	if err := f.backing.Close(); err != nil {
		return fmt.Errorf("pf: close %q: %w", f.name, err)
	}
	return nil
}
