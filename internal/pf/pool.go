package pf

import (
	"fmt"
)

const PageSize = 4096

// PageNum identifies a page within one file. Pages are numbered 0..n-1;
// -1 is the scan cursor "before the first page".
type PageNum int32

// Strategy selects the replacement policy used when a pin request on a file
// needs a free frame; the victim is chosen among all unpinned frames of the
// pool. It is chosen per open.
type Strategy int

const (
	ReplaceLRU Strategy = iota
	ReplaceMRU
)

// Stats are the pool-wide I/O counters. Logical counters tick on every pin of
// an existing page (reads; AllocPage's pin is not counted) and every dirty
// unpin (writes); physical counters tick only when the backing file is
// actually touched.
type Stats struct {
	LogicalReads   int
	PhysicalReads  int
	LogicalWrites  int
	PhysicalWrites int
}

type frameKey struct {
	file *File
	page PageNum
}

type frame struct {
	file  *File
	page  PageNum
	buf   []byte
	pins  int
	dirty bool
	used  uint64 // last-access tick, drives LRU/MRU victim choice
}

// Pool is the process-wide page buffer. Capacity is fixed at construction;
// when every frame is pinned, pin requests fail with ErrNoMem.
type Pool struct {
	fs       FS
	capacity int
	frames   map[frameKey]*frame
	tick     uint64
	stats    Stats
}

func NewPool(capacity int, fs FS) *Pool {
	return &Pool{
		fs:       fs,
		capacity: capacity,
		frames:   make(map[frameKey]*frame, capacity),
	}
}

func (p *Pool) CreateFile(name string) error  { return p.fs.Create(name) }
func (p *Pool) DestroyFile(name string) error { return p.fs.Destroy(name) }

// Open opens a named page file against this pool. The file length must be a
// whole number of pages.
func (p *Pool) Open(name string, strategy Strategy) (*File, error) {
	bf, err := p.fs.Open(name)
	if err != nil {
		return nil, err
	}
	size, err := bf.Size()
	if err != nil {
		bf.Close()
		return nil, fmt.Errorf("pf: stat %q: %w", name, err)
	}
	if size%PageSize != 0 {
		bf.Close()
		return nil, fmt.Errorf("pf: %q: size %d is not a multiple of the page size", name, size)
	}
	return &File{
		pool:     p,
		name:     name,
		backing:  bf,
		strategy: strategy,
		numPages: PageNum(size / PageSize),
	}, nil
}

func (p *Pool) Stats() Stats { return p.stats }

func (p *Pool) ResetStats() { p.stats = Stats{} }

// PinnedFrames reports how many frames currently carry a pin. Every public
// operation of the layers above must leave this unchanged.
func (p *Pool) PinnedFrames() int {
	n := 0
	for _, fr := range p.frames {
		if fr.pins > 0 {
			n++
		}
	}
	return n
}

// fetch pins page n of f, reading it from the backing file on a miss.
// A pin on an already-pinned page still succeeds (the count rises and the
// buffer is returned) but reports ErrPageFixed so strict callers can notice.
func (p *Pool) fetch(f *File, n PageNum) ([]byte, error) {
	p.stats.LogicalReads++
	key := frameKey{f, n}
	if fr, ok := p.frames[key]; ok {
		fr.pins++
		p.tick++
		fr.used = p.tick
		if fr.pins > 1 {
			return fr.buf, ErrPageFixed
		}
		return fr.buf, nil
	}

	fr, err := p.newFrame(f, n)
	if err != nil {
		return nil, err
	}
	p.stats.PhysicalReads++
	if _, err := f.backing.ReadAt(fr.buf, int64(n)*PageSize); err != nil {
		delete(p.frames, key)
		return nil, fmt.Errorf("pf: read page %d of %q: %w", n, f.name, err)
	}
	return fr.buf, nil
}

// newFrame claims a pool frame for (f, n), evicting if the pool is full.
// The frame comes back pinned with a zeroed buffer.
func (p *Pool) newFrame(f *File, n PageNum) (*frame, error) {
	if len(p.frames) >= p.capacity {
		if err := p.evict(f.strategy); err != nil {
			return nil, err
		}
	}
	fr := &frame{file: f, page: n, buf: p.fs.AllocBuffer(), pins: 1}
	p.tick++
	fr.used = p.tick
	p.frames[frameKey{f, n}] = fr
	return fr, nil
}

func (p *Pool) evict(strategy Strategy) error {
	var victim *frame
	for _, fr := range p.frames {
		if fr.pins > 0 {
			continue
		}
		if victim == nil {
			victim = fr
			continue
		}
		switch strategy {
		case ReplaceLRU:
			if fr.used < victim.used {
				victim = fr
			}
		case ReplaceMRU:
			if fr.used > victim.used {
				victim = fr
			}
		}
	}
	if victim == nil {
		return ErrNoMem
	}
	if victim.dirty {
		if err := p.flushFrame(victim); err != nil {
			return err
		}
	}
	delete(p.frames, frameKey{victim.file, victim.page})
	return nil
}

func (p *Pool) flushFrame(fr *frame) error {
	p.stats.PhysicalWrites++
	if _, err := fr.file.backing.WriteAt(fr.buf, int64(fr.page)*PageSize); err != nil {
		return fmt.Errorf("pf: write page %d of %q: %w", fr.page, fr.file.name, err)
	}
	fr.dirty = false
	return nil
}
