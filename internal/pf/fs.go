package pf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dsnet/golib/memfile"
	"github.com/ncw/directio"
)

// BackingFile is the raw storage under an open paged file. Pages live at
// offset pageNum*PageSize; the file length is always a multiple of PageSize.
type BackingFile interface {
	io.ReaderAt
	io.WriterAt
	Size() (int64, error)
	Sync() error
	Close() error
}

// FS creates, destroys and opens named page files. The pool talks to storage
// only through this interface so tests and benchmarks can run fully in memory.
type FS interface {
	Create(name string) error
	Destroy(name string) error
	Open(name string) (BackingFile, error)

	// AllocBuffer returns a PageSize byte buffer suitable for I/O against
	// files of this FS (direct I/O needs block-aligned memory).
	AllocBuffer() []byte
}

// DiskFS stores page files under Dir. With DirectIO set, files are opened
// with O_DIRECT and frame buffers come from directio.AlignedBlock.
type DiskFS struct {
	Dir      string
	DirectIO bool
}

func (fs DiskFS) path(name string) string {
	return filepath.Join(fs.Dir, name)
}

func (fs DiskFS) Create(name string) error {
	f, err := os.OpenFile(fs.path(name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("pf: create file: %w", err)
	}
	return f.Close()
}

func (fs DiskFS) Destroy(name string) error {
	if err := os.Remove(fs.path(name)); err != nil {
		return fmt.Errorf("pf: destroy file: %w", err)
	}
	return nil
}

func (fs DiskFS) Open(name string) (BackingFile, error) {
	var f *os.File
	var err error
	if fs.DirectIO {
		f, err = directio.OpenFile(fs.path(name), os.O_RDWR, 0o644)
	} else {
		f, err = os.OpenFile(fs.path(name), os.O_RDWR, 0o644)
	}
	if err != nil {
		return nil, fmt.Errorf("pf: open file: %w", err)
	}
	return diskFile{f}, nil
}

func (fs DiskFS) AllocBuffer() []byte {
	if fs.DirectIO {
		return directio.AlignedBlock(PageSize)
	}
	return make([]byte, PageSize)
}

type diskFile struct {
	*os.File
}

func (d diskFile) Size() (int64, error) {
	fi, err := d.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// MemFS keeps every page file in memory. Files survive close/reopen for the
// lifetime of the MemFS value, which is what the parity and reopen tests need.
type MemFS struct {
	files map[string]*memfile.File
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string]*memfile.File)}
}

func (fs *MemFS) Create(name string) error {
	if _, ok := fs.files[name]; ok {
		return fmt.Errorf("pf: create file: %q already exists", name)
	}
	fs.files[name] = memfile.New(nil)
	return nil
}

func (fs *MemFS) Destroy(name string) error {
	if _, ok := fs.files[name]; !ok {
		return fmt.Errorf("pf: destroy file: %q does not exist", name)
	}
	delete(fs.files, name)
	return nil
}

func (fs *MemFS) Open(name string) (BackingFile, error) {
	f, ok := fs.files[name]
	if !ok {
		return nil, fmt.Errorf("pf: open file: %q does not exist", name)
	}
	return memFile{f}, nil
}

func (fs *MemFS) AllocBuffer() []byte {
	return make([]byte, PageSize)
}

type memFile struct {
	*memfile.File
}

func (m memFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := m.File.ReadAt(p, off)
	// memfile reports a short read past the current length as io.EOF; a full
	// read of an existing page is never short here.
	if err != nil && !errors.Is(err, io.EOF) {
		return n, err
	}
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

func (m memFile) Size() (int64, error) {
	return int64(len(m.Bytes())), nil
}

func (m memFile) Sync() error { return nil }

func (m memFile) Close() error { return nil }
