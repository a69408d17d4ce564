package firmware

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	blobDirPerm  = 0o755
	blobFilePerm = 0o644
	partSuffix   = ".part"
)

// BlobStore keeps firmware binaries as flat files in one directory.
type BlobStore struct {
	dir string
}

func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, blobDirPerm); err != nil {
		return nil, fmt.Errorf("%w %s: %w", errFailedToCreateBlobFS, dir, err)
	}

	return &BlobStore{dir: dir}, nil
}

// Path returns where the named blob lives on disk.
func (b *BlobStore) Path(name string) string {
	return filepath.Join(b.dir, name)
}

// Save streams r into the named blob. Reading stops one byte past limit; if
// that byte exists the partial file is removed and ErrFileTooLarge returned.
// The blob only appears under its final name once fully written.
func (b *BlobStore) Save(name string, r io.Reader, limit int64) (int64, error) {
	final := b.Path(name)
	part := final + partSuffix

	f, err := os.OpenFile(part, os.O_CREATE|os.O_EXCL|os.O_WRONLY, blobFilePerm)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errFailedToCreateBlob, err)
	}

	n, err := io.Copy(f, io.LimitReader(r, limit+1))

	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err == nil && n > limit {
		err = fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, limit)
	} else if err != nil {
		err = fmt.Errorf("%w: %w", errFailedToWriteBlob, err)
	}

	if err != nil {
		_ = os.Remove(part)

		return 0, err
	}

	if err := os.Rename(part, final); err != nil {
		_ = os.Remove(part)

		return 0, fmt.Errorf("%w: %w", errFailedToWriteBlob, err)
	}

	return n, nil
}

// Open returns the named blob for reading. Names that are not plain file
// names inside the store are reported as missing.
func (b *BlobStore) Open(name string) (*os.File, error) {
	if !validBlobName(name) {
		return nil, fmt.Errorf("%w: %q", ErrBlobNotFound, name)
	}

	f, err := os.Open(b.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, name)
	}

	if err != nil {
		return nil, err
	}

	return f, nil
}

func (b *BlobStore) Remove(name string) error {
	if !validBlobName(name) {
		return fmt.Errorf("%w: %q", ErrBlobNotFound, name)
	}

	return os.Remove(b.Path(name))
}

func validBlobName(name string) bool {
	return name != "" &&
		name != "." &&
		name != ".." &&
		filepath.Base(name) == name &&
		!strings.ContainsAny(name, `/\`) &&
		!strings.HasSuffix(name, partSuffix)
}
