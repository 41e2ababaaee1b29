package dotgit

import (
	"fmt"

	"github.com/go-git/go-billy/v5"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/format/objfile"
	"github.com/gitshelf/gitshelf/plumbing/hash"
)

// ObjectWriter writes a loose object to a temp file and renames it into
// place on Close, keyed by the hash computed while writing — grounded on
// storage/filesystem/dotgit/writers.go's ObjectWriter, adapted from go-git's
// fixed-SHA1 objfile.Writer to this core's per-repository hash algorithm.
type ObjectWriter struct {
	*objfile.Writer
	fs   billy.Filesystem
	f    billy.File
	algo hash.Algorithm
}

func newObjectWriter(fs billy.Filesystem, algo hash.Algorithm) (*ObjectWriter, error) {
	f, err := fs.TempFile(fs.Join(objectsPath, packDir), "tmp_obj_")
	if err != nil {
		return nil, err
	}
	return &ObjectWriter{
		Writer: objfile.NewWriter(f, algo),
		fs:     fs,
		f:      f,
		algo:   algo,
	}, nil
}

// Close flushes the object content, closes the temp file, and renames it to
// its final content-addressed path.
func (w *ObjectWriter) Close() error {
	if err := w.Writer.Close(); err != nil {
		return err
	}
	if err := w.f.Close(); err != nil {
		return err
	}
	return w.save()
}

func (w *ObjectWriter) save() error {
	h := w.Writer.Hash()
	hex := h.String()
	dir := w.fs.Join(objectsPath, hex[:2])
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dest := w.fs.Join(dir, hex[2:])
	if err := w.fs.Rename(w.f.Name(), dest); err != nil {
		return fmt.Errorf("%w: dotgit: renaming loose object: %s", plumbing.ErrIO, err)
	}
	return nil
}
