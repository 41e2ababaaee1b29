// Package repository is the facade spec §4.9 describes: Open/Init a
// repository rooted at a ".git" directory, enumerate its commits/trees/file
// history, resolve paths, and invalidate its caches. It is the one package
// in this module a typical caller imports directly; everything else
// (plumbing, storage, commitbuilder) is assembled here.
package repository

import (
	"io"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/hash"
	"github.com/gitshelf/gitshelf/storage"
	"github.com/gitshelf/gitshelf/storage/filesystem"
	"github.com/gitshelf/gitshelf/storage/filesystem/dotgit"
	"github.com/gitshelf/gitshelf/storage/reflock"
)

// dotGitDir is the conventional name of a repository's metadata directory
// under a working tree root.
const dotGitDir = ".git"

// Repository is a handle on one repository's object and reference storage.
type Repository struct {
	store *filesystem.Storage
	dir   *dotgit.DotGit
	algo  hash.Algorithm
	log   *logrus.Entry
}

// Store exposes the underlying storage.Storer, for callers (e.g.
// commitbuilder) that need direct object/reference access.
func (r *Repository) Store() storage.Storer { return r.store }

// Algorithm reports the hash algorithm this repository addresses objects
// under (fixed at Open/Init time, spec §4.9 "Open").
func (r *Repository) Algorithm() hash.Algorithm { return r.algo }

func withLog(log *logrus.Entry) *logrus.Entry {
	if log != nil {
		return log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Open opens the repository in path's ".git" subdirectory if there is one,
// otherwise path itself as a bare repository directory; parent directories
// of path are not searched. The hash algorithm is detected by reading
// config's extensions.objectFormat (spec §4.9 "Open").
func Open(path string, log *logrus.Entry) (*Repository, error) {
	fs := osfs.New(path)
	dotFS, err := locateDotGit(fs)
	if err != nil {
		return nil, errors.Wrap(err, "repository: open")
	}
	return open(dotFS, log)
}

// locateDotGit returns a filesystem rooted at fs's ".git" subdirectory if
// one exists, falling back to treating fs itself as a bare ".git" directory
// otherwise (spec §4.9: "locate the .git directory (direct, or walk up if
// the path is a working tree root)" — this core takes a single path rather
// than climbing ancestor directories, since callers are expected to name
// either a working tree root or a bare repository directly).
func locateDotGit(fs billy.Filesystem) (billy.Filesystem, error) {
	if fi, err := fs.Stat(dotGitDir); err == nil {
		if !fi.IsDir() {
			return nil, errors.Errorf("repository: %q is not a directory", dotGitDir)
		}
		sub, err := fs.Chroot(dotGitDir)
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
	return fs, nil
}

func open(dotFS billy.Filesystem, log *logrus.Entry) (*Repository, error) {
	log = withLog(log)

	probe := dotgit.New(dotFS, hash.SHA1)
	cfg, err := probe.ReadConfig()
	if err != nil {
		return nil, errors.Wrap(err, "repository: open: read config")
	}

	algo, err := hash.ParseAlgorithm(cfg.Extensions.ObjectFormat)
	if err != nil {
		return nil, errors.Wrap(err, "repository: open: unsupported object format")
	}
	log.WithField("algo", algo).Debug("repository: detected hash algorithm")

	dir := dotgit.New(dotFS, algo)
	store, err := filesystem.NewStorage(dir, reflock.New())
	if err != nil {
		return nil, errors.Wrap(err, "repository: open: storage")
	}

	return &Repository{store: store, dir: dir, algo: algo, log: log}, nil
}

// InitOptions configures Init.
type InitOptions struct {
	// Bare marks the repository as having no working tree.
	Bare bool
	// Algorithm selects the object hash width; the zero value is SHA1.
	Algorithm hash.Algorithm
	// Log receives ambient log output; nil uses logrus's standard logger.
	Log *logrus.Entry
}

// Init lays out a fresh repository at path (spec §4.9 "Init"): the standard
// directory skeleton, HEAD pointing at "refs/heads/main", a minimal config,
// and the description/info-exclude stubs. It fails if path already contains
// an initialized ".git".
func Init(path string, opt InitOptions) (*Repository, error) {
	fs := osfs.New(path)

	dotFS := fs
	if !opt.Bare {
		if err := fs.MkdirAll(dotGitDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "repository: init")
		}
		sub, err := fs.Chroot(dotGitDir)
		if err != nil {
			return nil, errors.Wrap(err, "repository: init")
		}
		dotFS = sub
	}

	log := withLog(opt.Log)
	dir := dotgit.New(dotFS, opt.Algorithm)
	if err := dir.Init(opt.Bare); err != nil {
		return nil, errors.Wrap(err, "repository: init")
	}
	log.WithFields(logrus.Fields{"bare": opt.Bare, "algo": opt.Algorithm}).Debug("repository: initialized")

	store, err := filesystem.NewStorage(dir, reflock.New())
	if err != nil {
		return nil, errors.Wrap(err, "repository: init: storage")
	}
	return &Repository{store: store, dir: dir, algo: opt.Algorithm, log: log}, nil
}

// IngestPack decodes every object in pack, writes each one as a loose
// object in this repository's store, and returns their hashes in pack
// order (spec §4.5 "streaming bulk ingest"). It is the counterpart to a
// pack produced by any Git client: objects it contains are readable via
// Store().Object and the facade's other lookups immediately afterward,
// with no separate index step.
func (r *Repository) IngestPack(pack io.Reader) ([]plumbing.Hash, error) {
	hashes, err := r.store.IngestPack(pack)
	if err != nil {
		return nil, errors.Wrap(err, "repository: ingest pack")
	}
	r.log.WithField("count", len(hashes)).Debug("repository: ingested pack")
	return hashes, nil
}

// Invalidate flips the reference snapshot and, if clearAll, discards the
// object identity cache too (spec §4.9 "Cache invalidation").
func (r *Repository) Invalidate(clearAll bool) {
	r.store.Invalidate(clearAll)
}

// Head resolves HEAD to its final hash target, following its one level of
// symbolic indirection.
func (r *Repository) Head() (plumbing.Hash, error) {
	return r.Resolve(plumbing.HEAD)
}

// Resolve resolves name (HEAD, or a direct "refs/..." name) to its commit
// hash.
func (r *Repository) Resolve(name plumbing.ReferenceName) (plumbing.Hash, error) {
	ref, err := r.store.Reference(name)
	if err != nil {
		return plumbing.Hash{}, errors.Wrapf(err, "repository: resolve %s", name)
	}
	return ref.Target.Hash, nil
}

// commitTree returns the tree hash commit points at. A zero commit hash is
// resolved against HEAD first (spec §4.9: "empty/default ref means HEAD").
func (r *Repository) commitTree(commit plumbing.Hash) (plumbing.Hash, error) {
	if commit.IsZero() {
		h, err := r.Head()
		if err != nil {
			return plumbing.Hash{}, err
		}
		commit = h
	}
	c, err := r.Commit(commit)
	if err != nil {
		return plumbing.Hash{}, err
	}
	return c.Tree, nil
}
