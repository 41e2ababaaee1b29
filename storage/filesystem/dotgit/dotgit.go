// Package dotgit gives the filesystem object/reference stores raw access to
// a repository's ".git" layout: loose objects, packs, refs, and config,
// grounded on go-git's storage/filesystem/dotgit — whose own core
// dotgit.go did not survive into the retrieval pack, so path layout and
// method shapes here are rebuilt from dotgit_setref.go, writers.go, and
// spec §6.1's on-disk layout table rather than copied directly.
package dotgit

import (
	"os"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/format/config"
	"github.com/gitshelf/gitshelf/plumbing/hash"
)

const (
	objectsPath = "objects"
	packDir     = "pack"
	refsDir     = "refs"
	headFile    = "HEAD"
	configFile  = "config"

	packedRefsFile    = "packed-refs"
	descriptionFile   = "description"
	infoExcludeFile   = "info/exclude"
	defaultInitBranch = "main"
)

// DotGit wraps raw filesystem access to one ".git" directory.
type DotGit struct {
	fs   billy.Filesystem
	algo hash.Algorithm
}

// New wraps an already-open filesystem rooted at the ".git" directory,
// addressing objects under algo.
func New(fs billy.Filesystem, algo hash.Algorithm) *DotGit {
	return &DotGit{fs: fs, algo: algo}
}

// Algorithm returns the hash algorithm this DotGit addresses objects under.
func (d *DotGit) Algorithm() hash.Algorithm { return d.algo }

// Init lays out a fresh repository (spec §4.9 "Init"): object/ref
// directories, HEAD pointing at the initial branch, a minimal config, and
// the description/info-exclude stubs Git itself writes.
func (d *DotGit) Init(bare bool) error {
	if _, err := d.fs.Stat(headFile); err == nil {
		return plumbing.ErrInvalidArgument
	}

	dirs := []string{
		d.fs.Join(objectsPath, "info"),
		d.fs.Join(objectsPath, packDir),
		d.fs.Join(refsDir, "heads"),
		d.fs.Join(refsDir, "tags"),
		"hooks",
		"info",
	}
	for _, dir := range dirs {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	if err := d.writeFile(headFile, "ref: refs/heads/"+defaultInitBranch+"\n"); err != nil {
		return err
	}

	c := config.New()
	c.Core.Bare = bare
	if d.algo == hash.SHA256 {
		c.Core.RepositoryFormatVersion = 1
		c.Extensions.ObjectFormat = hash.SHA256.String()
	}
	var buf strings.Builder
	if err := c.Encode(&buf); err != nil {
		return err
	}
	if err := d.writeFile(configFile, buf.String()); err != nil {
		return err
	}

	if err := d.writeFile(descriptionFile, "Unnamed repository; edit this file to name it for gitweb.\n"); err != nil {
		return err
	}
	return d.writeFile(infoExcludeFile, "# git ls-files --others --exclude-from=.git/info/exclude\n")
}

func (d *DotGit) writeFile(path, content string) error {
	f, err := d.fs.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(content))
	return err
}

// ReadConfig decodes the repository's config file.
func (d *DotGit) ReadConfig() (*config.Config, error) {
	f, err := d.fs.Open(configFile)
	if err != nil {
		return nil, translateNotExist(err)
	}
	defer f.Close()
	return config.Decode(f)
}

// LooseObjectPath returns the conventional two-level loose object path for
// h (spec §6.1: "<objects>/<hash[0:2]>/<hash[2:]>").
func (d *DotGit) LooseObjectPath(h plumbing.Hash) string {
	hex := h.String()
	return d.fs.Join(objectsPath, hex[:2], hex[2:])
}

// OpenLooseObject opens the raw (still zlib-framed) loose object file for h.
func (d *DotGit) OpenLooseObject(h plumbing.Hash) (billy.File, error) {
	f, err := d.fs.Open(d.LooseObjectPath(h))
	if err != nil {
		return nil, translateNotExist(err)
	}
	return f, nil
}

// HasLooseObject reports whether a loose object file exists for h.
func (d *DotGit) HasLooseObject(h plumbing.Hash) (bool, error) {
	_, err := d.fs.Stat(d.LooseObjectPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewObject opens a loose object writer: content is written to a temp file
// under objects/pack and renamed into place on Close, keyed by the hash
// computed while writing (grounded on writers.go's ObjectWriter).
func (d *DotGit) NewObject() (*ObjectWriter, error) {
	return newObjectWriter(d.fs, d.algo)
}

// PackNames lists the base names ("pack-<hex>", no extension) of every pack
// present under objects/pack.
func (d *DotGit) PackNames() ([]string, error) {
	entries, err := d.fs.ReadDir(d.fs.Join(objectsPath, packDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	seen := map[string]struct{}{}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".pack") {
			continue
		}
		base := strings.TrimSuffix(name, ".pack")
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		names = append(names, base)
	}
	sort.Strings(names)
	return names, nil
}

// OpenPack opens the ".pack" file for the given base name.
func (d *DotGit) OpenPack(base string) (billy.File, error) {
	return d.fs.Open(d.fs.Join(objectsPath, packDir, base+".pack"))
}

// OpenPackIndex opens the ".idx" file for the given base name.
func (d *DotGit) OpenPackIndex(base string) (billy.File, error) {
	return d.fs.Open(d.fs.Join(objectsPath, packDir, base+".idx"))
}

// Join exposes the underlying filesystem's path joiner, used by callers
// (e.g. for passing relative refpaths into ReadDir).
func (d *DotGit) Join(elem ...string) string { return d.fs.Join(elem...) }

// Root returns the filesystem this DotGit wraps.
func (d *DotGit) Root() billy.Filesystem { return d.fs }

func translateNotExist(err error) error {
	if os.IsNotExist(err) {
		return plumbing.ErrNotFound
	}
	return err
}
