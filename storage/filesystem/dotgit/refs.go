package dotgit

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/gitshelf/gitshelf/plumbing"
)

// ReadLooseRef reads and parses a single loose reference file's content: a
// whitespace-trimmed hex hash (spec §4.6).
func (d *DotGit) ReadLooseRef(refpath string) (plumbing.Hash, error) {
	f, err := d.fs.Open(refpath)
	if err != nil {
		return plumbing.Hash{}, translateNotExist(err)
	}
	defer f.Close()
	return readHashFile(f)
}

func readHashFile(f billy.File) (plumbing.Hash, error) {
	var buf strings.Builder
	if _, err := buf.ReadFrom(readerFor(f)); err != nil {
		return plumbing.Hash{}, err
	}
	s := strings.TrimSpace(buf.String())
	h, err := plumbing.FromHex(s)
	if err != nil {
		return plumbing.Hash{}, fmt.Errorf("%w: dotgit: %s: %s", plumbing.ErrInvalidObject, f.Name(), err)
	}
	return h, nil
}

func readerFor(f billy.File) *bufio.Reader { return bufio.NewReader(f) }

// ReadHEAD reads the HEAD file, returning a symbolic reference if its
// content starts with "ref: ", otherwise a direct hash reference.
func (d *DotGit) ReadHEAD() (plumbing.Reference, error) {
	f, err := d.fs.Open(headFile)
	if err != nil {
		return plumbing.Reference{}, translateNotExist(err)
	}
	defer f.Close()

	var buf strings.Builder
	if _, err := buf.ReadFrom(readerFor(f)); err != nil {
		return plumbing.Reference{}, err
	}
	content := strings.TrimSpace(buf.String())

	if rest, ok := strings.CutPrefix(content, "ref: "); ok {
		name, err := plumbing.ReferenceName(strings.TrimSpace(rest)).Validate()
		if err != nil {
			return plumbing.Reference{}, err
		}
		return plumbing.NewSymbolicReference(plumbing.HEAD, name), nil
	}

	h, err := plumbing.FromHex(content)
	if err != nil {
		return plumbing.Reference{}, fmt.Errorf("%w: dotgit: HEAD: %s", plumbing.ErrInvalidObject, err)
	}
	return plumbing.NewHashReference(plumbing.HEAD, h), nil
}

// IterLooseRefs walks refs/ recursively, returning every regular file found
// as a refpath relative to the ".git" root ("refs/heads/main", ...).
func (d *DotGit) IterLooseRefs() ([]string, error) {
	var out []string
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := d.fs.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			full := d.fs.Join(dir, e.Name())
			if e.IsDir() {
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			out = append(out, full)
		}
		return nil
	}
	if err := walk(refsDir); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadPackedRefs parses packed-refs: comments ("#...") and peel lines
// ("^...") are skipped, everything else is "<hex-hash> <refpath>" (spec
// §4.6).
func (d *DotGit) ReadPackedRefs() (map[string]plumbing.Hash, error) {
	f, err := d.fs.Open(packedRefsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]plumbing.Hash{}, nil
		}
		return nil, err
	}
	defer f.Close()

	out := map[string]plumbing.Hash{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == '^' {
			continue
		}
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			continue
		}
		h, err := plumbing.FromHex(line[:sp])
		if err != nil {
			continue
		}
		out[line[sp+1:]] = h
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteLooseRef writes hash + "\n" to refpath, creating parent directories
// as needed (spec §4.6, "validated write").
func (d *DotGit) WriteLooseRef(refpath string, h plumbing.Hash) error {
	dir := parentDir(refpath)
	if dir != "" {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := d.fs.Create(refpath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(h.String() + "\n"))
	return err
}

// RemoveLooseRef deletes a loose ref file. Missing files are not an error.
func (d *DotGit) RemoveLooseRef(refpath string) error {
	err := d.fs.Remove(refpath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func parentDir(refpath string) string {
	i := strings.LastIndexByte(refpath, '/')
	if i < 0 {
		return ""
	}
	return refpath[:i]
}

// RewritePackedRefsWithoutRef rewrites packed-refs omitting refpath,
// preserving every other line verbatim (including peel lines, which stay
// attached to the entry immediately above them). Grounded on go-git's
// dotgit_rewrite_packed_refs.go, simplified to a create-and-rename since
// this core targets a single local filesystem rather than go-git's
// broader portable-filesystem matrix (sivafs, bare Windows handles).
func (d *DotGit) RewritePackedRefsWithoutRef(refpath string) error {
	f, err := d.fs.Open(packedRefsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	tmp, err := d.fs.TempFile("", "tmp_packed-refs_")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	skip := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "" || trimmed[0] == '#':
			skip = false
		case trimmed[0] == '^':
			// peel line: keep/drop alongside the ref line above it
		default:
			sp := strings.IndexByte(trimmed, ' ')
			skip = sp >= 0 && trimmed[sp+1:] == refpath
		}

		if skip {
			continue
		}
		if _, err := tmp.Write([]byte(line + "\n")); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := sc.Err(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return d.fs.Rename(tmpName, packedRefsFile)
}
