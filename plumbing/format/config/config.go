// Package config decodes and encodes ".git/config": Git's own dialect of
// INI, with quoted subsections ([section "sub"]) that a generic INI parser
// does not understand. Decoding delegates to gcfg's line-oriented callback
// API (the same approach go-git uses for this exact file);
// encoding is a small purpose-built writer, since this core only ever
// writes the handful of keys Init produces (spec §4.9) — not a general
// round-trip encoder for arbitrary third-party config files.
package config

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-git/gcfg"
)

// Config is the narrow subset of ".git/config" this core reads and writes:
// the keys spec §4.9/§6.1 name explicitly. Unrecognized sections and keys
// are kept verbatim in Raw when decoding; Encode writes only the core and
// extensions keys, so Raw is not written back.
type Config struct {
	Core struct {
		RepositoryFormatVersion int
		FileMode                bool
		Bare                    bool
	}
	Extensions struct {
		ObjectFormat string // "" (sha1) or "sha256"
	}

	// Raw holds every key this core did not recognize, keyed by
	// "section[.subsection].key", preserving the decoder's last-value-wins
	// semantics.
	Raw map[string]string
}

// New returns a Config with Git's documented defaults.
func New() *Config {
	c := &Config{Raw: map[string]string{}}
	c.Core.RepositoryFormatVersion = 0
	return c
}

// Decode parses r as a ".git/config" file.
func Decode(r io.Reader) (*Config, error) {
	c := New()
	cb := func(section, subsection, key, value string, _ bool) error {
		full := section
		if subsection != "" {
			full += "." + subsection
		}
		switch {
		case strings.EqualFold(full, "core") && strings.EqualFold(key, "repositoryformatversion"):
			v, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("config: core.repositoryformatversion: %w", err)
			}
			c.Core.RepositoryFormatVersion = v
		case strings.EqualFold(full, "core") && strings.EqualFold(key, "bare"):
			c.Core.Bare = parseBool(value)
		case strings.EqualFold(full, "core") && strings.EqualFold(key, "filemode"):
			c.Core.FileMode = parseBool(value)
		case strings.EqualFold(full, "extensions") && strings.EqualFold(key, "objectformat"):
			c.Extensions.ObjectFormat = strings.ToLower(value)
		default:
			c.Raw[full+"."+key] = value
		}
		return nil
	}
	if err := gcfg.ReadWithCallback(r, cb); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return c, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "on":
		return true
	default:
		return false
	}
}

// Encode writes the config in Git's canonical minimal form.
func (c *Config) Encode(w io.Writer) error {
	_, err := fmt.Fprintf(w, "[core]\n\trepositoryformatversion = %d\n\tfilemode = %t\n\tbare = %t\n",
		c.Core.RepositoryFormatVersion, c.Core.FileMode, c.Core.Bare)
	if err != nil {
		return err
	}
	if c.Extensions.ObjectFormat != "" {
		if _, err := fmt.Fprintf(w, "[extensions]\n\tobjectFormat = %s\n", c.Extensions.ObjectFormat); err != nil {
			return err
		}
	}
	return nil
}
