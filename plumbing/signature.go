package plumbing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature is the name/email/timestamp tuple embedded in commit and tag
// headers ("author"/"committer"/"tagger").
type Signature struct {
	Name  string
	Email string
	// When is encoded to whole seconds, and its UTC offset to whole
	// minutes.
	When time.Time
}

// Encode renders the signature in Git's wire form:
// "Name <email> unix-seconds ±HHMM".
func (s Signature) Encode() string {
	_, offset := s.When.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hours := offset / 3600
	mins := (offset % 3600) / 60
	return fmt.Sprintf("%s <%s> %d %s%02d%02d",
		s.Name, s.Email, s.When.Unix(), sign, hours, mins)
}

// ParseSignature parses Git's wire form. It is tolerant of a missing
// timezone (defaults to UTC) and a missing/garbled timestamp (defaults to
// the Unix epoch), matching Git's own leniency when reading objects it did
// not itself write. An empty name or email is rejected.
func ParseSignature(raw string) (Signature, error) {
	var s Signature

	open := strings.LastIndexByte(raw, '<')
	close := strings.LastIndexByte(raw, '>')
	if open < 0 || close < 0 || close < open {
		return s, fmt.Errorf("%w: malformed signature %q", ErrInvalidObject, raw)
	}

	s.Name = strings.TrimSpace(raw[:open])
	s.Email = strings.TrimSpace(raw[open+1 : close])
	if s.Name == "" || s.Email == "" {
		return s, fmt.Errorf("%w: signature has empty name or email", ErrInvalidObject)
	}

	rest := strings.TrimSpace(raw[close+1:])
	fields := strings.Fields(rest)

	var when time.Time = time.Unix(0, 0).UTC()
	if len(fields) >= 1 {
		if sec, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
			when = time.Unix(sec, 0).UTC()
		}
	}
	if len(fields) >= 2 {
		if loc, err := parseOffset(fields[1]); err == nil {
			when = when.In(loc)
		}
	}
	s.When = when

	return s, nil
}

func parseOffset(tz string) (*time.Location, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return nil, fmt.Errorf("%w: malformed timezone %q", ErrInvalidObject, tz)
	}
	hours, err := strconv.Atoi(tz[1:3])
	if err != nil {
		return nil, err
	}
	mins, err := strconv.Atoi(tz[3:5])
	if err != nil {
		return nil, err
	}
	offset := hours*3600 + mins*60
	if tz[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(tz, offset), nil
}
