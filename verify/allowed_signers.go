package verify

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	gossh "golang.org/x/crypto/ssh"
)

// LoadAllowedSigners reads an OpenSSH allowed_signers file (the format of
// git's gpg.ssh.allowedSignersFile) into a keyring.
func LoadAllowedSigners(path string) (*Keyring, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided path expected
	if err != nil {
		return nil, fmt.Errorf("open allowed signers: %w", err)
	}
	defer f.Close()

	entries, err := ParseAllowedSigners(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	k := &Keyring{}
	for _, e := range entries {
		k.AddEntry(e)
	}
	return k, nil
}

// ParseAllowedSigners parses allowed_signers lines:
//
//	principals [options] keytype base64-key [comment]
//
// Supported options are namespaces, valid-after and valid-before.
// cert-authority lines are skipped; other options are ignored.
func ParseAllowedSigners(r io.Reader) ([]*Entry, error) {
	var entries []*Entry

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), 1<<20)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		e, err := parseAllowedSignersLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidAllowedSigners, lineNo, err)
		}
		if e != nil {
			entries = append(entries, e)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read allowed signers: %w", err)
	}

	return entries, nil
}

// parseAllowedSignersLine returns nil for lines that are valid but unused.
func parseAllowedSignersLine(line string) (*Entry, error) {
	principals, rest, err := principalField(line)
	if err != nil {
		return nil, err
	}
	if rest == "" {
		return nil, errors.New("missing public key")
	}

	// The remainder has authorized_keys syntax, options included.
	key, _, options, _, err := gossh.ParseAuthorizedKey([]byte(rest))
	if err != nil {
		return nil, fmt.Errorf("public key: %v", err)
	}

	e := &Entry{Key: key}
	for _, p := range strings.Split(principals, ",") {
		if p = strings.TrimSpace(p); p != "" {
			e.Principals = append(e.Principals, p)
		}
	}
	if len(e.Principals) == 0 {
		return nil, errors.New("empty principals")
	}

	for _, opt := range options {
		name, value, _ := strings.Cut(opt, "=")
		value = strings.Trim(value, `"`)

		switch strings.ToLower(name) {
		case "cert-authority":
			return nil, nil
		case "namespaces":
			for _, ns := range strings.Split(value, ",") {
				if ns = strings.TrimSpace(ns); ns != "" {
					e.Namespaces = append(e.Namespaces, ns)
				}
			}
		case "valid-after":
			if e.ValidAfter, err = parseSignerTime(value); err != nil {
				return nil, fmt.Errorf("valid-after: %v", err)
			}
		case "valid-before":
			if e.ValidBefore, err = parseSignerTime(value); err != nil {
				return nil, fmt.Errorf("valid-before: %v", err)
			}
		}
	}

	return e, nil
}

// principalField splits off the first field, which may be double-quoted.
func principalField(line string) (field, rest string, err error) {
	if strings.HasPrefix(line, `"`) {
		end := strings.IndexByte(line[1:], '"')
		if end < 0 {
			return "", "", errors.New("unterminated quoted principals")
		}
		return line[1 : end+1], strings.TrimSpace(line[end+2:]), nil
	}

	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, "", nil
	}
	return line[:i], strings.TrimSpace(line[i+1:]), nil
}

// parseSignerTime parses YYYYMMDD[HHMM[SS]] with an optional trailing Z
// for UTC; otherwise the time is local.
func parseSignerTime(s string) (time.Time, error) {
	loc := time.Local
	if v, ok := strings.CutSuffix(s, "Z"); ok {
		s, loc = v, time.UTC
	}

	var layout string
	switch len(s) {
	case 8:
		layout = "20060102"
	case 12:
		layout = "200601021504"
	case 14:
		layout = "20060102150405"
	default:
		return time.Time{}, fmt.Errorf("time %q: want YYYYMMDD[HHMM[SS]][Z]", s)
	}
	return time.ParseInLocation(layout, s, loc)
}
