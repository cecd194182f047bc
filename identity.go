package sshcommit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/sshcommit/commit"
)

// identity fills the empty fields of id for role ("author" or "committer")
// the way git does: GIT_<ROLE>_NAME/EMAIL/DATE, then <role>.name and
// user.name (and .email) from git config, then the clock.
func (s *Signer) identity(ctx context.Context, role string, id commit.Identity) (commit.Identity, error) {
	env := "GIT_" + strings.ToUpper(role) + "_"

	if id.Name == "" {
		name, err := s.lookup(ctx, env+"NAME", role+".name", "user.name")
		if err != nil {
			return id, err
		}
		id.Name = name
	}
	if id.Email == "" {
		email, err := s.lookup(ctx, env+"EMAIL", role+".email", "user.email")
		if err != nil {
			return id, err
		}
		id.Email = email
	}
	if id.Name == "" || id.Email == "" {
		return id, fmt.Errorf("%w: set user.name and user.email in git config", ErrMissingIdentity)
	}

	if id.When.IsZero() {
		if v := s.getenv(env + "DATE"); v != "" {
			when, err := ParseDate(v)
			if err != nil {
				return id, fmt.Errorf("%s%s: %w", env, "DATE", err)
			}
			id.When = when
		} else {
			id.When = s.now()
		}
	}
	return id, nil
}

// lookup returns the environment variable if set, else the first git
// config key that is.
func (s *Signer) lookup(ctx context.Context, envName string, configKeys ...string) (string, error) {
	if v := s.getenv(envName); v != "" {
		return v, nil
	}
	if s.backend == nil {
		return "", nil
	}
	for _, key := range configKeys {
		v, ok, err := s.backend.ConfigValue(ctx, key)
		if err != nil {
			return "", fmt.Errorf("read git config %s: %w", key, err)
		}
		if ok && v != "" {
			return v, nil
		}
	}
	return "", nil
}

// dateLayouts are the textual forms ParseDate accepts besides git's
// internal "<unix-seconds> <+hhmm>".
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05",
}

// ParseDate parses a commit date: "<unix-seconds> <+hhmm>" (optionally
// prefixed with "@"), RFC 3339 or RFC 2822. The offset is preserved.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if fields := strings.Fields(strings.TrimPrefix(s, "@")); len(fields) <= 2 && len(fields) > 0 {
		if secs, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
			loc := time.UTC
			if len(fields) == 2 {
				zone, err := commit.ParseZone(fields[1])
				if err != nil {
					return time.Time{}, fmt.Errorf("%w: date %q: %v", commit.ErrInvalidPayload, s, err)
				}
				loc = zone
			}
			return time.Unix(secs, 0).In(loc), nil
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", commit.ErrInvalidPayload, s)
}

