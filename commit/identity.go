package commit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Identity is an author or committer with a timestamp.
type Identity struct {
	Name  string
	Email string
	When  time.Time
}

// String formats the identity as it appears in a commit header:
// "Name <email> <unix-seconds> <+hhmm|-hhmm>".
func (i Identity) String() string {
	return fmt.Sprintf("%s <%s> %d %s", i.Name, i.Email, i.When.Unix(), i.When.Format("-0700"))
}

// Validate checks that the identity can be written into a header without
// changing its meaning.
func (i Identity) Validate() error {
	if strings.ContainsAny(i.Name, "<>\n") {
		return fmt.Errorf("%w: name %q contains '<', '>' or newline", ErrInvalidPayload, i.Name)
	}
	if strings.ContainsAny(i.Email, "<>\n") {
		return fmt.Errorf("%w: email %q contains '<', '>' or newline", ErrInvalidPayload, i.Email)
	}
	if i.When.IsZero() {
		return fmt.Errorf("%w: identity %q has no timestamp", ErrInvalidPayload, i.Name)
	}
	return nil
}

// ParseIdentity parses "Name <email> <unix-seconds> <+hhmm|-hhmm>".
// The time zone offset is preserved.
func ParseIdentity(s string) (Identity, error) {
	open := strings.IndexByte(s, '<')
	closing := strings.LastIndexByte(s, '>')
	if open < 0 || closing < open {
		return Identity{}, fmt.Errorf("%w: identity %q: missing <email>", ErrInvalidPayload, s)
	}

	id := Identity{
		Name:  strings.TrimSuffix(s[:open], " "),
		Email: s[open+1 : closing],
	}

	fields := strings.Fields(s[closing+1:])
	if len(fields) != 2 {
		return Identity{}, fmt.Errorf("%w: identity %q: want timestamp and zone", ErrInvalidPayload, s)
	}

	secs, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: identity %q: timestamp: %v", ErrInvalidPayload, s, err)
	}

	loc, err := ParseZone(fields[1])
	if err != nil {
		return Identity{}, fmt.Errorf("%w: identity %q: %v", ErrInvalidPayload, s, err)
	}

	id.When = time.Unix(secs, 0).In(loc)
	return id, nil
}

// ParseZone parses a git timezone offset such as "+0200" or "-0530".
func ParseZone(tz string) (*time.Location, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return nil, fmt.Errorf("zone %q: want +hhmm or -hhmm", tz)
	}
	for i := 1; i < len(tz); i++ {
		if tz[i] < '0' || tz[i] > '9' {
			return nil, fmt.Errorf("zone %q: want +hhmm or -hhmm", tz)
		}
	}

	hh := int(tz[1]-'0')*10 + int(tz[2]-'0')
	mm := int(tz[3]-'0')*10 + int(tz[4]-'0')
	offset := hh*3600 + mm*60
	if tz[0] == '-' {
		offset = -offset
	}
	return time.FixedZone("", offset), nil
}
