package git

import (
	"context"
	"fmt"
	"strings"
)

// ObjectType is a git object kind.
type ObjectType string

const (
	ObjectCommit ObjectType = "commit"
	ObjectTree   ObjectType = "tree"
	ObjectBlob   ObjectType = "blob"
	ObjectTag    ObjectType = "tag"
)

// ParseObjectType validates a git object type name.
func ParseObjectType(s string) (ObjectType, error) {
	switch t := ObjectType(strings.TrimSpace(s)); t {
	case ObjectCommit, ObjectTree, ObjectBlob, ObjectTag:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownObjectType, s)
}

// ZeroID is the all-zero SHA-1 object id. As the expected old value of
// UpdateRef it requires the ref not to exist.
const ZeroID = "0000000000000000000000000000000000000000"

// isZeroID matches ZeroID and its 64-character SHA-256 form.
func isZeroID(id string) bool {
	return id != "" && strings.Trim(id, "0") == ""
}

// Backend persists git objects and moves references.
//
// Two implementations exist: Context shells out to the git executable and
// GoGit uses go-git's pure-Go object store. Both address objects by their
// hex id.
type Backend interface {
	// RepoPath returns the repository's working directory or git dir.
	RepoPath() string

	// WriteObject stores data as an object of type t and returns its id.
	WriteObject(ctx context.Context, t ObjectType, data []byte) (string, error)

	// ReadObject returns the type and raw content of an object.
	ReadObject(ctx context.Context, id string) (ObjectType, []byte, error)

	// WriteTree writes the index as a tree object and returns its id.
	WriteTree(ctx context.Context) (string, error)

	// ResolveRef returns the commit id a ref or revision points at.
	// ErrRefNotFound when it does not resolve (for example an unborn HEAD).
	ResolveRef(ctx context.Context, ref string) (string, error)

	// UpdateRef points ref at newID, following a symbolic HEAD. When oldID is
	// non-empty the current value must equal it (ZeroID: must not exist),
	// otherwise ErrRefConflict. reason is recorded in the reflog where the
	// backend keeps one.
	UpdateRef(ctx context.Context, ref, newID, oldID, reason string) error

	// ConfigValue reads a git config key. ok is false when the key is unset.
	ConfigValue(ctx context.Context, key string) (value string, ok bool, err error)
}

// WriteCommit stores a commit object and returns its id.
func WriteCommit(ctx context.Context, b Backend, data []byte) (string, error) {
	return b.WriteObject(ctx, ObjectCommit, data)
}

// ReadCommit returns the raw bytes of the commit rev resolves to.
func ReadCommit(ctx context.Context, b Backend, rev string) ([]byte, error) {
	id, err := b.ResolveRef(ctx, rev)
	if err != nil {
		return nil, err
	}
	t, data, err := b.ReadObject(ctx, id)
	if err != nil {
		return nil, err
	}
	if t != ObjectCommit {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotCommit, rev, t)
	}
	return data, nil
}

// UpdateRef points ref at id without checking its previous value.
func UpdateRef(ctx context.Context, b Backend, ref, id, reason string) error {
	return b.UpdateRef(ctx, ref, id, "", reason)
}

// Kind names a Backend implementation.
type Kind string

const (
	KindCLI   Kind = "cli"
	KindGoGit Kind = "gogit"
)

// Open opens the repository at path with the backend named by kind. An
// empty kind selects the CLI backend.
func Open(kind Kind, path string, opts ...Option) (Backend, error) {
	switch kind {
	case "", KindCLI:
		g, err := NewContext(path, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	case KindGoGit:
		g, err := OpenGoGit(path)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
}
