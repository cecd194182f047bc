package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	format "github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
)

// maxSymrefDepth bounds symbolic ref chains, as git does.
const maxSymrefDepth = 5

// GoGit is the pure-Go Backend built on go-git. It does not write reflogs.
type GoGit struct {
	repo *gogit.Repository
	path string
}

var _ Backend = (*GoGit)(nil)

// OpenGoGit opens the repository containing path.
func OpenGoGit(repoPath string) (*GoGit, error) {
	repo, err := gogit.PlainOpenWithOptions(repoPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotGitRepo, repoPath)
		}
		return nil, &Error{Op: "open repository", Err: err}
	}
	return NewGoGit(repo, repoPath), nil
}

// NewGoGit wraps an already opened repository, such as one backed by
// in-memory storage.
func NewGoGit(repo *gogit.Repository, repoPath string) *GoGit {
	return &GoGit{repo: repo, path: repoPath}
}

// Repository returns the underlying go-git repository.
func (g *GoGit) Repository() *gogit.Repository {
	return g.repo
}

// RepoPath returns the path the repository was opened from.
func (g *GoGit) RepoPath() string {
	return g.path
}

// WriteObject stores data in the object database.
func (g *GoGit) WriteObject(ctx context.Context, t ObjectType, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ot, err := plumbing.ParseObjectType(string(t))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownObjectType, t)
	}

	obj := g.repo.Storer.NewEncodedObject()
	obj.SetType(ot)
	obj.SetSize(int64(len(data)))
	w, err := obj.Writer()
	if err != nil {
		return "", &Error{Op: "write object", Err: err}
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", &Error{Op: "write object", Err: err}
	}
	if err := w.Close(); err != nil {
		return "", &Error{Op: "write object", Err: err}
	}

	h, err := g.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", &Error{Op: "write object", Err: err}
	}
	return h.String(), nil
}

// ReadObject returns an object's type and content.
func (g *GoGit) ReadObject(ctx context.Context, id string) (ObjectType, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	h, ok := parseHash(id)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}

	obj, err := g.repo.Storer.EncodedObject(plumbing.AnyObject, h)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return "", nil, &Error{Op: "read object", Err: fmt.Errorf("%w: %s", ErrObjectNotFound, id)}
		}
		return "", nil, &Error{Op: "read object", Err: err}
	}

	t, err := ParseObjectType(obj.Type().String())
	if err != nil {
		return "", nil, err
	}
	r, err := obj.Reader()
	if err != nil {
		return "", nil, &Error{Op: "read object", Err: err}
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", nil, &Error{Op: "read object", Err: err}
	}
	return t, data, nil
}

// WriteTree writes the index as tree objects, like git write-tree.
func (g *GoGit) WriteTree(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	idx, err := g.repo.Storer.Index()
	if err != nil {
		return "", &Error{Op: "write tree", Err: err}
	}

	b := &treeBuilder{s: g.repo.Storer, trees: map[string]*object.Tree{"": {}}, seen: map[string]bool{}}
	for _, e := range idx.Entries {
		if e.Stage != index.Merged {
			return "", &Error{Op: "write tree", Err: fmt.Errorf("unmerged index entry %s", e.Name)}
		}
		b.add(e)
	}

	h, err := b.store("", b.trees[""])
	if err != nil {
		return "", &Error{Op: "write tree", Err: err}
	}
	return h.String(), nil
}

// ResolveRef resolves a revision to a commit id.
func (g *GoGit) ResolveRef(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h, err := g.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, io.EOF) {
			return "", &Error{Op: "resolve ref", Err: fmt.Errorf("%w: %s", ErrRefNotFound, ref)}
		}
		return "", &Error{Op: "resolve ref", Err: err}
	}
	return h.String(), nil
}

// UpdateRef points ref, or the branch a symbolic ref names, at newID.
func (g *GoGit) UpdateRef(ctx context.Context, ref, newID, oldID, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, ok := parseHash(newID)
	if !ok {
		return &Error{Op: "update ref", Err: fmt.Errorf("invalid object id %q", newID)}
	}

	name, err := g.derefSymbolic(plumbing.ReferenceName(ref))
	if err != nil {
		return &Error{Op: "update ref", Err: err}
	}
	next := plumbing.NewHashReference(name, h)

	cur, err := g.repo.Storer.Reference(name)
	if err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return &Error{Op: "update ref", Err: err}
	}
	exists := err == nil

	switch {
	case oldID == "":
		err = g.repo.Storer.SetReference(next)
	case isZeroID(oldID):
		if exists {
			return &Error{Op: "update ref", Err: fmt.Errorf("%w: %s already exists", ErrRefConflict, name)}
		}
		err = g.repo.Storer.SetReference(next)
	default:
		want, ok := parseHash(oldID)
		if !ok || !exists || cur.Hash() != want {
			return &Error{Op: "update ref", Err: fmt.Errorf("%w: %s is not at %s", ErrRefConflict, name, oldID)}
		}
		err = g.repo.Storer.CheckAndSetReference(next, plumbing.NewHashReference(name, want))
	}
	if err != nil {
		if errors.Is(err, storage.ErrReferenceHasChanged) {
			return &Error{Op: "update ref", Err: fmt.Errorf("%w: %s", ErrRefConflict, name)}
		}
		return &Error{Op: "update ref", Err: err}
	}
	return nil
}

// derefSymbolic follows symbolic refs to the ref that holds a hash. A
// missing ref resolves to itself so it can be created.
func (g *GoGit) derefSymbolic(name plumbing.ReferenceName) (plumbing.ReferenceName, error) {
	for range maxSymrefDepth {
		r, err := g.repo.Storer.Reference(name)
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return name, nil
		}
		if err != nil {
			return "", err
		}
		if r.Type() != plumbing.SymbolicReference {
			return name, nil
		}
		name = r.Target()
	}
	return "", fmt.Errorf("symbolic ref %s nested too deeply", name)
}

// ConfigValue reads "section.key" or "section.subsection.key" from the
// repository config, then the global config.
func (g *GoGit) ConfigValue(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	section, subsection, name, err := splitConfigKey(key)
	if err != nil {
		return "", false, err
	}

	local, err := g.repo.Config()
	if err != nil {
		return "", false, &Error{Op: "read config", Err: err}
	}
	if v, ok := rawOption(local.Raw, section, subsection, name); ok {
		return v, true, nil
	}

	global, err := config.LoadConfig(config.GlobalScope)
	if err != nil {
		return "", false, &Error{Op: "read config", Err: err}
	}
	v, ok := rawOption(global.Raw, section, subsection, name)
	return v, ok, nil
}

func rawOption(raw *format.Config, section, subsection, name string) (string, bool) {
	if raw == nil || !raw.HasSection(section) {
		return "", false
	}
	s := raw.Section(section)
	if subsection == "" {
		if !s.HasOption(name) {
			return "", false
		}
		return s.Option(name), true
	}
	if !s.HasSubsection(subsection) {
		return "", false
	}
	ss := s.Subsection(subsection)
	if !ss.HasOption(name) {
		return "", false
	}
	return ss.Option(name), true
}

func splitConfigKey(key string) (section, subsection, name string, err error) {
	first := strings.IndexByte(key, '.')
	last := strings.LastIndexByte(key, '.')
	if first <= 0 || last == len(key)-1 {
		return "", "", "", fmt.Errorf("invalid config key %q", key)
	}
	section, name = key[:first], key[last+1:]
	if first != last {
		subsection = key[first+1 : last]
	}
	return section, subsection, name, nil
}

// treeBuilder turns flat index paths into nested tree objects.
type treeBuilder struct {
	s     storage.Storer
	trees map[string]*object.Tree
	seen  map[string]bool
}

func (b *treeBuilder) add(e *index.Entry) {
	var full string
	for _, part := range strings.Split(e.Name, "/") {
		parent := full
		full = path.Join(full, part)
		if b.seen[full] {
			continue
		}
		b.seen[full] = true

		te := object.TreeEntry{Name: part}
		if full == e.Name {
			te.Mode = e.Mode
			te.Hash = e.Hash
		} else {
			te.Mode = filemode.Dir
			b.trees[full] = &object.Tree{}
		}
		b.trees[parent].Entries = append(b.trees[parent].Entries, te)
	}
}

// store writes t and its subtrees bottom-up and returns t's id.
func (b *treeBuilder) store(dir string, t *object.Tree) (plumbing.Hash, error) {
	// git orders directories as if their name ended in "/".
	sortKey := func(te object.TreeEntry) string {
		if te.Mode == filemode.Dir {
			return te.Name + "/"
		}
		return te.Name
	}
	sort.Slice(t.Entries, func(i, j int) bool {
		return sortKey(t.Entries[i]) < sortKey(t.Entries[j])
	})

	for i, e := range t.Entries {
		if e.Mode != filemode.Dir {
			continue
		}
		p := path.Join(dir, e.Name)
		h, err := b.store(p, b.trees[p])
		if err != nil {
			return plumbing.ZeroHash, err
		}
		t.Entries[i].Hash = h
	}

	obj := b.s.NewEncodedObject()
	if err := t.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	if b.s.HasEncodedObject(obj.Hash()) == nil {
		return obj.Hash(), nil
	}
	return b.s.SetEncodedObject(obj)
}

func parseHash(id string) (plumbing.Hash, bool) {
	if !plumbing.IsHash(id) {
		return plumbing.ZeroHash, false
	}
	return plumbing.NewHash(id), true
}
