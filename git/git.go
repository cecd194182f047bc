package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Context runs git plumbing commands against a repository. It is the CLI
// implementation of Backend.
type Context struct {
	repoPath string        // Path to the repository
	workDir  string        // Working directory for commands (defaults to repoPath)
	gitBin   string        // git executable (defaults to "git")
	runner   CommandRunner // Command runner (defaults to ExecRunner)
}

var _ Backend = (*Context)(nil)

// Option configures Context.
type Option func(*Context)

// NewContext creates a new git context for the repository.
// It validates that the path is a git repository and applies any options.
func NewContext(repoPath string, opts ...Option) (*Context, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	g := &Context{
		repoPath: absPath,
		workDir:  absPath,
		gitBin:   "git",
		runner:   NewExecRunner(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if _, err := g.runGit(context.Background(), nil, "rev-parse", "--git-dir"); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotGitRepo, absPath)
	}

	return g, nil
}

// WithRunner sets a custom command runner for git operations.
// This is primarily used for testing to inject mock command execution.
func WithRunner(runner CommandRunner) Option {
	return func(g *Context) {
		g.runner = runner
	}
}

// WithGitBinary sets the git executable.
func WithGitBinary(path string) Option {
	return func(g *Context) {
		g.gitBin = path
	}
}

// RepoPath returns the path to the repository.
func (g *Context) RepoPath() string {
	return g.repoPath
}

// WorkDir returns the working directory for git commands.
func (g *Context) WorkDir() string {
	return g.workDir
}

// WriteObject stores data with git hash-object.
func (g *Context) WriteObject(ctx context.Context, t ObjectType, data []byte) (string, error) {
	args := []string{"hash-object", "-t", string(t), "-w", "--stdin"}
	out, err := g.runGit(ctx, data, args...)
	if err != nil {
		return "", g.wrap("write object", args, err)
	}
	return strings.TrimSpace(out), nil
}

// ReadObject reads an object with git cat-file.
func (g *Context) ReadObject(ctx context.Context, id string) (ObjectType, []byte, error) {
	args := []string{"cat-file", "-t", id}
	out, err := g.runGit(ctx, nil, args...)
	if err != nil {
		if exitCode(err) == 128 {
			return "", nil, &Error{Op: "read object", Cmd: g.cmdline(args), Err: fmt.Errorf("%w: %s", ErrObjectNotFound, id)}
		}
		return "", nil, g.wrap("read object", args, err)
	}
	t, err := ParseObjectType(out)
	if err != nil {
		return "", nil, err
	}

	args = []string{"cat-file", string(t), id}
	out, err = g.runGit(ctx, nil, args...)
	if err != nil {
		return "", nil, g.wrap("read object", args, err)
	}
	return t, []byte(out), nil
}

// WriteTree writes the index with git write-tree.
func (g *Context) WriteTree(ctx context.Context) (string, error) {
	args := []string{"write-tree"}
	out, err := g.runGit(ctx, nil, args...)
	if err != nil {
		return "", g.wrap("write tree", args, err)
	}
	return strings.TrimSpace(out), nil
}

// ResolveRef resolves a revision to a commit id with git rev-parse.
func (g *Context) ResolveRef(ctx context.Context, ref string) (string, error) {
	args := []string{"rev-parse", "--verify", "--quiet", "--end-of-options", ref + "^{commit}"}
	out, err := g.runGit(ctx, nil, args...)
	if err != nil {
		if exitCode(err) == 1 {
			return "", &Error{Op: "resolve ref", Cmd: g.cmdline(args), Err: fmt.Errorf("%w: %s", ErrRefNotFound, ref)}
		}
		return "", g.wrap("resolve ref", args, err)
	}
	return strings.TrimSpace(out), nil
}

// UpdateRef moves a ref with git update-ref, which follows symbolic refs.
func (g *Context) UpdateRef(ctx context.Context, ref, newID, oldID, reason string) error {
	args := []string{"update-ref"}
	if reason != "" {
		args = append(args, "-m", reason)
	}
	args = append(args, ref, newID)
	if oldID != "" {
		args = append(args, oldID)
	}

	if _, err := g.runGit(ctx, nil, args...); err != nil {
		e := g.wrap("update ref", args, err)
		if oldID != "" && isRefConflict(e.Output) {
			e.Err = fmt.Errorf("%w: %s: %w", ErrRefConflict, ref, e.Err)
		}
		return e
	}
	return nil
}

// ConfigValue reads a config key with git config --get.
func (g *Context) ConfigValue(ctx context.Context, key string) (string, bool, error) {
	args := []string{"config", "--get", key}
	out, err := g.runGit(ctx, nil, args...)
	if err != nil {
		// Exit status 1 means the key is unset.
		if exitCode(err) == 1 {
			return "", false, nil
		}
		return "", false, g.wrap("read config", args, err)
	}
	return strings.TrimSpace(out), true, nil
}

// runGit executes a git command and returns raw stdout.
func (g *Context) runGit(ctx context.Context, stdin []byte, args ...string) (string, error) {
	return g.runner.Run(ctx, g.workDir, stdin, g.gitBin, args...)
}

func (g *Context) wrap(op string, args []string, err error) *Error {
	e := &Error{Op: op, Cmd: g.cmdline(args), Err: err}
	if cerr, ok := err.(*CommandError); ok {
		e.Output = cerr.Output
	}
	return e
}

func (g *Context) cmdline(args []string) string {
	return commandKey(g.gitBin, args)
}

func isRefConflict(stderr string) bool {
	return strings.Contains(stderr, "but expected") ||
		strings.Contains(stderr, "reference already exists") ||
		strings.Contains(stderr, "unable to resolve reference")
}
